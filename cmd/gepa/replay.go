package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gepa-project/gepa/internal/collab/store"
	"github.com/gepa-project/gepa/pkg/gepa"
)

type replayFlags struct {
	storePath string
	runID     string
	json      bool
}

func newReplayCommand() *cobra.Command {
	flags := &replayFlags{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Reconstruct a run's state by folding its persisted event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVar(&flags.storePath, "store", "gepa.db", "path to the SQLite event store")
	cmd.Flags().StringVar(&flags.runID, "run-id", "", "run id to replay")
	cmd.Flags().BoolVar(&flags.json, "json", false, "print the reconstructed state as JSON")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}

func runReplay(ctx context.Context, flags *replayFlags) error {
	st, err := store.New(store.Config{Path: flags.storePath})
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.LoadEvents(ctx, flags.runID)
	if err != nil {
		return fmt.Errorf("loading events: %w", err)
	}
	if len(events) == 0 {
		return fmt.Errorf("no events found for run %q in %q", flags.runID, flags.storePath)
	}

	state := gepa.Replay(events)

	if flags.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	fmt.Printf("run:       %s\n", state.RunID)
	fmt.Printf("status:    %s\n", state.Status)
	fmt.Printf("iteration: %d\n", state.Iteration)
	fmt.Printf("budget:    %d\n", state.BudgetConsumed)
	fmt.Printf("archive:   %d\n", state.ArchiveSize)
	fmt.Printf("accepted:  %d\n", state.Accepted)
	fmt.Printf("rejected:  %d\n", state.Rejected)
	if len(state.AccuracyTimeline) > 0 {
		fmt.Printf("best accuracy: %.4f\n", state.AccuracyTimeline[len(state.AccuracyTimeline)-1])
	}
	for _, msg := range state.Errors {
		fmt.Printf("error: %s\n", msg)
	}
	return nil
}
