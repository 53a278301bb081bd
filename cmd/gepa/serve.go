package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gepa-project/gepa/internal/collab/httpstream"
	"github.com/gepa-project/gepa/internal/collab/store"
	"github.com/gepa-project/gepa/internal/gepa/gateway"
	"github.com/gepa-project/gepa/internal/gepa/gepaconfig"
	"github.com/gepa-project/gepa/internal/gepa/scheduler"
	"github.com/gepa-project/gepa/internal/observability"
	"github.com/gepa-project/gepa/pkg/gepa"
)

type serveFlags struct {
	runFlags
	addr          string
	storePath     string
	traceEndpoint string
}

func newServeCommand() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an optimization while streaming its events over HTTP/SSE/websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to a YAML or JSON5 run config ($include supported)")
	cmd.Flags().StringVar(&flags.toolsPath, "tools", "", "path to a JSON array of tools")
	cmd.Flags().StringVar(&flags.testsPath, "tests", "", "path to a JSON array of test cases")
	cmd.Flags().StringVar(&flags.backend, "backend", "stub", "gateway backend: stub, anthropic, openai, bedrock")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "text", "log format: text, json")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 1, "PRNG seed for reproducible runs")
	cmd.Flags().StringVar(&flags.addr, "addr", ":8070", "address to serve the event stream on")
	cmd.Flags().StringVar(&flags.storePath, "store", "gepa.db", "path to the SQLite event store")
	cmd.Flags().StringVar(&flags.traceEndpoint, "otel-endpoint", "", "OTLP gRPC endpoint for distributed tracing (disabled if empty)")
	_ = cmd.MarkFlagRequired("tools")
	_ = cmd.MarkFlagRequired("tests")
	return cmd
}

func runServe(ctx context.Context, flags *serveFlags) error {
	logger := observability.NewLogger(observability.LogConfig{Level: flags.logLevel, Format: flags.logFormat})

	tools, err := readTools(flags.toolsPath)
	if err != nil {
		return fmt.Errorf("reading tools: %w", err)
	}
	testCases, err := readTestCases(flags.testsPath)
	if err != nil {
		return fmt.Errorf("reading test cases: %w", err)
	}

	config := gepa.DefaultRunConfig()
	if flags.configPath != "" {
		config, err = gepaconfig.Load(flags.configPath)
		if err != nil {
			return err
		}
	}
	config.Seed = flags.seed

	gw, err := buildGateway(flags.backend)
	if err != nil {
		return err
	}

	metrics := observability.NewGEPAMetrics()
	metrics.MustRegister(prometheus.DefaultRegisterer)

	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName: "gepa",
		Endpoint:    flags.traceEndpoint,
	})
	defer func() { _ = shutdownTracer(context.Background()) }()
	gw = gateway.Instrument(gw, metrics, tracer)

	st, err := store.New(store.Config{Path: flags.storePath, Tracer: tracer})
	if err != nil {
		return err
	}
	defer st.Close()

	streamServer := httpstream.NewServer(flags.addr, slog.Default(), tracer)
	if err := streamServer.Start(ctx); err != nil {
		return err
	}

	runID := newRunID()
	ctx = observability.AddRunID(ctx, runID)
	streamSink := streamServer.Sink(runID)
	storeSink := gepa.SinkFunc(func(e gepa.Event) {
		if err := st.SaveEvent(ctx, runID, e); err != nil {
			logger.Error(ctx, "failed to persist event", "error", err)
		}
	})
	sink := gepa.MultiSink{streamSink, storeSink, observability.NewMetricsSink(runID, metrics)}

	sched, err := scheduler.New(runID, tools, testCases, gw, config, sink)
	if err != nil {
		return err
	}

	logger.Info(ctx, "serving run", "run_id", runID, "addr", flags.addr)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	archv, err := sched.Run(runCtx)
	if err != nil {
		return err
	}
	if err := st.SaveArchiveSnapshot(ctx, runID, archv); err != nil {
		logger.Error(ctx, "failed to persist archive snapshot", "error", err)
	}

	logger.Info(ctx, "optimization complete, stream remains available", "run_id", runID, "archive_size", archv.Size())
	<-runCtx.Done()
	return streamServer.Stop(context.Background())
}
