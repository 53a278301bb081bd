package gepaprng

import "testing"

func TestNewIsDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 20; i++ {
		av, bv := a.IntN(1000), b.IntN(1000)
		if av != bv {
			t.Fatalf("draw %d diverged: %d != %d", i, av, bv)
		}
	}
}

func TestSampleWithoutReplacementCapsAtLength(t *testing.T) {
	r := New(1)
	items := []int{1, 2, 3}
	got := SampleWithoutReplacement(r, items, 10)
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
}

func TestSampleWithoutReplacementIsDistinctAndSized(t *testing.T) {
	r := New(7)
	items := []string{"a", "b", "c", "d", "e"}
	got := SampleWithoutReplacement(r, items, 3)
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	seen := map[string]bool{}
	for _, v := range got {
		if seen[v] {
			t.Fatalf("duplicate sample: %s", v)
		}
		seen[v] = true
	}
}

func TestWeightedChoiceAllZeroReturnsNegativeOne(t *testing.T) {
	r := New(3)
	if got := WeightedChoice(r, []float64{0, 0, 0}); got != -1 {
		t.Fatalf("WeightedChoice() = %d, want -1", got)
	}
}

func TestWeightedChoiceOnlyPicksPositiveWeights(t *testing.T) {
	r := New(5)
	weights := []float64{0, 5, 0}
	for i := 0; i < 50; i++ {
		if got := WeightedChoice(r, weights); got != 1 {
			t.Fatalf("WeightedChoice() = %d, want 1 (only positive weight)", got)
		}
	}
}
