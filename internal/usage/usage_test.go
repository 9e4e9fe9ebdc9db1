package usage

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCostFor(t *testing.T) {
	tests := []struct {
		model    string
		in, out  int
		wantCost float64
	}{
		{"gpt-4o", 1_000_000, 0, 2.50},
		{"gpt-4o", 0, 1_000_000, 10.00},
		{"gpt-4o-mini", 1_000_000, 1_000_000, 0.75},
		{"gpt-4o", 500_000, 100_000, 2.25},
		{"stub-simple", 1_000_000, 1_000_000, 0},
		{"", 100, 100, 0},
	}
	for _, tt := range tests {
		if got := CostFor(tt.model, tt.in, tt.out); !approxEqual(got, tt.wantCost) {
			t.Errorf("CostFor(%q, %d, %d) = %v, want %v", tt.model, tt.in, tt.out, got, tt.wantCost)
		}
	}
}

func TestRecordAndSummary(t *testing.T) {
	tr := NewTracker()
	tr.Record(Record{Operation: "resolve", Model: "gpt-4o-mini", InputTokens: 1000, OutputTokens: 500})
	tr.Record(Record{Operation: "resolve", CacheHit: true})
	tr.Record(Record{Operation: "pattern", DurationMS: 2})

	s := tr.Summary()
	if s.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", s.TotalCount)
	}
	resolve := s.ByOperation["resolve"]
	if resolve.Count != 2 || resolve.CacheHits != 1 {
		t.Errorf("resolve summary = %+v", resolve)
	}
	if resolve.InputTokens != 1000 || resolve.OutputTokens != 500 {
		t.Errorf("resolve tokens = %d/%d", resolve.InputTokens, resolve.OutputTokens)
	}
	wantCost := CostFor("gpt-4o-mini", 1000, 500)
	if !approxEqual(resolve.CostUSD, wantCost) {
		t.Errorf("resolve cost = %v, want %v", resolve.CostUSD, wantCost)
	}
	if pat := s.ByOperation["pattern"]; pat.Count != 1 {
		t.Errorf("pattern summary = %+v", pat)
	}
}

func TestReset(t *testing.T) {
	tr := NewTracker()
	tr.Record(Record{Operation: "resolve"})
	tr.Reset()
	if s := tr.Summary(); s.TotalCount != 0 {
		t.Errorf("TotalCount after reset = %d, want 0", s.TotalCount)
	}
}

type failingPersister struct{ calls int }

func (f *failingPersister) PersistUsage(Record) error {
	f.calls++
	return errors.New("disk full")
}

func TestPersisterFailureDoesNotBlockRecording(t *testing.T) {
	fp := &failingPersister{}
	tr := NewTracker(WithPersister(fp))
	tr.Record(Record{Operation: "resolve"})

	if fp.calls != 1 {
		t.Errorf("persister calls = %d, want 1", fp.calls)
	}
	if s := tr.Summary(); s.TotalCount != 1 {
		t.Errorf("record dropped on persist failure: count = %d", s.TotalCount)
	}
}

func TestConcurrentRecording(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tr.Record(Record{Operation: "resolve"})
			}
		}()
	}
	wg.Wait()
	if s := tr.Summary(); s.TotalCount != 400 {
		t.Errorf("TotalCount = %d, want 400", s.TotalCount)
	}
}
