package store

import (
	"context"
	"testing"
	"time"

	"github.com/dynastybot/dynasty-ai/internal/usage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ─── Team assignments ─────────────────────────────────────────────────────────

func TestAssignAndLookupTeam(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AssignTeam(ctx, "league-1", "Clemson", "@alice"); err != nil {
		t.Fatalf("AssignTeam: %v", err)
	}

	// Lookup is case-insensitive on the team name.
	owner, found, err := s.Lookup(ctx, "league-1", "team_owner", "clemson")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !found {
		t.Fatal("assigned team not found")
	}
	if owner != "@alice" {
		t.Errorf("owner = %q, want @alice", owner)
	}
}

func TestCPUTeam(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AssignTeam(ctx, "league-1", "georgia", ""); err != nil {
		t.Fatalf("AssignTeam: %v", err)
	}
	owner, found, err := s.Lookup(ctx, "league-1", "team_owner", "georgia")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !found || owner != "" {
		t.Errorf("CPU team: found=%v owner=%q, want found with empty owner", found, owner)
	}
}

func TestUnknownTeamNotFound(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.Lookup(context.Background(), "league-1", "team_owner", "narnia")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if found {
		t.Error("unknown team reported as found")
	}
}

func TestScopeIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AssignTeam(ctx, "league-1", "clemson", "@alice"); err != nil {
		t.Fatalf("AssignTeam: %v", err)
	}
	if _, found, _ := s.Lookup(ctx, "league-2", "team_owner", "clemson"); found {
		t.Error("assignment leaked across scopes")
	}
}

func TestReassignAndRelease(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AssignTeam(ctx, "league-1", "clemson", "@alice"); err != nil {
		t.Fatalf("AssignTeam: %v", err)
	}
	if err := s.AssignTeam(ctx, "league-1", "clemson", "@bob"); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	owner, _, _ := s.Lookup(ctx, "league-1", "team_owner", "clemson")
	if owner != "@bob" {
		t.Errorf("owner after reassign = %q, want @bob", owner)
	}

	if err := s.ReleaseTeam(ctx, "league-1", "clemson"); err != nil {
		t.Fatalf("ReleaseTeam: %v", err)
	}
	if _, found, _ := s.Lookup(ctx, "league-1", "team_owner", "clemson"); found {
		t.Error("released team still found")
	}
}

func TestListTeams(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.AssignTeam(ctx, "league-1", "georgia", "@bob")
	s.AssignTeam(ctx, "league-1", "clemson", "@alice")
	s.AssignTeam(ctx, "league-2", "alabama", "@carol")

	teams, err := s.ListTeams(ctx, "league-1")
	if err != nil {
		t.Fatalf("ListTeams: %v", err)
	}
	if len(teams) != 2 {
		t.Fatalf("len(teams) = %d, want 2", len(teams))
	}
	if teams[0].Team != "clemson" || teams[1].Team != "georgia" {
		t.Errorf("teams not alphabetical: %+v", teams)
	}
}

// ─── Records and points ───────────────────────────────────────────────────────

func TestRecordLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetRecord(ctx, "league-1", "@alice", 8, 3); err != nil {
		t.Fatalf("SetRecord: %v", err)
	}
	val, found, err := s.Lookup(ctx, "league-1", "record", "@alice")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !found || val != "8-3" {
		t.Errorf("record = %q found=%v, want 8-3", val, found)
	}
}

func TestPointsLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetPoints(ctx, "league-1", "@alice", 42); err != nil {
		t.Fatalf("SetPoints: %v", err)
	}
	val, found, err := s.Lookup(ctx, "league-1", "attribute_points", "@alice")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !found || val != "42" {
		t.Errorf("points = %q found=%v, want 42", val, found)
	}
}

func TestUnknownEntityKind(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.Lookup(context.Background(), "league-1", "bogus", "x"); err == nil {
		t.Error("expected error for unknown entity kind")
	}
}

// ─── Mutation hook ────────────────────────────────────────────────────────────

type recordingInvalidator struct {
	scopes []string
}

func (r *recordingInvalidator) Invalidate(prefix, scope string) int {
	r.scopes = append(r.scopes, scope)
	return 0
}

func TestMutationsInvalidateScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	inv := &recordingInvalidator{}
	s.SetInvalidator(inv)

	s.AssignTeam(ctx, "league-1", "clemson", "@alice")
	s.SetRecord(ctx, "league-1", "@alice", 1, 0)
	s.SetPoints(ctx, "league-2", "@bob", 5)
	s.ReleaseTeam(ctx, "league-1", "clemson")

	want := []string{"league-1", "league-1", "league-2", "league-1"}
	if len(inv.scopes) != len(want) {
		t.Fatalf("invalidations = %v, want %v", inv.scopes, want)
	}
	for i := range want {
		if inv.scopes[i] != want[i] {
			t.Errorf("invalidation %d = %q, want %q", i, inv.scopes[i], want[i])
		}
	}
}

// ─── Usage persistence ────────────────────────────────────────────────────────

func TestPersistAndLoadUsage(t *testing.T) {
	s := newTestStore(t)

	rec := usage.Record{
		Operation:    "resolve",
		ModelTier:    "simple",
		Model:        "gpt-4o-mini",
		InputTokens:  1000,
		OutputTokens: 200,
		CostUSD:      0.00027,
		DurationMS:   840,
		Timestamp:    time.Now().Round(time.Second),
	}
	if err := s.PersistUsage(rec); err != nil {
		t.Fatalf("PersistUsage: %v", err)
	}

	got, err := s.LoadUsage(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("LoadUsage: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(got))
	}
	if got[0].Operation != "resolve" || got[0].Model != "gpt-4o-mini" {
		t.Errorf("record = %+v", got[0])
	}
	if got[0].InputTokens != 1000 || got[0].OutputTokens != 200 {
		t.Errorf("tokens = %d/%d", got[0].InputTokens, got[0].OutputTokens)
	}
}
