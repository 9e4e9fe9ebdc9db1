// Package store persists league state in SQLite.
//
// Responsibilities:
//   - Team assignments per scope (owner or CPU)
//   - Season records and attribute points
//   - Usage record persistence for the tracker
//   - Synchronous cache invalidation on every mutation
//
// The driver is modernc.org/sqlite (pure Go, no CGO), with schema
// migrations tracked in a schema_versions table.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dynastybot/dynasty-ai/internal/metrics"
	"github.com/dynastybot/dynasty-ai/internal/usage"
	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS teams (
    scope       TEXT NOT NULL,
    team        TEXT NOT NULL,
    owner       TEXT NOT NULL DEFAULT '',
    updated_at  DATETIME NOT NULL,
    PRIMARY KEY (scope, team)
);
CREATE INDEX IF NOT EXISTS idx_teams_owner ON teams(scope, owner);

CREATE TABLE IF NOT EXISTS records (
    scope       TEXT NOT NULL,
    owner       TEXT NOT NULL,
    wins        INTEGER NOT NULL DEFAULT 0,
    losses      INTEGER NOT NULL DEFAULT 0,
    updated_at  DATETIME NOT NULL,
    PRIMARY KEY (scope, owner)
);

CREATE TABLE IF NOT EXISTS attribute_points (
    scope       TEXT NOT NULL,
    owner       TEXT NOT NULL,
    points      INTEGER NOT NULL DEFAULT 0,
    updated_at  DATETIME NOT NULL,
    PRIMARY KEY (scope, owner)
);
`,
	},
	// Migration 2: usage record persistence
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS usage_records (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    operation     TEXT NOT NULL,
    model_tier    TEXT NOT NULL DEFAULT '',
    model         TEXT NOT NULL DEFAULT '',
    input_tokens  INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    cost_usd      REAL NOT NULL DEFAULT 0.0,
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    cache_hit     BOOLEAN NOT NULL DEFAULT 0,
    recorded_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_recorded_at ON usage_records(recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_usage_operation ON usage_records(operation);
`,
	},
}

// Invalidator drops cached answers touching a scope. Implemented by the
// query cache.
type Invalidator interface {
	Invalidate(prefix, scope string) int
}

// Store is the SQLite-backed league state store.
type Store struct {
	db          *sql.DB
	invalidator Invalidator
}

// Open opens (or creates) the database at path and runs pending
// migrations. Pass ":memory:" for an in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// SetInvalidator wires the cache. Every mutation invalidates the
// mutated scope before returning, so stale answers never outlive a
// state change.
func (s *Store) SetInvalidator(inv Invalidator) { s.invalidator = inv }

func (s *Store) invalidateScope(scope string) {
	if s.invalidator != nil {
		n := s.invalidator.Invalidate("", scope)
		metrics.CacheInvalidations.WithLabelValues("mutation").Add(float64(n))
	}
}

// normKey lowercases entity names so lookups match the normalized query
// pipeline.
func normKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ─── State lookup (pattern router collaborator) ──────────────────────────────

// Lookup resolves an entity for the pattern router. Supported kinds:
// team_owner, record, attribute_points.
func (s *Store) Lookup(ctx context.Context, scope, entityKind, entityName string) (string, bool, error) {
	switch entityKind {
	case "team_owner":
		return s.lookupTeamOwner(ctx, scope, normKey(entityName))
	case "record":
		return s.lookupRecord(ctx, scope, normKey(entityName))
	case "attribute_points":
		return s.lookupPoints(ctx, scope, normKey(entityName))
	default:
		return "", false, fmt.Errorf("unknown entity kind %q", entityKind)
	}
}

func (s *Store) lookupTeamOwner(ctx context.Context, scope, team string) (string, bool, error) {
	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT owner FROM teams WHERE scope=? AND team=?`, scope, team).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup team owner: %w", err)
	}
	return owner, true, nil
}

func (s *Store) lookupRecord(ctx context.Context, scope, owner string) (string, bool, error) {
	var wins, losses int
	err := s.db.QueryRowContext(ctx,
		`SELECT wins, losses FROM records WHERE scope=? AND owner=?`, scope, owner).Scan(&wins, &losses)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup record: %w", err)
	}
	return fmt.Sprintf("%d-%d", wins, losses), true, nil
}

func (s *Store) lookupPoints(ctx context.Context, scope, owner string) (string, bool, error) {
	var points int
	err := s.db.QueryRowContext(ctx,
		`SELECT points FROM attribute_points WHERE scope=? AND owner=?`, scope, owner).Scan(&points)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup attribute points: %w", err)
	}
	return fmt.Sprintf("%d", points), true, nil
}

// ─── Mutations ───────────────────────────────────────────────────────────────

// AssignTeam sets a team's owner in a scope. Empty owner marks the team
// CPU-controlled. Invalidates the scope's cached answers.
func (s *Store) AssignTeam(ctx context.Context, scope, team, owner string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO teams(scope, team, owner, updated_at)
        VALUES(?,?,?,?)
        ON CONFLICT(scope, team) DO UPDATE SET
            owner      = excluded.owner,
            updated_at = excluded.updated_at
    `, scope, normKey(team), owner, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("assign team: %w", err)
	}
	s.invalidateScope(scope)
	return nil
}

// ReleaseTeam removes a team from a scope entirely.
func (s *Store) ReleaseTeam(ctx context.Context, scope, team string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM teams WHERE scope=? AND team=?`, scope, normKey(team))
	if err != nil {
		return fmt.Errorf("release team: %w", err)
	}
	s.invalidateScope(scope)
	return nil
}

// SetRecord upserts an owner's season record.
func (s *Store) SetRecord(ctx context.Context, scope, owner string, wins, losses int) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO records(scope, owner, wins, losses, updated_at)
        VALUES(?,?,?,?,?)
        ON CONFLICT(scope, owner) DO UPDATE SET
            wins       = excluded.wins,
            losses     = excluded.losses,
            updated_at = excluded.updated_at
    `, scope, normKey(owner), wins, losses, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set record: %w", err)
	}
	s.invalidateScope(scope)
	return nil
}

// SetPoints upserts an owner's attribute point balance.
func (s *Store) SetPoints(ctx context.Context, scope, owner string, points int) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO attribute_points(scope, owner, points, updated_at)
        VALUES(?,?,?,?)
        ON CONFLICT(scope, owner) DO UPDATE SET
            points     = excluded.points,
            updated_at = excluded.updated_at
    `, scope, normKey(owner), points, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set points: %w", err)
	}
	s.invalidateScope(scope)
	return nil
}

// TeamAssignment is one row of the team table.
type TeamAssignment struct {
	Team  string `json:"team"`
	Owner string `json:"owner"` // empty means CPU-controlled
}

// ListTeams returns all assignments in a scope, alphabetical by team.
func (s *Store) ListTeams(ctx context.Context, scope string) ([]TeamAssignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT team, owner FROM teams WHERE scope=? ORDER BY team ASC`, scope)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var result []TeamAssignment
	for rows.Next() {
		var ta TeamAssignment
		if err := rows.Scan(&ta.Team, &ta.Owner); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		result = append(result, ta)
	}
	return result, rows.Err()
}

// ─── Usage persistence (tracker collaborator) ────────────────────────────────

// PersistUsage appends one usage record. Implements usage.Persister.
func (s *Store) PersistUsage(rec usage.Record) error {
	_, err := s.db.Exec(`
        INSERT INTO usage_records(operation, model_tier, model, input_tokens, output_tokens, cost_usd, duration_ms, cache_hit, recorded_at)
        VALUES(?,?,?,?,?,?,?,?,?)
    `, rec.Operation, rec.ModelTier, rec.Model, rec.InputTokens, rec.OutputTokens,
		rec.CostUSD, rec.DurationMS, rec.CacheHit, rec.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("persist usage record: %w", err)
	}
	return nil
}

// LoadUsage returns persisted usage records in a window, oldest first.
func (s *Store) LoadUsage(ctx context.Context, from, to time.Time) ([]usage.Record, error) {
	query := `SELECT operation, model_tier, model, input_tokens, output_tokens, cost_usd, duration_ms, cache_hit, recorded_at
              FROM usage_records WHERE 1=1`
	args := []any{}
	if !from.IsZero() {
		query += ` AND recorded_at >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND recorded_at <= ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY recorded_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}
	defer rows.Close()

	var result []usage.Record
	for rows.Next() {
		var rec usage.Record
		var ts string
		if err := rows.Scan(&rec.Operation, &rec.ModelTier, &rec.Model, &rec.InputTokens,
			&rec.OutputTokens, &rec.CostUSD, &rec.DurationMS, &rec.CacheHit, &ts); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		rec.Timestamp, _ = parseTime(ts)
		result = append(result, rec)
	}
	return result, rows.Err()
}

// parseTime handles multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}
