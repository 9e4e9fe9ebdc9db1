package types

// Package types defines public API types shared between dynasty-ai and
// its clients (the Discord gateway and admin tooling).
//
// These types define the REST API contracts.

// Request types

// QueryRequest asks the engine to resolve a natural-language question
// within a league scope.
type QueryRequest struct {
	Scope string `json:"scope"`
	Query string `json:"query"`
}

// InvalidateCacheRequest drops cached answers. Prefix narrows the
// invalidation to signatures starting with it; empty drops the whole
// scope.
type InvalidateCacheRequest struct {
	Scope  string `json:"scope"`
	Prefix string `json:"prefix,omitempty"`
}

// AssignTeamRequest sets a team's owner. An empty owner marks the team
// CPU-controlled.
type AssignTeamRequest struct {
	Scope string `json:"scope"`
	Team  string `json:"team"`
	Owner string `json:"owner"`
}

// SetRecordRequest upserts an owner's season record.
type SetRecordRequest struct {
	Scope  string `json:"scope"`
	Owner  string `json:"owner"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
}

// SetPointsRequest upserts an owner's attribute point balance.
type SetPointsRequest struct {
	Scope  string `json:"scope"`
	Owner  string `json:"owner"`
	Points int    `json:"points"`
}

// Response types

// QueryResponse carries a resolved answer.
type QueryResponse struct {
	RequestID string `json:"request_id"`
	Scope     string `json:"scope"`
	Answer    string `json:"answer"`
	Timestamp int64  `json:"timestamp"`
}

// CacheStatsResponse reports cache counters.
type CacheStatsResponse struct {
	Hits           int     `json:"hits"`
	Misses         int     `json:"misses"`
	Size           int     `json:"size"`
	Capacity       int     `json:"capacity"`
	HitRatePercent float64 `json:"hit_rate_percent"`
}

// InvalidateCacheResponse reports how many entries were dropped.
type InvalidateCacheResponse struct {
	Invalidated int `json:"invalidated"`
}

// TeamAssignment is one entry in a league's team listing.
type TeamAssignment struct {
	Team  string `json:"team"`
	Owner string `json:"owner"` // empty means CPU-controlled
}

// ErrorResponse carries a machine-readable error.
type ErrorResponse struct {
	Error string `json:"error"`
}
