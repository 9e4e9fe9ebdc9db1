package patterns

// Package patterns routes common queries straight to league state
// lookups, skipping retrieval and generation entirely.
//
// Responsibilities:
//   - Score a normalized query against an ordered table of intent patterns
//   - Report the best match with a confidence in [0,1]
//   - Dispatch the matched handler against the state store
//
// Scoring is pure: identical normalized input always yields the same
// (intent, confidence). Ties break by registration order, so the table
// order is the precedence order. Only Dispatch touches state, and it is
// deterministic given the same input and underlying store.

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dynastybot/dynasty-ai/internal/normalize"
)

// DefaultMatchThreshold is the confidence a match needs before the
// engine will dispatch it instead of falling through to generation.
const DefaultMatchThreshold = 0.9

// StateLookup resolves a named entity within a scope. Implemented by
// the league state store.
type StateLookup interface {
	// Lookup returns the entity's display value, or found=false when
	// the entity is unknown in this scope.
	Lookup(ctx context.Context, scope, entityKind, entityName string) (value string, found bool, err error)
}

// Handler produces the answer for a matched pattern.
type Handler func(ctx context.Context, scope string, args map[string]string) (string, error)

// Match is the result of scoring a query against the pattern table.
type Match struct {
	IntentTag  string
	Confidence float64
	Args       map[string]string
	handler    Handler
}

// Dispatch runs the matched handler.
func (m Match) Dispatch(ctx context.Context, scope string) (string, error) {
	return m.handler(ctx, scope, m.Args)
}

// Scorer reports how confidently a pattern claims a normalized query,
// along with any extracted arguments. Must be pure.
type Scorer func(normalized string) (float64, map[string]string)

// Pattern pairs a scorer with the handler it dispatches to.
type Pattern struct {
	IntentTag string
	Score     Scorer
	Handler   Handler
}

// Router holds the ordered pattern table.
type Router struct {
	patterns  []Pattern
	threshold float64
}

// NewRouter creates an empty router. Threshold values outside (0,1]
// fall back to the default.
func NewRouter(threshold float64) *Router {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	return &Router{threshold: threshold}
}

// Register appends a pattern. Registration order defines tie-break
// precedence: the first pattern to reach the top confidence wins.
func (r *Router) Register(p Pattern) {
	r.patterns = append(r.patterns, p)
}

// Threshold returns the dispatch threshold.
func (r *Router) Threshold() float64 { return r.threshold }

// TryMatch scores the query against every registered pattern and
// returns the best match. The second return is false when no pattern
// scored above zero.
func (r *Router) TryMatch(normalized string) (Match, bool) {
	best := Match{Confidence: 0}
	found := false
	for _, p := range r.patterns {
		conf, args := p.Score(normalized)
		conf = clip01(conf)
		// Strictly greater: earlier registrations win ties.
		if conf > best.Confidence {
			best = Match{
				IntentTag:  p.IntentTag,
				Confidence: conf,
				Args:       args,
				handler:    p.Handler,
			}
			found = true
		}
	}
	return best, found
}

// AboveThreshold reports whether a match is confident enough to
// short-circuit generation.
func (r *Router) AboveThreshold(m Match) bool {
	return m.Confidence >= r.threshold
}

func clip01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ─── Built-in patterns ───────────────────────────────────────────────────────

var (
	ownershipRE = regexp.MustCompile(`^who has ([a-z0-9\s&\-']+)$`)

	// Queries that look like ownership questions but aren't. Checked
	// before the ownership pattern claims anything. The normalizer has
	// already dropped articles and folded the ownership verbs, so
	// "who is winning" arrives here as "who has winning".
	ownershipExclusions = []*regexp.Regexp{
		regexp.MustCompile(`^who has most\b`),
		regexp.MustCompile(`^who has more\b`),
		regexp.MustCompile(`^who has winning\b`),
		regexp.MustCompile(`^who has ahead\b`),
		regexp.MustCompile(`^who has leading\b`),
		regexp.MustCompile(`^who has (?:a )?matchups?\b`),
		regexp.MustCompile(`^who has games\b`),
	}

	helpTemplates = []string{"help", "commands", "command", "what can you do"}
)

// NewDefaultRouter builds the router with the built-in pattern table
// wired to the given state store.
func NewDefaultRouter(threshold float64, state StateLookup) *Router {
	r := NewRouter(threshold)
	r.Register(Pattern{
		IntentTag: "team_ownership",
		Score:     scoreTeamOwnership,
		Handler:   teamOwnershipHandler(state),
	})
	r.Register(Pattern{
		IntentTag: "help_menu",
		Score:     scoreHelpMenu,
		Handler:   helpMenuHandler,
	})
	return r
}

// scoreTeamOwnership claims "who has <team>" queries with high
// confidence once a plausible team name extracts.
func scoreTeamOwnership(normalized string) (float64, map[string]string) {
	for _, excl := range ownershipExclusions {
		if excl.MatchString(normalized) {
			return 0, nil
		}
	}
	m := ownershipRE.FindStringSubmatch(normalized)
	if m == nil {
		return 0, nil
	}
	team := normalize.TrimTeamSuffix(strings.TrimSpace(m[1]))
	if len(team) <= 2 {
		return 0, nil
	}
	return 0.95, map[string]string{"team": team}
}

// scoreHelpMenu blends template exactness with token overlap, weighted
// so even an exact match stays below the dispatch-by-default band.
func scoreHelpMenu(normalized string) (float64, map[string]string) {
	best := 0.0
	for _, tmpl := range helpTemplates {
		if normalized == tmpl {
			best = 1.0
			break
		}
		if overlap := tokenOverlap(normalized, tmpl); overlap > best {
			best = overlap
		}
	}
	return 0.80 * best, nil
}

// tokenOverlap returns the fraction of template tokens present in the
// query.
func tokenOverlap(query, template string) float64 {
	qTokens := map[string]bool{}
	for _, tok := range strings.Fields(query) {
		qTokens[tok] = true
	}
	tTokens := strings.Fields(template)
	if len(tTokens) == 0 {
		return 0
	}
	hit := 0
	for _, tok := range tTokens {
		if qTokens[tok] {
			hit++
		}
	}
	return float64(hit) / float64(len(tTokens))
}

// teamOwnershipHandler answers "who has X" from the state store.
func teamOwnershipHandler(state StateLookup) Handler {
	return func(ctx context.Context, scope string, args map[string]string) (string, error) {
		team := args["team"]
		owner, found, err := state.Lookup(ctx, scope, "team_owner", team)
		if err != nil {
			return "", fmt.Errorf("team ownership lookup for %q: %w", team, err)
		}
		pretty := titleCase(team)
		if !found {
			return fmt.Sprintf("**%s** is not in the database. Make sure the team name is correct.", pretty), nil
		}
		if owner == "" {
			return fmt.Sprintf("**%s** is not assigned to anyone (CPU).", pretty), nil
		}
		return fmt.Sprintf("**%s** is assigned to %s.", pretty, owner), nil
	}
}

// helpMenuHandler returns the static command overview.
func helpMenuHandler(_ context.Context, _ string, _ map[string]string) (string, error) {
	return "I can help with teams (`/teams who-has`, `/teams assign`), " +
		"matchups (`/matchups list`, `/matchups create`), " +
		"records (`/records check`), and attribute points " +
		"(`/attributes my-points`, `/attributes request`). " +
		"Ask me things like \"who has Clemson\" or \"how do I spend my points\".", nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
