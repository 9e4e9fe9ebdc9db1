package normalize

// Package normalize canonicalizes raw league queries before caching,
// routing, and retrieval.
//
// Responsibilities:
//   - Case-fold and collapse whitespace
//   - Strip trailing punctuation ("who has Clemson?" == "who has Clemson")
//   - Rewrite ownership-question variants to a canonical form
//     ("who's got" / "who owns" / "who is" → "who has")
//   - Expand team abbreviations and nicknames ("bama" → "alabama")
//   - Trim mascot suffixes from extracted team names
//   - Derive a stable cache signature for a query
//
// Every function here is pure and total. Normalize is idempotent:
// Normalize(Normalize(x)) == Normalize(x). Alias expansion runs before
// the phrase rewrites so "who has the u" resolves Miami before the
// article is dropped.

import (
	"regexp"
	"sort"
	"strings"
)

var (
	whitespaceRE    = regexp.MustCompile(`\s+`)
	trailingPunctRE = regexp.MustCompile(`[?.!]+$`)
	signatureRE     = regexp.MustCompile(`[^a-z0-9_]`)
)

// phraseRewrites maps question variants onto a canonical phrasing.
// Order matters: article forms are rewritten before their substrings.
var phraseRewrites = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bwho'?s got\b`), "who has"},
	{regexp.MustCompile(`\bwho'?s gotten\b`), "who has"},
	{regexp.MustCompile(`\bwho owns the\b`), "who has"},
	{regexp.MustCompile(`\bwho owns\b`), "who has"},
	{regexp.MustCompile(`\bwho is the\b`), "who has"},
	{regexp.MustCompile(`\bwho is\b`), "who has"},
	{regexp.MustCompile(`\bwho got the\b`), "who has"},
	{regexp.MustCompile(`\bwho got\b`), "who has"},
	{regexp.MustCompile(`\bwho has the\b`), "who has"},
	{regexp.MustCompile(`\bwhich user has\b`), "who has"},
	{regexp.MustCompile(`\bwhat user has\b`), "who has"},
}

// teamAliases expands common abbreviations and nicknames to the name
// used by the state store. Keys and values are already lower case.
// Multi-word canonical forms that contain an alias token ("texas a&m"
// contains "a&m") map to themselves so expansion has a fixed point.
var teamAliases = map[string]string{
	// College
	"bama":      "alabama",
	"uga":       "georgia",
	"osu":       "ohio state",
	"ou":        "oklahoma",
	"usc":       "usc",
	"tamu":      "texas a&m",
	"a&m":       "texas a&m",
	"texas a&m": "texas a&m",
	"lsu":       "lsu",
	"fsu":       "florida state",
	"uf":        "florida",
	"um":        "miami",
	"the u":     "miami",
	"nd":        "notre dame",
	"psu":       "penn state",
	"msu":       "michigan state",
	"vt":        "virginia tech",
	"gt":        "georgia tech",
	// NFL
	"niners":        "49ers",
	"bucs":          "buccaneers",
	"pats":          "patriots",
	"hawks":         "seahawks",
	"pack":          "packers",
	"fins":          "dolphins",
	"cards":         "cardinals",
	"skins":         "commanders",
	"football team": "commanders",
}

// teamSuffixes are mascot words trimmed from the end of extracted team
// names ("oregon ducks" → "oregon"). A name that is nothing but the
// suffix keeps it, since it may be the team itself ("packers").
var teamSuffixes = []string{
	"crimson tide",
	"ducks",
	"tigers",
	"buckeyes",
	"bulldogs",
	"longhorns",
	"bears",
	"wildcats",
	"trojans",
	"spartans",
	"packers",
	"cowboys",
	"patriots",
	"eagles",
	"giants",
}

type aliasEntry struct {
	alias     []string
	canonical []string
}

// aliasTable is teamAliases ordered longest alias first, so a canonical
// phrase wins over its own sub-tokens during the scan.
var aliasTable = buildAliasTable()

func buildAliasTable() []aliasEntry {
	table := make([]aliasEntry, 0, len(teamAliases))
	for alias, canonical := range teamAliases {
		table = append(table, aliasEntry{
			alias:     strings.Fields(alias),
			canonical: strings.Fields(canonical),
		})
	}
	sort.Slice(table, func(i, j int) bool {
		if len(table[i].alias) != len(table[j].alias) {
			return len(table[i].alias) > len(table[j].alias)
		}
		return strings.Join(table[i].alias, " ") < strings.Join(table[j].alias, " ")
	})
	return table
}

// Normalize canonicalizes a raw query: lower case, collapsed whitespace,
// no trailing punctuation, expanded team aliases, canonical phrasing.
func Normalize(raw string) string {
	q := strings.ToLower(strings.TrimSpace(raw))
	q = whitespaceRE.ReplaceAllString(q, " ")
	q = trailingPunctRE.ReplaceAllString(q, "")

	q = expandAliases(q)

	for _, rw := range phraseRewrites {
		q = rw.pattern.ReplaceAllString(q, rw.replacement)
	}

	return strings.TrimSpace(q)
}

// expandAliases walks the query left to right, emitting the canonical
// form of the longest alias at each position. Emitted words are never
// rescanned, so expansion is a fixed point: a canonical form passes
// through unchanged.
func expandAliases(q string) string {
	words := strings.Split(q, " ")
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		canonical, n := matchAliasAt(words, i)
		if n == 0 {
			out = append(out, words[i])
			i++
			continue
		}
		out = append(out, canonical...)
		i += n
	}
	return strings.Join(out, " ")
}

func matchAliasAt(words []string, i int) ([]string, int) {
	for _, e := range aliasTable {
		n := len(e.alias)
		if i+n > len(words) {
			continue
		}
		if wordsEqual(words[i:i+n], e.alias) {
			return e.canonical, n
		}
	}
	return nil, 0
}

func wordsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TrimTeamSuffix drops a trailing mascot suffix from an extracted team
// name: "oregon ducks" → "oregon", "alabama crimson tide" → "alabama".
// A single-word name, or one the suffix fully covers, is returned
// unchanged.
func TrimTeamSuffix(name string) string {
	words := strings.Fields(name)
	if len(words) < 2 {
		return name
	}
	for _, suffix := range teamSuffixes {
		sw := strings.Fields(suffix)
		if len(words) <= len(sw) {
			continue
		}
		if wordsEqual(words[len(words)-len(sw):], sw) {
			return strings.Join(words[:len(words)-len(sw)], " ")
		}
	}
	return name
}

// Signature derives the cache key form of a query. Queries that should
// resolve identically share a signature: Normalize folds the ownership
// verb variants onto "who has", words join with underscores, and
// anything outside [a-z0-9_] is dropped.
//
//	"who has Clemson?"  → "who_has_clemson"
//	"Who owns Clemson"  → "who_has_clemson"
//	"who is Clemson"    → "who_has_clemson"
func Signature(raw string) string {
	sig := whitespaceRE.ReplaceAllString(Normalize(raw), "_")
	return signatureRE.ReplaceAllString(sig, "")
}
