package models

// Package models defines core data types shared across the query
// resolution pipeline.
//
// These types are transient: an Intent, the Snippets retrieved for it,
// and the commands extracted from them live for a single resolution and
// are never stored.

// Intent describes what a query is asking for, derived once per query
// and consumed by retrieval and synthesis.
type Intent struct {
	// Topic is the broad subject: "teams", "attributes", "matchups",
	// "records", "settings", or "" when nothing matched.
	Topic string

	// Action distinguishes learning from doing: "help" (how do I...),
	// "lookup" (show me...), or "conversation".
	Action string

	// Keywords are the query's content words, stop words removed,
	// in order of appearance.
	Keywords []string
}

// Snippet is one retrieved paragraph of documentation.
type Snippet struct {
	// Text is the paragraph verbatim, never truncated mid-paragraph.
	Text string

	// Score is the relevance score that selected this paragraph.
	Score float64

	// SourceSection names the markdown section the paragraph came from.
	SourceSection string
}

// TotalLen returns the combined character length of a snippet list.
func TotalLen(snippets []Snippet) int {
	n := 0
	for _, s := range snippets {
		n += len(s.Text)
	}
	return n
}
