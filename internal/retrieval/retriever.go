package retrieval

// Package retrieval selects the literal documentation text that grounds
// answer generation.
//
// Responsibilities:
//   - Load the command guide corpus once per process
//   - Score corpus paragraphs against a query's keywords
//   - Assemble the top-scoring paragraphs into a fixed character budget
//   - Extract literal command strings from the selected text
//
// Search is a pure function over (intent, corpus). An empty result is a
// normal outcome, not an error: it tells the synthesizer to answer
// "no information found" without calling the model.

import (
	"sort"
	"strings"

	"github.com/dynastybot/dynasty-ai/internal/models"
)

// DefaultCharBudget bounds the total text handed to generation.
const DefaultCharBudget = 1500

// Scoring weights. Keyword hits dominate; command blocks and headers
// get a flat boost because they are the most quotable content.
const (
	keywordWeight = 1.0
	commandBoost  = 2.0
	headerBoost   = 1.0
	topicBoost    = 1.5
)

// Retriever searches a parsed corpus.
type Retriever struct {
	paragraphs []paragraph
	budget     int
}

// NewRetriever parses the corpus from the loader. The budget caps the
// combined character length of returned snippets; non-positive values
// use the default.
func NewRetriever(loader Loader, budget int) (*Retriever, error) {
	corpus, err := loader.LoadCorpus()
	if err != nil {
		return nil, err
	}
	if budget <= 0 {
		budget = DefaultCharBudget
	}
	return &Retriever{
		paragraphs: splitParagraphs(corpus),
		budget:     budget,
	}, nil
}

// Search returns the highest-scoring paragraphs for the intent, ordered
// by descending relevance, truncated to the character budget without
// splitting any paragraph. Nothing above zero scores an empty slice.
func (r *Retriever) Search(intent models.Intent) []models.Snippet {
	type scored struct {
		idx   int
		score float64
	}
	var candidates []scored
	for i, p := range r.paragraphs {
		s := scoreParagraph(p, intent)
		if s > 0 {
			candidates = append(candidates, scored{idx: i, score: s})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	// Stable sort keeps corpus order for equal scores, so results are
	// deterministic.
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	var snippets []models.Snippet
	used := 0
	for _, c := range candidates {
		p := r.paragraphs[c.idx]
		if used+len(p.text) > r.budget {
			continue
		}
		used += len(p.text)
		snippets = append(snippets, models.Snippet{
			Text:          p.text,
			Score:         c.score,
			SourceSection: p.section,
		})
	}
	return snippets
}

// scoreParagraph counts weighted keyword occurrences and applies the
// structural boosts.
func scoreParagraph(p paragraph, intent models.Intent) float64 {
	lower := strings.ToLower(p.text)

	score := 0.0
	for _, kw := range intent.Keywords {
		score += keywordWeight * float64(strings.Count(lower, kw))
	}
	if score == 0 {
		// Structural boosts never select a paragraph on their own.
		return 0
	}
	if p.hasCommand {
		score += commandBoost
	}
	if p.isHeader {
		score += headerBoost
	}
	if intent.Topic != "" && strings.Contains(strings.ToLower(p.section), intent.Topic) {
		score += topicBoost
	}
	return score
}
