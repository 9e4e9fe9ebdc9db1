package patterns

import (
	"strings"

	"github.com/dynastybot/dynasty-ai/internal/models"
)

// Intent classification is deliberately shallow: keyword tables, no
// model calls. It only has to be good enough to steer retrieval.

// stopWords are dropped during keyword extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"as": true, "is": true, "was": true, "are": true, "were": true,
	"what": true, "who": true, "when": true, "where": true, "how": true,
	"why": true, "did": true, "does": true, "do": true, "my": true,
	"i": true, "me": true, "can": true,
}

// topicKeywords maps content words to documentation topics. First hit
// in table order wins ties by specificity: multi-word phrases first.
var topicKeywords = []struct {
	topic string
	words []string
}{
	{"attributes", []string{"points", "spend", "upgrade", "attribute", "balance", "approve", "deny"}},
	{"matchups", []string{"matchup", "matchups", "schedule", "opponent", "week", "games"}},
	{"records", []string{"record", "wins", "losses", "standings", "win-loss"}},
	{"teams", []string{"team", "teams", "assign", "owns", "ownership"}},
	{"settings", []string{"settings", "configure", "setting", "league type"}},
}

// helpPhrases signal the user wants to learn a command rather than run
// one.
var helpPhrases = []string{
	"how do i", "how to", "how can i", "how does", "how do you",
	"what command", "what's the command", "what is the command",
	"command for", "help with", "help me", "tell me how",
}

// lookupPhrases signal the user wants current state.
var lookupPhrases = []string{
	"show me", "show my", "display", "get my", "check my",
	"what's my", "what is my", "tell me my", "who has", "list",
	"show all", "view all",
}

// DeriveIntent classifies a normalized query into topic, action, and
// search keywords.
func DeriveIntent(normalized string) models.Intent {
	return models.Intent{
		Topic:    deriveTopic(normalized),
		Action:   deriveAction(normalized),
		Keywords: ExtractKeywords(normalized),
	}
}

func deriveTopic(q string) string {
	for _, tk := range topicKeywords {
		for _, w := range tk.words {
			if containsWord(q, w) {
				return tk.topic
			}
		}
	}
	return ""
}

func deriveAction(q string) string {
	for _, p := range helpPhrases {
		if strings.Contains(q, p) {
			return "help"
		}
	}
	for _, p := range lookupPhrases {
		if strings.Contains(q, p) {
			return "lookup"
		}
	}
	return "conversation"
}

// ExtractKeywords returns the query's content words: stop words removed,
// short tokens dropped, appearance order preserved.
func ExtractKeywords(normalized string) []string {
	var keywords []string
	for _, w := range strings.Fields(normalized) {
		w = strings.Trim(w, "?!.,'\"")
		if len(w) <= 2 || stopWords[w] {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}

func containsWord(q, w string) bool {
	if strings.Contains(w, " ") {
		return strings.Contains(q, w)
	}
	for _, tok := range strings.Fields(q) {
		if strings.Trim(tok, "?!.,'\"") == w {
			return true
		}
	}
	return false
}
