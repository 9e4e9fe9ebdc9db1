package patterns

import (
	"reflect"
	"testing"

	"github.com/dynastybot/dynasty-ai/internal/normalize"
)

func TestDeriveIntentTopics(t *testing.T) {
	tests := []struct {
		query string
		topic string
	}{
		{"how do i spend my points", "attributes"},
		{"show matchups for week 3", "matchups"},
		{"what's my record", "records"},
		{"how do i assign a team", "teams"},
		{"how do i configure settings", "settings"},
		{"hello there", ""},
	}
	for _, tt := range tests {
		got := DeriveIntent(normalize.Normalize(tt.query))
		if got.Topic != tt.topic {
			t.Errorf("Topic(%q) = %q, want %q", tt.query, got.Topic, tt.topic)
		}
	}
}

func TestDeriveIntentActions(t *testing.T) {
	tests := []struct {
		query  string
		action string
	}{
		{"how do i spend my points", "help"},
		{"show me my matchups", "lookup"},
		{"who has Clemson", "lookup"},
		{"nice win last night", "conversation"},
	}
	for _, tt := range tests {
		got := DeriveIntent(normalize.Normalize(tt.query))
		if got.Action != tt.action {
			t.Errorf("Action(%q) = %q, want %q", tt.query, got.Action, tt.action)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords(normalize.Normalize("How do I spend my attribute points?"))
	want := []string{"spend", "attribute", "points"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("keywords = %v, want %v", got, want)
	}
}

func TestExtractKeywordsDropsShortTokens(t *testing.T) {
	for _, kw := range ExtractKeywords("is it ok to go") {
		if len(kw) <= 2 {
			t.Errorf("short token %q survived extraction", kw)
		}
	}
}
