package retrieval

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Loader supplies the documentation corpus. The corpus is read once per
// process lifetime and treated as immutable for the duration of every
// resolution.
type Loader interface {
	LoadCorpus() (string, error)
}

// FileLoader reads the corpus from a markdown file on first use.
type FileLoader struct {
	Path string

	once sync.Once
	text string
	err  error
}

// LoadCorpus reads the file exactly once; later calls return the cached
// content.
func (l *FileLoader) LoadCorpus() (string, error) {
	l.once.Do(func() {
		data, err := os.ReadFile(l.Path)
		if err != nil {
			l.err = fmt.Errorf("loading corpus %s: %w", l.Path, err)
			return
		}
		l.text = string(data)
	})
	return l.text, l.err
}

// StaticLoader serves a fixed string. Used in tests and as a fallback
// when no corpus file is configured.
type StaticLoader string

func (l StaticLoader) LoadCorpus() (string, error) { return string(l), nil }

// paragraph is one corpus block with its section attribution.
type paragraph struct {
	text       string
	section    string
	isHeader   bool
	hasCommand bool
}

// splitParagraphs breaks markdown into blank-line-separated blocks,
// tracking the nearest enclosing ## / ### header as the section name.
func splitParagraphs(corpus string) []paragraph {
	var paras []paragraph
	section := ""
	for _, block := range strings.Split(corpus, "\n\n") {
		block = strings.TrimRight(block, "\n")
		trimmed := strings.TrimSpace(block)
		if trimmed == "" {
			continue
		}
		isHeader := false
		// A block that begins with a header names the section for
		// itself and everything after it.
		if strings.HasPrefix(trimmed, "#") {
			first := strings.SplitN(trimmed, "\n", 2)[0]
			section = strings.TrimSpace(strings.TrimLeft(first, "#"))
			isHeader = true
		}
		paras = append(paras, paragraph{
			text:       block,
			section:    section,
			isHeader:   isHeader,
			hasCommand: containsCommandLine(block),
		})
	}
	return paras
}

func containsCommandLine(block string) bool {
	for _, line := range strings.Split(block, "\n") {
		if _, ok := commandOnLine(line); ok {
			return true
		}
	}
	return false
}
