package retrieval

import (
	"regexp"
	"strings"

	"github.com/dynastybot/dynasty-ai/internal/models"
)

// CommandPrefix is the bot's command-invocation prefix.
const CommandPrefix = "/"

// commandRE captures a command name plus optional subcommand, e.g.
// "/teams who-has" or "/help".
var commandRE = regexp.MustCompile(`^/([a-z][a-z0-9-]*)(?:\s+([a-z][a-z0-9-]*))?`)

// ExtractCommands finds the literal command strings in retrieved text.
// Purely lexical: lines beginning with the command prefix, after
// stripping markdown decoration. Duplicates are removed; first
// appearance order is preserved. Never run on model output.
func ExtractCommands(snippets []models.Snippet) []string {
	var commands []string
	seen := map[string]bool{}
	for _, s := range snippets {
		for _, line := range strings.Split(s.Text, "\n") {
			cmd, ok := commandOnLine(line)
			if !ok || seen[cmd] {
				continue
			}
			seen[cmd] = true
			commands = append(commands, cmd)
		}
	}
	return commands
}

// commandOnLine reports the command that starts the line, if any.
// Markdown list markers, heading markers, and backticks are stripped
// so "- `/teams assign`" still counts as a command line.
func commandOnLine(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimLeft(trimmed, "#->* ")
	trimmed = strings.Trim(trimmed, "`")
	if !strings.HasPrefix(trimmed, CommandPrefix) {
		return "", false
	}
	m := commandRE.FindStringSubmatch(trimmed)
	if m == nil {
		return "", false
	}
	cmd := CommandPrefix + m[1]
	if m[2] != "" {
		cmd += " " + m[2]
	}
	return cmd, true
}
