package tmux

import (
	"regexp"
	"strings"
	"unicode/utf8"

	// Packages
	relay "github.com/mutablelogic/go-relay"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// uiPattern recognises an interactive prompt by the first and last lines
// of its text
type uiPattern struct {
	name   string
	top    []*regexp.Regexp
	bottom []*regexp.Regexp
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	// Characters drawn in front of the status line while the assistant works
	spinners = "·✢✳✶✻✽*"

	// Minimum width of the horizontal rule around the input box
	minSeparator = 20

	// Number of input box rules inspected from the bottom of the pane
	maxSeparators = 3
)

var patterns = []uiPattern{
	{
		name: "ExitPlanMode",
		top: []*regexp.Regexp{
			regexp.MustCompile(`^\s*Would you like to proceed\?`),
			regexp.MustCompile(`^\s*Claude has written up a plan`),
		},
		bottom: []*regexp.Regexp{
			regexp.MustCompile(`ctrl-g to edit`),
			regexp.MustCompile(`Esc to (cancel|exit)`),
		},
	},
	{
		name: "AskUserQuestion",
		top: []*regexp.Regexp{
			regexp.MustCompile(`^\s*←\s+[☐✔☒]`),
			regexp.MustCompile(`^\s*[☐✔☒]\s+\S`),
		},
		bottom: []*regexp.Regexp{
			regexp.MustCompile(`Enter to select`),
			regexp.MustCompile(`Esc to cancel`),
		},
	},
	{
		name: "PermissionPrompt",
		top: []*regexp.Regexp{
			regexp.MustCompile(`^\s*Do you want to (proceed|make this edit|create|allow|overwrite)`),
		},
		bottom: []*regexp.Regexp{
			regexp.MustCompile(`Esc to cancel`),
		},
	},
	{
		name: "RestoreCheckpoint",
		top: []*regexp.Regexp{
			regexp.MustCompile(`^\s*Restore the code`),
			regexp.MustCompile(`^\s*Rewind`),
		},
		bottom: []*regexp.Regexp{
			regexp.MustCompile(`Enter to continue`),
			regexp.MustCompile(`Esc to cancel`),
		},
	},
	{
		name: "Settings",
		top: []*regexp.Regexp{
			regexp.MustCompile(`^\s*Settings:`),
		},
		bottom: []*regexp.Regexp{
			regexp.MustCompile(`Esc to (cancel|exit)`),
		},
	},
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// ParseStatusLine returns the text of the spinner line drawn just above the
// input box, without the spinner. It returns an empty string when there is
// no such line.
func ParseStatusLine(pane string) string {
	lines := strings.Split(pane, "\n")
	found := 0
	for i := len(lines) - 1; i >= 0 && found < maxSeparators; i-- {
		if !isSeparator(lines[i]) {
			continue
		}
		found++
		if status := statusAbove(lines, i); status != "" {
			return status
		}
	}
	return ""
}

// ExtractInteractiveUI returns the most recent interactive prompt in the
// pane: the lines from a recognised first line down to its closing hint.
// Returns nil when no complete prompt is visible.
func ExtractInteractiveUI(pane string) *relay.InteractiveUI {
	lines := strings.Split(pane, "\n")

	var result *relay.InteractiveUI
	best := -1
	for _, p := range patterns {
		top, bottom := p.find(lines)
		if top < 0 || top <= best {
			continue
		}
		if text := block(lines[top : bottom+1]); text != "" {
			result = &relay.InteractiveUI{Name: p.name, Text: text}
			best = top
		}
	}
	return result
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// find returns the last line matching a top expression and the first
// following line matching a bottom expression, or -1 when either is missing
func (p uiPattern) find(lines []string) (int, int) {
	for top := len(lines) - 1; top >= 0; top-- {
		if !matchAny(p.top, lines[top]) {
			continue
		}
		for bottom := top + 1; bottom < len(lines); bottom++ {
			if matchAny(p.bottom, lines[bottom]) {
				return top, bottom
			}
		}
	}
	return -1, -1
}

func matchAny(exprs []*regexp.Regexp, line string) bool {
	for _, expr := range exprs {
		if expr.MatchString(line) {
			return true
		}
	}
	return false
}

// block joins lines with trailing spaces removed, dropping blank lines at
// either end
func block(lines []string) string {
	trimmed := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed = append(trimmed, strings.TrimRight(line, " \t\r"))
	}
	return strings.Trim(strings.Join(trimmed, "\n"), "\n")
}

func isSeparator(line string) bool {
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) < minSeparator {
		return false
	}
	for _, r := range line {
		if r != '─' {
			return false
		}
	}
	return true
}

// statusAbove returns the status text on the nearest non-blank line above
// line i, if it starts with a spinner
func statusAbove(lines []string, i int) string {
	for j := i - 1; j >= 0; j-- {
		line := strings.TrimSpace(lines[j])
		if line == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(line)
		if !strings.ContainsRune(spinners, r) {
			return ""
		}
		return strings.TrimSpace(line[size:])
	}
	return ""
}
