package render

import (
	"strings"
	"unicode/utf8"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Maximum number of characters in one chat message
const MaxMessageLength = 4096

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Split breaks Markdown into chunks of at most limit characters, splitting
// between lines where possible. A fenced code block which is split is closed
// at the end of one chunk and reopened at the start of the next. A limit of
// zero or less uses MaxMessageLength.
func Split(markdown string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	if utf8.RuneCountInString(markdown) <= limit {
		return []string{markdown}
	}

	var chunks []string
	var current strings.Builder
	size := 0
	fence := "" // opening fence of the code block the current line is in

	flush := func(reopen bool) {
		chunk := strings.TrimRight(current.String(), "\n")
		if fence != "" {
			chunk += "\n```"
		}
		chunks = append(chunks, chunk)
		current.Reset()
		size = 0
		if fence != "" && reopen {
			current.WriteString(fence + "\n")
			size = utf8.RuneCountInString(fence) + 1
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		n := utf8.RuneCountInString(line)
		trimmed := strings.TrimSpace(line)
		isFence := strings.HasPrefix(trimmed, "```")
		switch {
		case isFence && fence != "" && size+n+1 > limit:
			// The flushed chunk is already closed
			flush(false)
			fence = ""
			continue
		case n > limit:
			// Hard split a line which cannot fit in any chunk
			if size > 0 {
				flush(true)
			}
			runes := []rune(line)
			for i := 0; i < len(runes); i += limit {
				chunks = append(chunks, string(runes[i:min(i+limit, len(runes))]))
			}
		case size+n+1 > limit:
			flush(true)
			fallthrough
		default:
			current.WriteString(line + "\n")
			size += n + 1
		}

		// Track the code block after the line is placed
		if isFence {
			if fence == "" {
				fence = trimmed
			} else {
				fence = ""
			}
		}
	}
	if size > 0 {
		chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
	}
	return chunks
}
