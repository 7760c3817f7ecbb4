package queue

import (
	"strings"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Separator between merged content fragments
const mergeSeparator = "\n\n"

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// canMerge returns true if candidate may be folded into the content task base
func canMerge(base, candidate Task) bool {
	switch {
	case candidate.Kind != KindContent:
		return false
	case base.WindowID != candidate.WindowID:
		return false
	case base.Key.ThreadID != candidate.Key.ThreadID:
		return false
	case base.HasAck() || candidate.HasAck():
		// Each acknowledged task keeps its own side effects
		return false
	case base.ContentType.isTool() || candidate.ContentType.isTool():
		// Tool calls keep their own message for the send/edit protocol
		return false
	}
	return true
}

// mergeContent folds the run of mergeable content tasks waiting at the head
// of the queue into base, up to budget characters. It returns the merged
// task and the number of tasks absorbed.
func (q *Queue) mergeContent(base Task, budget int) (Task, int) {
	total := base.length()
	absorbed := q.takeWhile(func(candidate Task) bool {
		if !canMerge(base, candidate) {
			return false
		}
		n := candidate.length()
		if total+n > budget {
			return false
		}
		total += n
		return true
	})
	if len(absorbed) == 0 {
		return base, 0
	}

	// Concatenate parts in order
	parts := make([]string, 0, len(base.Parts)+len(absorbed))
	raw := make([]string, 0, len(absorbed)+1)
	parts = append(parts, base.Parts...)
	raw = append(raw, rawText(base))
	for _, t := range absorbed {
		parts = append(parts, t.Parts...)
		raw = append(raw, rawText(t))
	}

	merged := base
	merged.Parts = parts
	merged.Text = strings.Join(raw, mergeSeparator)
	merged.Images = nil
	for _, t := range append([]Task{base}, absorbed...) {
		merged.Images = append(merged.Images, t.Images...)
	}
	return merged, len(absorbed)
}

// rawText returns the unrendered text of a content task
func rawText(t Task) string {
	if t.Text != "" {
		return t.Text
	}
	return strings.Join(t.Parts, mergeSeparator)
}
