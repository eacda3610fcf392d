package record

import "strings"

const (
	shortTextMin = 50
	shortTextMax = 80
)

// ShortText derives the compact representation of a full memory text.
// It is called exactly once, at write time; the result is stored on the
// record and never regenerated, so the same memory always renders the
// same way in short form.
//
// The cut prefers a sentence boundary inside the 50-80 character target
// window, falls back to a word boundary, and marks word cuts with an
// ellipsis.
func ShortText(full string) string {
	full = strings.TrimSpace(full)
	runes := []rune(full)
	if len(runes) <= shortTextMax {
		return full
	}

	window := runes[:shortTextMax]

	// Prefer ending on a complete sentence. Boundaries are tracked in
	// runes so the 50 character minimum holds for multi-byte text too.
	best := -1
	for i := 1; i < len(window); i++ {
		if window[i] != ' ' {
			continue
		}
		switch window[i-1] {
		case '.', '!', '?':
			best = i
		}
	}
	if best >= shortTextMin {
		return strings.TrimSpace(string(window[:best]))
	}

	// Fall back to the last word boundary in the window.
	for i := len(window) - 1; i >= shortTextMin; i-- {
		if window[i] == ' ' {
			return strings.TrimSpace(string(window[:i])) + "..."
		}
	}

	return strings.TrimSpace(string(window)) + "..."
}
