package audio

import (
	"fmt"
	"strings"
)

// cue is one SRT subtitle entry.
type cue struct {
	Index      int
	Start, End float64
	Text       string
}

// BuildSRT lays out sequential cues from each segment's duration and
// text, start = Σ(prior durations), end = start + duration(i), per
// SPEC_FULL.md §4.G step 4.
func BuildSRT(texts []string, durations []float64) string {
	var cues []cue
	t := 0.0
	for i, text := range texts {
		d := durations[i]
		cues = append(cues, cue{Index: i + 1, Start: t, End: t + d, Text: text})
		t += d
	}

	var b strings.Builder
	for _, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", c.Index, formatTimestamp(c.Start), formatTimestamp(c.End), c.Text)
	}
	return b.String()
}

// formatTimestamp renders seconds as SRT's HH:MM:SS,mmm.
func formatTimestamp(seconds float64) string {
	total := int64(seconds * 1000)
	ms := total % 1000
	total /= 1000
	s := total % 60
	total /= 60
	m := total % 60
	h := total / 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
