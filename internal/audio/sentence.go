package audio

import "strings"

const maxSentenceBytes = 100

// SplitSentences pre-splits a Serif's text by newline and the Japanese
// full stop into individual sentences, grounded on original_source's
// synthesis.rs Synthesis::run (`self.text.split('。')`) generalized to
// also split on newline, drop blank/link-only lines, and pack the
// result into byte-bounded buckets per SPEC_FULL.md §4.G step 1.
func SplitSentences(text string) []string {
	var raw []string
	for _, line := range strings.Split(text, "\n") {
		for _, s := range strings.Split(line, "。") {
			raw = append(raw, strings.TrimSpace(s))
		}
	}

	var sentences []string
	for _, s := range raw {
		if s == "" || strings.HasPrefix(s, "http") {
			continue
		}
		sentences = append(sentences, s)
	}

	return packBuckets(sentences, maxSentenceBytes)
}

// packBuckets caps every bucket at maxBytes by splitting any individual
// sentence that exceeds the limit on its own; sentences already within
// the limit pass through one-per-bucket so each retains its own WAV and
// SRT cue (SPEC_FULL.md §8 scenario 4: two short sentences yield two
// cues, not one merged cue).
func packBuckets(sentences []string, maxBytes int) []string {
	var buckets []string
	for _, s := range sentences {
		if len(s) <= maxBytes {
			buckets = append(buckets, s)
			continue
		}
		for len(s) > 0 {
			cut := maxBytes
			if cut > len(s) {
				cut = len(s)
			}
			for cut > 0 && !isRuneBoundary(s, cut) {
				cut--
			}
			if cut == 0 {
				cut = len(s)
			}
			buckets = append(buckets, s[:cut])
			s = s[cut:]
		}
	}
	return buckets
}

func isRuneBoundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}
	return s[i]&0xC0 != 0x80
}
