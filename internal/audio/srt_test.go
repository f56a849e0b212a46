package audio

import (
	"strings"
	"testing"
)

func TestBuildSRTMonotonicNonOverlappingCues(t *testing.T) {
	srt := BuildSRT([]string{"こんにちは", "さようなら"}, []float64{1.2, 0.8})

	if !strings.Contains(srt, "1\n00:00:00,000 --> 00:00:01,200\nこんにちは\n") {
		t.Fatalf("missing or malformed cue 1:\n%s", srt)
	}
	if !strings.Contains(srt, "2\n00:00:01,200 --> 00:00:02,000\nさようなら\n") {
		t.Fatalf("missing or malformed cue 2:\n%s", srt)
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := map[float64]string{
		0:        "00:00:00,000",
		1.5:      "00:00:01,500",
		61.001:   "00:01:01,001",
		3661.999: "01:01:01,999",
	}
	for in, want := range cases {
		if got := formatTimestamp(in); got != want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildSRTEmptyInput(t *testing.T) {
	if got := BuildSRT(nil, nil); got != "" {
		t.Fatalf("expected empty SRT for no segments, got %q", got)
	}
}
