package urn

import "testing"

func TestParseFormatRoundTrip(t *testing.T) {
	cases := []string{"urn:podcast:abc-123", "urn:voicevox:3", "urn:script:xyz"}
	for _, u := range cases {
		resource, id, err := Parse(u)
		if err != nil {
			t.Fatalf("Parse(%q): %v", u, err)
		}
		if got := Format(resource, id); got != u {
			t.Fatalf("Format(Parse(%q)) = %q, want %q", u, got, u)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	bad := []string{"podcast:abc", "urn::abc", "urn:podcast:", "urn:podcast"}
	for _, u := range bad {
		if _, _, err := Parse(u); err == nil {
			t.Fatalf("Parse(%q) should have failed", u)
		}
	}
}
