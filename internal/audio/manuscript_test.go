package audio

import "testing"

func TestDecodeManuscriptAcceptsEmptySections(t *testing.T) {
	m, err := DecodeManuscript([]byte(`{"title": "x", "sections": []}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	segs, err := BuildSegments(m)
	if err != nil {
		t.Fatalf("build segments: %v", err)
	}
	if len(segs) != 0 {
		t.Fatalf("expected zero segments, got %d: %+v", len(segs), segs)
	}
}

func TestBuildSegmentsSplitsSerifIntoSentences(t *testing.T) {
	m, err := DecodeManuscript([]byte(`{
		"title": "ep1",
		"sections": [
			{"type": "serif", "speaker": "urn:voicevox:3", "text": "こんにちは。さようなら"}
		]
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	segs, err := BuildSegments(m)
	if err != nil {
		t.Fatalf("build segments: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segs), segs)
	}
	for _, s := range segs {
		if s.Resource != "voicevox" || s.SpeakerID != "3" {
			t.Errorf("unexpected segment resource/speaker: %+v", s)
		}
	}
	if segs[0].Text != "こんにちは" || segs[1].Text != "さようなら" {
		t.Fatalf("unexpected segment text: %+v", segs)
	}
}

func TestBuildSegmentsPassesThroughAudioSection(t *testing.T) {
	m, err := DecodeManuscript([]byte(`{
		"title": "ep1",
		"sections": [
			{"type": "audio", "url": "https://example.com/clip.mp3", "from": 1.5, "to": 3.0}
		]
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	segs, err := BuildSegments(m)
	if err != nil {
		t.Fatalf("build segments: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	s := segs[0]
	if s.Resource != "audio" || s.SourceURL != "https://example.com/clip.mp3" || s.From != 1.5 || s.To != 3.0 {
		t.Fatalf("unexpected audio segment: %+v", s)
	}
}

func TestBuildSegmentsRejectsUnknownSectionType(t *testing.T) {
	m, err := DecodeManuscript([]byte(`{"title": "x", "sections": [{"type": "unknown"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := BuildSegments(m); err == nil {
		t.Fatal("expected error for unknown section type")
	}
}
