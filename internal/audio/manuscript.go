package audio

import (
	"encoding/json"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/urn"
)

// Manuscript is the strict shape a Script must render to before the
// audio pipeline can consume it (SPEC_FULL.md §3 GLOSSARY).
type Manuscript struct {
	Title    string    `json:"title"`
	Sections []section `json:"sections"`
}

type section struct {
	Type    string  `json:"type"`
	Speaker string  `json:"speaker,omitempty"`
	Text    string  `json:"text,omitempty"`
	URL     string  `json:"url,omitempty"`
	From    float64 `json:"from,omitempty"`
	To      float64 `json:"to,omitempty"`
}

// DecodeManuscript parses a Script's result bytes into a Manuscript,
// returning a typed Script error (not a bare JSON error) when the shape
// doesn't match, since a malformed manuscript is a render-time failure
// from the caller's perspective.
func DecodeManuscript(result []byte) (*Manuscript, error) {
	var m Manuscript
	if err := json.Unmarshal(result, &m); err != nil {
		return nil, apperr.Script("decode manuscript", err)
	}
	// Empty sections is valid: the pipeline produces a zero-duration MP3
	// and an empty SRT rather than failing the task.
	return &m, nil
}

// BuildSegments expands a Manuscript into the ordered Segment list the
// Pipeline consumes: Serif sections are split into sentence-bucketed
// sub-segments sharing their speaker's URN resource/id; Audio sections
// pass through as a single slice-extraction segment.
func BuildSegments(m *Manuscript) ([]Segment, error) {
	var segments []Segment
	for _, s := range m.Sections {
		switch s.Type {
		case "serif":
			resource, id, err := urn.Parse(s.Speaker)
			if err != nil {
				return nil, err
			}
			for _, sentence := range SplitSentences(s.Text) {
				segments = append(segments, Segment{
					Resource:  resource,
					SpeakerID: id,
					Text:      sentence,
				})
			}
		case "audio":
			segments = append(segments, Segment{
				Resource:  "audio",
				SourceURL: s.URL,
				From:      s.From,
				To:        s.To,
			})
		default:
			return nil, apperr.InvalidInput("manuscript: unknown section type %q", s.Type)
		}
	}
	return segments, nil
}
