package audio

import (
	"context"
	"sync"
)

// Segment is one unit of the audio pipeline's input: either a spoken
// sentence (Serif, after SplitSentences) or a pre-recorded slice
// (Audio), tagged with the URN resource that selects its Generator.
type Segment struct {
	Resource  string // urn resource: "voicevox", "elevenlabs", "audio", ...
	SpeakerID string // urn id, e.g. "3" for urn:voicevox:3
	Text      string // Serif text, empty for Audio segments
	SourceURL string // Audio segments only
	From, To  float64
}

// Generator synthesizes one Segment into a WAV file at outPath, unifying
// Section::Audio and Section::Serif behind a single capability selected
// by URN resource name, per SPEC_FULL.md §9's redesign decision.
type Generator interface {
	Synthesize(ctx context.Context, seg Segment, outPath string) error
}

// GeneratorSet is a mutex-guarded registry of Generators keyed by URN
// resource name. Several resource names (every tts-backed provider) may
// map to the same ProviderGenerator instance, which resolves the actual
// provider lazily per call via tts.Registry.
type GeneratorSet struct {
	mu         sync.Mutex
	generators map[string]Generator
}

func NewGeneratorSet() *GeneratorSet {
	return &GeneratorSet{generators: make(map[string]Generator)}
}

// Register installs a Generator for the given URN resource name. Called
// once per provider at wiring time; tts-backed resources all register
// the same ProviderGenerator instance, which defers actual construction
// to tts.Registry on first use.
func (gs *GeneratorSet) Register(resource string, g Generator) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.generators[resource] = g
}

func (gs *GeneratorSet) Get(resource string) (Generator, bool) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	g, ok := gs.generators[resource]
	return g, ok
}
