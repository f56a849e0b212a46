package tts

import (
	"context"
	"fmt"
	"sync"
)

// Registry lazily constructs and pools tts.Provider instances keyed by URN
// resource name ("elevenlabs", "google", "gemini", "gemini-vertex",
// "vertex-express", "polly"), so the audio pipeline's per-segment URN
// dispatch (SPEC_FULL.md §9's redesign decision) is resolved inside the
// provider layer instead of a lookup table the caller has to maintain.
type Registry struct {
	mu        sync.Mutex
	providers map[string]Provider
	configs   map[string]ProviderConfig
}

// NewRegistry creates an empty provider pool.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		configs:   make(map[string]ProviderConfig),
	}
}

// Configure stores a ProviderConfig for a URN resource, consulted the next
// time that resource's provider is constructed. Calling it after the
// provider already exists has no effect.
func (r *Registry) Configure(resource string, cfg ProviderConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[resource] = cfg
}

func (r *Registry) provider(resource string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[resource]; ok {
		return p, nil
	}

	p, err := newProviderForResource(resource, r.configs[resource])
	if err != nil {
		return nil, err
	}
	r.providers[resource] = p
	return p, nil
}

// Synthesize resolves the Provider registered for a URN resource, builds
// the per-segment Voice from speakerID, and retries the call with
// WithRetry's backoff policy. This is the single entry point
// internal/audio's ProviderGenerator calls per segment.
func (r *Registry) Synthesize(ctx context.Context, resource, speakerID, text string) (AudioResult, error) {
	p, err := r.provider(resource)
	if err != nil {
		return AudioResult{}, err
	}

	voice := Voice{ID: speakerID, Provider: p.Name()}
	var result AudioResult
	err = WithRetry(ctx, func() error {
		var err error
		result, err = p.Synthesize(ctx, text, voice)
		return err
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("%s: synthesize: %w", p.Name(), err)
	}
	return result, nil
}

// Close closes every provider this Registry has constructed so far.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, p := range r.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.providers = make(map[string]Provider)
	return firstErr
}

// newProviderForResource constructs a fresh Provider for a URN resource
// name using that provider's package-default voices; per-segment voice
// selection happens later via Voice.ID, not at construction time.
func newProviderForResource(resource string, cfg ProviderConfig) (Provider, error) {
	switch resource {
	case "elevenlabs":
		return NewElevenLabsProvider("", "", "", cfg), nil
	case "google":
		return NewGoogleProvider("", "", "", cfg)
	case "gemini":
		return NewGeminiProvider("", "", "", cfg), nil
	case "gemini-vertex":
		return NewVertexProvider("", "", "", cfg)
	case "vertex-express":
		return NewVertexExpressProvider("", "", "", cfg)
	case "polly":
		return NewPollyProvider("", "", "", cfg)
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", resource)
	}
}
