package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// AudioFormat represents the audio encoding returned by a provider.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
	FormatPCM AudioFormat = "pcm" // raw PCM (needs FFmpeg conversion)
	FormatWAV AudioFormat = "wav"
)

// Voice holds a provider-specific voice identifier, resolved per segment
// from the URN speaker id rather than a fixed three-host slot.
type Voice struct {
	ID       string // Provider-specific voice identifier
	Name     string // Human-readable label
	Provider string // "elevenlabs", "gemini", "google", ...
}

// VoiceMap holds a provider's package-default voices, used only to seed
// DefaultVoices(); per-request voice selection is by URN speaker id.
type VoiceMap struct {
	Host1 Voice
	Host2 Voice
	Host3 Voice
}

// AudioResult is the output of a synthesis call.
type AudioResult struct {
	Data   []byte
	Format AudioFormat
}

// Provider synthesizes speech from a single text segment. Every provider
// in this package is reachable from internal/audio's pipeline by URN
// resource name via Registry.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error)
	DefaultVoices() VoiceMap
	Close() error
}

// Retry constants shared by all providers.
const (
	defaultMaxAttempts    = 5
	defaultInitialBackoff = 2 * time.Second
	defaultBackoffMulti   = 2
	defaultMaxBackoff     = 30 * time.Second
)

// RetryableError signals that the operation can be retried.
type RetryableError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration // Parsed from Retry-After header (0 = not set)
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// isRetryable checks if an error should be retried.
// Retryable: RetryableError (429/5xx), timeout errors, deadline exceeded
// (but only if the parent context is still valid — a cancelled parent means shutdown).
func isRetryable(ctx context.Context, err error) bool {
	if _, ok := err.(*RetryableError); ok {
		return true
	}
	// Retry on timeout/deadline errors only if the parent context is still alive.
	// This handles per-segment context timeouts without retrying on shutdown.
	if ctx.Err() == nil && (os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded)) {
		return true
	}
	return false
}

// WithRetry executes fn with exponential backoff on retryable errors.
// When the error includes a Retry-After duration (from HTTP headers),
// the wait time is max(retryAfter, backoff) to respect server guidance.
func WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= defaultMaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else if !isRetryable(ctx, err) {
			return err
		} else {
			lastErr = err
		}

		if attempt < defaultMaxAttempts {
			wait := backoff
			if re, ok := lastErr.(*RetryableError); ok && re.RetryAfter > 0 {
				if re.RetryAfter > wait {
					wait = re.RetryAfter
				}
				slog.Default().Warn("tts retry after rate limit", "retry_after", re.RetryAfter, "wait", wait, "attempt", attempt, "max_attempts", defaultMaxAttempts)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			backoff *= time.Duration(defaultBackoffMulti)
			if backoff > defaultMaxBackoff {
				backoff = defaultMaxBackoff
			}
		}
	}

	return lastErr
}

// ProviderConfig holds model and voice settings passed to provider constructors.
type ProviderConfig struct {
	Model     string  // provider-specific model ID (empty = default)
	Speed     float64 // speech speed (0 = provider default)
	Stability float64 // ElevenLabs voice stability 0-1 (0 = default 0.5)
	Pitch     float64 // Google Cloud pitch in semitones (0 = default)
	APIKey    string  // per-request API key override (empty = use env var)
}
