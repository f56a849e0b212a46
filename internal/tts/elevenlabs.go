package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const (
	elevenLabsDefaultVoice1 = "JBFqnCBsd6RMkjVDRZzb" // George
	elevenLabsDefaultVoice2 = "EXAVITQu4vr4xnSDxMaL" // Sarah
	elevenLabsDefaultVoice3 = "onwK4e9ZLuTAKqWW03F9" // Daniel

	elevenLabsAPIBase     = "https://api.elevenlabs.io/v1/text-to-speech"
	elevenLabsDefaultModel = "eleven_multilingual_v2"
	elevenLabsOutputFormat = "mp3_44100_128"
)

type ttsRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

// ElevenLabsProvider implements Provider using the ElevenLabs
// text-to-speech REST API, one segment per request.
type ElevenLabsProvider struct {
	voices     VoiceMap
	apiKey     string
	model      string
	stability  float64
	httpClient *http.Client
}

func NewElevenLabsProvider(voice1, voice2, voice3 string, cfg ProviderConfig) *ElevenLabsProvider {
	v1, v2, v3 := elevenLabsDefaultVoice1, elevenLabsDefaultVoice2, elevenLabsDefaultVoice3
	if voice1 != "" {
		v1 = voice1
	}
	if voice2 != "" {
		v2 = voice2
	}
	if voice3 != "" {
		v3 = voice3
	}

	model := elevenLabsDefaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}
	stability := 0.5
	if cfg.Stability != 0 {
		stability = cfg.Stability
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ELEVENLABS_API_KEY")
	}

	return &ElevenLabsProvider{
		voices: VoiceMap{
			Host1: Voice{ID: v1, Name: "George"},
			Host2: Voice{ID: v2, Name: "Sarah"},
			Host3: Voice{ID: v3, Name: "Daniel"},
		},
		apiKey:     apiKey,
		model:      model,
		stability:  stability,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

func (p *ElevenLabsProvider) DefaultVoices() VoiceMap {
	return VoiceMap{
		Host1: Voice{ID: elevenLabsDefaultVoice1, Name: "George"},
		Host2: Voice{ID: elevenLabsDefaultVoice2, Name: "Sarah"},
		Host3: Voice{ID: elevenLabsDefaultVoice3, Name: "Daniel"},
	}
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	reqBody := ttsRequest{
		Text:    text,
		ModelID: p.model,
		VoiceSettings: &voiceSettings{
			Stability:       p.stability,
			SimilarityBoost: 0.75,
			UseSpeakerBoost: true,
			Speed:           1.0,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return AudioResult{}, fmt.Errorf("marshal elevenlabs request: %w", err)
	}

	url := fmt.Sprintf("%s/%s?output_format=%s", elevenLabsAPIBase, voice.ID, elevenLabsOutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return AudioResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := p.httpClient.Do(req)
	if err != nil {
		return AudioResult{}, fmt.Errorf("send elevenlabs request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError {
		errBody, _ := io.ReadAll(res.Body)
		return AudioResult{}, &RetryableError{StatusCode: res.StatusCode, Body: string(errBody)}
	}
	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(res.Body)
		return AudioResult{}, fmt.Errorf("elevenlabs API error (status %d): %s", res.StatusCode, errBody)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return AudioResult{}, fmt.Errorf("read elevenlabs response: %w", err)
	}

	slog.Default().Debug("elevenlabs tts synthesize", "chars", len(text), "bytes", len(data), "elapsed", time.Since(start).Round(time.Millisecond))
	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *ElevenLabsProvider) Close() error { return nil }
