package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	vertexExpressDefaultModel = "gemini-2.5-flash-tts"
	vertexExpressEndpointBase = "https://aiplatform.googleapis.com/v1/publishers/google/models/"
)

// VertexExpressProvider implements Provider using the Vertex AI API in
// "express mode" — API key auth (like AI Studio) but via the
// aiplatform.googleapis.com endpoint, which may have higher quotas.
type VertexExpressProvider struct {
	voices     VoiceMap
	model      string
	apiKey     string
	httpClient *http.Client
}

func NewVertexExpressProvider(voice1, voice2, voice3 string, cfg ProviderConfig) (*VertexExpressProvider, error) {
	v1 := geminiDefaultVoice1
	v2 := geminiDefaultVoice2
	v3 := geminiDefaultVoice3
	if voice1 != "" {
		v1 = voice1
	}
	if voice2 != "" {
		v2 = voice2
	}
	if voice3 != "" {
		v3 = voice3
	}

	model := vertexExpressDefaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("VERTEX_AI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("VERTEX_AI_API_KEY environment variable is required for vertex-express TTS provider (Google Cloud API key, not AI Studio key)")
	}

	return &VertexExpressProvider{
		voices: VoiceMap{
			Host1: Voice{ID: v1, Name: v1},
			Host2: Voice{ID: v2, Name: v2},
			Host3: Voice{ID: v3, Name: v3},
		},
		model:  model,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 70 * time.Second,
				IdleConnTimeout:       10 * time.Second,
				DisableKeepAlives:     true,
			},
		},
	}, nil
}

func (p *VertexExpressProvider) Name() string { return "vertex-express" }

func (p *VertexExpressProvider) DefaultVoices() VoiceMap {
	return VoiceMap{
		Host1: Voice{ID: geminiDefaultVoice1, Name: "Charon"},
		Host2: Voice{ID: geminiDefaultVoice2, Name: "Leda"},
		Host3: Voice{ID: geminiDefaultVoice3, Name: "Fenrir"},
	}
}

func (p *VertexExpressProvider) endpoint() string {
	return vertexExpressEndpointBase + p.model + ":generateContent"
}

// Synthesize does single-speaker synthesis for one segment.
func (p *VertexExpressProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	req := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: text}}},
		},
		GenerationConfig: geminiGenConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: geminiSpeechConfig{
				VoiceConfig: &geminiVoiceConfig{
					PrebuiltVoiceConfig: geminiPrebuiltVoice{VoiceName: voice.ID},
				},
			},
		},
	}

	data, err := p.doRequest(ctx, req, p.httpClient)
	if err != nil {
		return AudioResult{}, err
	}

	return AudioResult{Data: data, Format: FormatPCM}, nil
}

func (p *VertexExpressProvider) doRequest(ctx context.Context, reqBody geminiRequest, client *http.Client) ([]byte, error) {
	log := slog.Default()

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal vertex-express request: %w", err)
	}

	url := p.endpoint() + "?key=" + p.apiKey

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	log.Debug("vertex-express request", "model", p.model, "request_bytes", len(bodyBytes), "timeout", client.Timeout)
	start := time.Now()

	res, err := client.Do(req)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		log.Warn("vertex-express http error", "elapsed", elapsed, "error", err)
		return nil, &RetryableError{StatusCode: 0, Body: fmt.Sprintf("network error after %s: %v", elapsed, err)}
	}
	defer res.Body.Close()

	log.Debug("vertex-express response", "status", res.StatusCode, "elapsed", elapsed)

	if res.StatusCode == http.StatusTooManyRequests ||
		res.StatusCode >= http.StatusInternalServerError {
		errBody, _ := io.ReadAll(res.Body)
		bodyStr := string(errBody)
		log.Warn("vertex-express retryable error", "status", res.StatusCode, "body", bodyStr[:min(200, len(bodyStr))])

		// On 429, check if this is a daily quota exhaustion (non-retryable)
		if res.StatusCode == http.StatusTooManyRequests {
			bodyLower := strings.ToLower(bodyStr)
			if strings.Contains(bodyLower, "resource_exhausted") &&
				(strings.Contains(bodyLower, "per day") || strings.Contains(bodyLower, "per_day") || strings.Contains(bodyLower, "rpd")) {
				log.Warn("vertex-express daily quota exhausted")
				return nil, fmt.Errorf("Vertex Express TTS daily quota exhausted (RPD limit). Try again tomorrow or switch to the gemini-vertex or elevenlabs URN resource")
			}
		}

		var retryAfter time.Duration
		if ra := res.Header.Get("Retry-After"); ra != "" {
			if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
				log.Warn("vertex-express rate limited", "retry_after", retryAfter)
			}
		}

		return nil, &RetryableError{
			StatusCode: res.StatusCode,
			Body:       bodyStr,
			RetryAfter: retryAfter,
		}
	}

	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(res.Body)
		bodyStr := string(errBody)
		log.Warn("vertex-express api error", "status", res.StatusCode, "body", bodyStr[:min(200, len(bodyStr))])
		return nil, fmt.Errorf("Vertex Express API error (status %d): %s", res.StatusCode, bodyStr)
	}

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read vertex-express response: %w", err)
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse vertex-express response: %w", err)
	}

	if len(resp.Candidates) == 0 ||
		len(resp.Candidates[0].Content.Parts) == 0 ||
		resp.Candidates[0].Content.Parts[0].InlineData == nil {
		return nil, &RetryableError{StatusCode: 200, Body: "vertex-express response contained no audio data"}
	}

	audioB64 := resp.Candidates[0].Content.Parts[0].InlineData.Data
	audioBytes, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return nil, fmt.Errorf("decode vertex-express audio base64: %w", err)
	}

	log.Debug("vertex-express audio decoded", "bytes", len(audioBytes), "elapsed", time.Since(start).Round(time.Millisecond))
	return audioBytes, nil
}

func (p *VertexExpressProvider) Close() error { return nil }

var _ Provider = (*VertexExpressProvider)(nil)
