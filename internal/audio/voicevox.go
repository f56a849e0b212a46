package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/botcast/worker/internal/apperr"
)

// VoicevoxGenerator synthesizes via a local VOICEVOX engine's two-step
// HTTP API (audio_query then synthesis), grounded on original_source's
// voicevox_client.rs VoiceVox::query/synthesis.
type VoicevoxGenerator struct {
	Endpoint string
	Client   *http.Client
}

func NewVoicevoxGenerator(endpoint string, client *http.Client) *VoicevoxGenerator {
	if client == nil {
		client = http.DefaultClient
	}
	return &VoicevoxGenerator{Endpoint: endpoint, Client: client}
}

func (g *VoicevoxGenerator) Synthesize(ctx context.Context, seg Segment, outPath string) error {
	query, err := g.audioQuery(ctx, seg.Text, seg.SpeakerID)
	if err != nil {
		return apperr.Script("voicevox: audio_query", err)
	}
	wav, err := g.synthesis(ctx, query, seg.SpeakerID)
	if err != nil {
		return apperr.Script("voicevox: synthesis", err)
	}
	if err := os.WriteFile(outPath, wav, 0o644); err != nil {
		return apperr.Other("voicevox: write wav", err)
	}
	return nil
}

func (g *VoicevoxGenerator) audioQuery(ctx context.Context, text, speaker string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/audio_query?text=%s&speaker=%s", g.Endpoint, url.QueryEscape(text), speaker)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audio_query: %s: %s", resp.Status, body)
	}
	return json.RawMessage(body), nil
}

func (g *VoicevoxGenerator) synthesis(ctx context.Context, query json.RawMessage, speaker string) ([]byte, error) {
	u := fmt.Sprintf("%s/synthesis?speaker=%s", g.Endpoint, speaker)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis: %s: %s", resp.Status, body)
	}
	return body, nil
}
