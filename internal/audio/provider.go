package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/tts"
)

// ProviderGenerator is the single Generator registered under every
// tts-backed URN resource name (elevenlabs, google, gemini, gemini-vertex,
// vertex-express, polly): it delegates construction, retry, and voice
// selection to a shared tts.Registry keyed by Segment.Resource, so the
// URN-to-provider dispatch the teacher's CLI used to do with flags lives
// in the tts package itself rather than a one-generator-per-provider shim.
type ProviderGenerator struct {
	Registry *tts.Registry
}

func NewProviderGenerator(r *tts.Registry) *ProviderGenerator {
	return &ProviderGenerator{Registry: r}
}

func (g *ProviderGenerator) Synthesize(ctx context.Context, seg Segment, outPath string) error {
	result, err := g.Registry.Synthesize(ctx, seg.Resource, seg.SpeakerID, seg.Text)
	if err != nil {
		return apperr.Script(fmt.Sprintf("%s: synthesize", seg.Resource), err)
	}

	if result.Format == tts.FormatWAV {
		return apperr.Wrap("write wav", os.WriteFile(outPath, result.Data, 0o644))
	}
	return convertToWAV(ctx, result, outPath)
}

// convertToWAV shells out to ffmpeg to transcode a provider's raw PCM or
// MP3 result into the WAV every downstream audio-pipeline step expects,
// mirroring internal/assembly/ffmpeg.go's exec.CommandContext pattern.
func convertToWAV(ctx context.Context, result tts.AudioResult, outPath string) error {
	srcPath := outPath + ".src"
	if err := os.WriteFile(srcPath, result.Data, 0o644); err != nil {
		return apperr.Other("write provider source", err)
	}
	defer os.Remove(srcPath)

	args := []string{"-y"}
	switch result.Format {
	case tts.FormatPCM:
		args = append(args, "-f", "s16le", "-ar", "24000", "-ac", "1", "-i", srcPath)
	default:
		args = append(args, "-i", srcPath)
	}
	args = append(args, outPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return apperr.Other(fmt.Sprintf("ffmpeg transcode to wav: %s", stderr.String()), err)
	}
	return nil
}
