package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Audio quality constants for consistent output across all FFmpeg operations.
const (
	AudioBitrate    = "192k"
	AudioSampleRate = "44100"
	AudioChannels   = "2"
	AudioCodec      = "libmp3lame"
	AudioQuality    = "0" // LAME quality (0 = best)
	AudioResampler  = "aresample=resampler=soxr"
)

type Assembler interface {
	Assemble(ctx context.Context, segments []string, tmpDir string, output string) error
}

// FFmpegAssembler concatenates per-sentence WAVs into one MP3. GapDuration
// controls the silence inserted between segments and defaults to zero:
// SPEC_FULL.md's duration invariant (concatenated MP3 duration == sum of
// per-sentence WAV durations, ±50ms/sentence) is computed from WAV headers
// alone in audio.BuildSRT, and any nonzero gap would desync the SRT cues
// from the assembled audio.
type FFmpegAssembler struct {
	GapDuration time.Duration
}

func NewFFmpegAssembler() *FFmpegAssembler {
	return &FFmpegAssembler{}
}

func (a *FFmpegAssembler) Assemble(ctx context.Context, segments []string, tmpDir string, output string) error {
	if len(segments) == 0 {
		return fmt.Errorf("no audio segments to assemble")
	}

	start := time.Now()
	log := slog.Default()

	var silencePath string
	if a.GapDuration > 0 {
		silencePath = filepath.Join(tmpDir, "silence.mp3")
		if err := generateSilence(ctx, silencePath, a.GapDuration); err != nil {
			return fmt.Errorf("generate silence: %w", err)
		}
	}

	listPath := filepath.Join(tmpDir, "inputs.txt")
	if err := buildConcatList(segments, silencePath, listPath); err != nil {
		return fmt.Errorf("build concat list: %w", err)
	}

	if err := runFFmpegConcat(ctx, listPath, output); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}

	log.Debug("assembled episode mp3", "segments", len(segments), "gap", a.GapDuration, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func generateSilence(ctx context.Context, output string, d time.Duration) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%s:cl=stereo", AudioSampleRate),
		"-t", fmt.Sprintf("%.3f", d.Seconds()),
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-y",
		output,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	cmd.Stdout = nil

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg silence generation failed: %w\n%s", err, stderr.String())
	}
	return nil
}

// buildConcatList writes the ffmpeg concat-demuxer manifest. silencePath
// is inserted between segments (never after the last one) only when the
// caller generated one; an empty silencePath concatenates segments back
// to back.
func buildConcatList(segments []string, silencePath string, listPath string) error {
	var lines []string
	for i, seg := range segments {
		lines = append(lines, fmt.Sprintf("file '%s'", seg))
		if silencePath != "" && i < len(segments)-1 {
			lines = append(lines, fmt.Sprintf("file '%s'", silencePath))
		}
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(listPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

// ConvertToMP3 converts raw audio (PCM/LPCM/WAV) to MP3 via FFmpeg.
// The format parameter determines the input interpretation:
//   - "pcm":  raw 24kHz 16-bit signed little-endian mono
//   - "lpcm": raw 24kHz 16-bit signed little-endian mono (same as pcm)
//   - "wav":  standard WAV header (auto-detected by FFmpeg)
func ConvertToMP3(ctx context.Context, input string, format string, output string) error {
	var args []string
	switch format {
	case "pcm", "lpcm":
		args = []string{
			"-f", "s16le",
			"-ar", "24000",
			"-ac", "1",
			"-i", input,
			"-af", AudioResampler,
			"-c:a", AudioCodec,
			"-b:a", AudioBitrate,
			"-q:a", AudioQuality,
			"-ar", AudioSampleRate,
			"-ac", AudioChannels,
			"-y",
			output,
		}
	case "wav":
		args = []string{
			"-i", input,
			"-af", AudioResampler,
			"-c:a", AudioCodec,
			"-b:a", AudioBitrate,
			"-q:a", AudioQuality,
			"-ar", AudioSampleRate,
			"-ac", AudioChannels,
			"-y",
			output,
		}
	default:
		return fmt.Errorf("unsupported audio format for conversion: %s", format)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	cmd.Stdout = nil

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg conversion (%s → mp3) failed: %w\n%s", format, err, stderr.String())
	}
	return nil
}

func runFFmpegConcat(ctx context.Context, listPath string, output string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-af", AudioResampler,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-q:a", AudioQuality,
		"-ar", AudioSampleRate,
		"-ac", AudioChannels,
		"-y",
		output,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	cmd.Stdout = nil

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w\n%s", err, stderr.String())
	}

	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file is empty")
	}

	return nil
}
