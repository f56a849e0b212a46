package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/assembly"
)

// Pipeline drives SPEC_FULL.md §4.G end to end: per-sentence synthesis,
// mono-to-stereo normalization, SRT generation, and ffmpeg concatenation
// into one MP3, grounded on internal/assembly.FFmpegAssembler for the
// concat/convert steps.
type Pipeline struct {
	Generators *GeneratorSet
	Assembler  assembly.Assembler
}

func NewPipeline(generators *GeneratorSet) *Pipeline {
	return &Pipeline{Generators: generators, Assembler: assembly.NewFFmpegAssembler()}
}

// Result is the audio pipeline's output: the assembled episode MP3 and
// its SRT subtitle text.
type Result struct {
	MP3Path string
	SRT     string
}

// Run synthesizes each Segment into a stereo WAV under workDir, builds
// the SRT from WAV header durations, then concatenates into episode.mp3.
func (p *Pipeline) Run(ctx context.Context, workDir string, segments []Segment) (*Result, error) {
	if len(segments) == 0 {
		mp3Path := filepath.Join(workDir, "episode.mp3")
		if err := writeEmptyMP3(ctx, mp3Path); err != nil {
			return nil, err
		}
		return &Result{MP3Path: mp3Path, SRT: ""}, nil
	}

	var wavPaths []string
	var texts []string
	var durations []float64

	for i, seg := range segments {
		gen, ok := p.Generators.Get(seg.Resource)
		if !ok {
			return nil, apperr.Script("audio pipeline: no generator registered", apperr.NotFound("generator", seg.Resource))
		}
		rawPath := filepath.Join(workDir, fmt.Sprintf("%d.raw.wav", i))
		if err := gen.Synthesize(ctx, seg, rawPath); err != nil {
			return nil, err
		}

		stereoPath := filepath.Join(workDir, fmt.Sprintf("%d.wav", i))
		if err := toStereo(ctx, rawPath, stereoPath); err != nil {
			return nil, err
		}
		_ = os.Remove(rawPath)

		header, err := readWAVHeader(stereoPath)
		if err != nil {
			return nil, err
		}

		wavPaths = append(wavPaths, stereoPath)
		texts = append(texts, seg.Text)
		durations = append(durations, header.Duration())
	}

	srt := BuildSRT(texts, durations)

	mp3Path := filepath.Join(workDir, "episode.mp3")
	if err := p.Assembler.Assemble(ctx, wavPaths, workDir, mp3Path); err != nil {
		return nil, apperr.Other("audio pipeline: assemble mp3", err)
	}

	return &Result{MP3Path: mp3Path, SRT: srt}, nil
}

// writeEmptyMP3 produces the zero-duration MP3 a Manuscript with no
// sections resolves to, per SPEC_FULL.md §8's empty-sections boundary,
// using the same anullsrc+ffmpeg approach as assembly.generateSilence.
func writeEmptyMP3(ctx context.Context, output string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%s:cl=stereo", assembly.AudioSampleRate),
		"-t", "0",
		"-c:a", assembly.AudioCodec,
		"-b:a", assembly.AudioBitrate,
		"-y",
		output,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return apperr.Other(fmt.Sprintf("ffmpeg empty mp3: %s", stderr.String()), err)
	}
	return nil
}

// toStereo normalizes a generator's WAV output to 44.1kHz/2ch via ffmpeg,
// using internal/assembly's shared audio-quality constants.
func toStereo(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", src,
		"-ar", assembly.AudioSampleRate,
		"-ac", assembly.AudioChannels,
		dst,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return apperr.Other(fmt.Sprintf("ffmpeg stereo conversion: %s", stderr.String()), err)
	}
	return nil
}
