package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/botcast/worker/internal/apperr"
)

// SliceGenerator implements the "audio" URN resource: it downloads a
// pre-recorded clip and extracts [from, to] as a WAV via ffmpeg, rather
// than calling a TTS engine, grounded on the same exec.CommandContext
// ffmpeg-shelling style as internal/assembly/ffmpeg.go.
type SliceGenerator struct {
	Client *http.Client
}

func NewSliceGenerator(client *http.Client) *SliceGenerator {
	if client == nil {
		client = http.DefaultClient
	}
	return &SliceGenerator{Client: client}
}

func (g *SliceGenerator) Synthesize(ctx context.Context, seg Segment, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, seg.SourceURL, nil)
	if err != nil {
		return apperr.Script("audio slice: build request", err)
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return apperr.Script("audio slice: fetch source", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperr.Script("audio slice: non-200 response", apperr.Other(resp.Status, nil))
	}

	srcPath := outPath + ".src"
	f, err := os.Create(srcPath)
	if err != nil {
		return apperr.Other("audio slice: create temp file", err)
	}
	_, copyErr := io.Copy(f, resp.Body)
	f.Close()
	defer os.Remove(srcPath)
	if copyErr != nil {
		return apperr.Other("audio slice: write temp file", copyErr)
	}

	duration := seg.To - seg.From
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-ss", strconv.FormatFloat(seg.From, 'f', 3, 64),
		"-i", srcPath,
		"-t", strconv.FormatFloat(duration, 'f', 3, 64),
		outPath,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return apperr.Other(fmt.Sprintf("audio slice: ffmpeg trim: %s", stderr.String()), err)
	}
	return nil
}
