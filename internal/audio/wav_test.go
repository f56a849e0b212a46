package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeTestWAV writes a minimal canonical PCM WAV file with the given
// format and a silent data chunk of dataSize bytes.
func writeTestWAV(t *testing.T, path string, sampleRate uint32, channels, bitsPerSample uint16, dataSize int) {
	t.Helper()

	byteRate := sampleRate * uint32(channels) * uint32(bitsPerSample/8)
	blockAlign := channels * (bitsPerSample / 8)

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, channels)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, byteRate)
	buf = binary.LittleEndian.AppendUint16(buf, blockAlign)
	buf = binary.LittleEndian.AppendUint16(buf, bitsPerSample)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	buf = append(buf, make([]byte, dataSize)...)

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write test wav: %v", err)
	}
}

func TestReadWAVHeaderDerivesDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	// 1 second of 16-bit mono audio at 48kHz: 48000 * 1 * 2 bytes.
	writeTestWAV(t, path, 48000, 1, 16, 48000*2)

	h, err := readWAVHeader(path)
	if err != nil {
		t.Fatalf("readWAVHeader: %v", err)
	}
	if h.SampleRate != 48000 || h.Channels != 1 || h.BitsPerSample != 16 {
		t.Fatalf("unexpected header: %+v", h)
	}
	if d := h.Duration(); d < 0.99 || d > 1.01 {
		t.Fatalf("expected ~1s duration, got %v", d)
	}
}

func TestReadWAVHeaderRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := readWAVHeader(path); err == nil {
		t.Fatal("expected error for non-wav file")
	}
}
