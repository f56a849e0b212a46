package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/botcast/worker/internal/apperr"
)

// wavHeader holds the fields of a canonical RIFF/WAVE header needed to
// derive a clip's duration without decoding samples, per SPEC_FULL.md
// §4.G step 4 (duration = data_size / (sample_rate * channels * bytes_per_sample)).
type wavHeader struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
	DataSize      uint32
}

func readWAVHeader(path string) (*wavHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Other("open wav", err)
	}
	defer f.Close()

	buf := make([]byte, 12)
	if _, err := f.Read(buf); err != nil {
		return nil, apperr.Other("read riff header", err)
	}
	if string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WAVE" {
		return nil, apperr.Other("not a wav file", fmt.Errorf("missing RIFF/WAVE magic"))
	}

	var h wavHeader
	chunk := make([]byte, 8)
	for {
		if _, err := f.Read(chunk); err != nil {
			return nil, apperr.Other("read chunk header", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := f.Read(body); err != nil {
				return nil, apperr.Other("read fmt chunk", err)
			}
			h.Channels = binary.LittleEndian.Uint16(body[2:4])
			h.SampleRate = binary.LittleEndian.Uint32(body[4:8])
			h.BitsPerSample = binary.LittleEndian.Uint16(body[14:16])
		case "data":
			h.DataSize = size
			return &h, nil
		default:
			if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
				return nil, apperr.Other("skip chunk", err)
			}
		}
	}
}

// Duration returns the clip's length in seconds.
func (h *wavHeader) Duration() float64 {
	bytesPerSample := float64(h.BitsPerSample) / 8
	if h.SampleRate == 0 || h.Channels == 0 || bytesPerSample == 0 {
		return 0
	}
	return float64(h.DataSize) / (float64(h.SampleRate) * float64(h.Channels) * bytesPerSample)
}
