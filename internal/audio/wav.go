package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const pcmFormat = 1

// ErrNotWAV is returned when a stream does not start with a RIFF/WAVE header.
var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

// WAVInfo is the format of a WAV stream as declared by its fmt chunk.
type WAVInfo struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	DataSize      uint32
}

// Duration returns the length of the PCM payload in seconds, or 0 when the
// header does not describe a usable format.
func (w WAVInfo) Duration() float64 {
	bytesPerSecond := float64(w.SampleRate) * float64(w.Channels) * float64(w.BitsPerSample) / 8
	if bytesPerSecond == 0 {
		return 0
	}
	return float64(w.DataSize) / bytesPerSecond
}

// IsPCM16Mono reports whether the stream is 16-bit mono linear PCM.
func (w WAVInfo) IsPCM16Mono() bool {
	return w.AudioFormat == pcmFormat && w.Channels == 1 && w.BitsPerSample == 16
}

// ReadWAVInfo parses chunks up to the start of the data chunk. On success r
// is positioned at the first PCM byte.
func ReadWAVInfo(r io.Reader) (WAVInfo, error) {
	var info WAVInfo

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return info, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return info, ErrNotWAV
	}

	haveFmt := false
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return info, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return info, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return info, fmt.Errorf("read fmt chunk: %w", err)
			}
			info.AudioFormat = binary.LittleEndian.Uint16(body[0:2])
			info.Channels = binary.LittleEndian.Uint16(body[2:4])
			info.SampleRate = binary.LittleEndian.Uint32(body[4:8])
			info.BitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true
			if size%2 == 1 {
				if _, err := io.CopyN(io.Discard, r, 1); err != nil {
					return info, fmt.Errorf("skip fmt padding: %w", err)
				}
			}
		case "data":
			if !haveFmt {
				return info, errors.New("data chunk before fmt chunk")
			}
			info.DataSize = size
			return info, nil
		default:
			skip := int64(size) + int64(size%2)
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return info, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
	}
}

// EncodeWAV wraps 16-bit little-endian PCM samples in a canonical WAV header.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const bytesPerSample = 2
	var buf bytes.Buffer
	blockAlign := channels * bytesPerSample

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(pcmFormat))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bytesPerSample*8))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
