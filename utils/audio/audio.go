package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"voicechat/core"

	"github.com/zaf/g711"
)

const (
	pcmMax = 32767
	pcmMin = -32768
)

// PCMBytesToULaw converts 16-bit little-endian PCM to G.711 mu-law.
func PCMBytesToULaw(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("PCM byte slice length must be even (16-bit samples)")
	}
	return g711.EncodeUlaw(pcm), nil
}

// ULawBytesToPCM converts G.711 mu-law to 16-bit little-endian PCM.
func ULawBytesToPCM(uBytes []byte) []byte {
	return g711.DecodeUlaw(uBytes)
}

// ValidatePCMData checks that pcm holds whole 16-bit frames.
func ValidatePCMData(pcm []byte, numChannels int) error {
	if len(pcm) == 0 {
		return errors.New("PCM data is empty")
	}
	if numChannels <= 0 {
		return errors.New("invalid number of channels")
	}
	if len(pcm)%(2*numChannels) != 0 {
		return errors.New("PCM data length doesn't match channel count")
	}
	return nil
}

// ToPCM returns the chunk re-encoded as linear PCM.
func ToPCM(chunk core.AudioChunk) (core.AudioChunk, error) {
	switch chunk.Format {
	case core.PCM:
		return chunk, nil
	case core.ULAW:
		chunk.Data = ULawBytesToPCM(chunk.Data)
		chunk.Format = core.PCM
		return chunk, nil
	default:
		return core.AudioChunk{}, fmt.Errorf("unsupported audio format %d", chunk.Format)
	}
}

// FromPCM re-encodes a PCM chunk into format.
func FromPCM(chunk core.AudioChunk, format core.AudioEncodingFormat) (core.AudioChunk, error) {
	if chunk.Format != core.PCM {
		return core.AudioChunk{}, errors.New("source chunk is not PCM")
	}
	switch format {
	case core.PCM:
		return chunk, nil
	case core.ULAW:
		data, err := PCMBytesToULaw(chunk.Data)
		if err != nil {
			return core.AudioChunk{}, err
		}
		chunk.Data = data
		chunk.Format = core.ULAW
		return chunk, nil
	default:
		return core.AudioChunk{}, fmt.Errorf("unsupported audio format %d", format)
	}
}

// ApplyGain scales every 16-bit sample by gain, clipping at the PCM range.
// A gain of 1 returns pcm unchanged.
func ApplyGain(pcm []byte, gain float64) []byte {
	if gain == 1 {
		return pcm
	}
	out := make([]byte, len(pcm)-len(pcm)%2)
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := float64(int16(binary.LittleEndian.Uint16(pcm[i:])))
		scaled := math.Round(sample * gain)
		if scaled > pcmMax {
			scaled = pcmMax
		} else if scaled < pcmMin {
			scaled = pcmMin
		}
		binary.LittleEndian.PutUint16(out[i:], uint16(int16(scaled)))
	}
	return out
}

// RMS is the root mean square amplitude of 16-bit PCM, the energy measure
// used by the listener.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// StripWAVHeaderIfPresent returns the data chunk of a RIFF/WAVE buffer, or
// the input unchanged when it has no WAV header.
func StripWAVHeaderIfPresent(chunk []byte) ([]byte, error) {
	if len(chunk) < 12 {
		return chunk, nil
	}
	if !bytes.HasPrefix(chunk, []byte("RIFF")) || !bytes.Equal(chunk[8:12], []byte("WAVE")) {
		return chunk, nil
	}

	i := 12
	for i+8 <= len(chunk) {
		chunkID := string(chunk[i : i+4])
		chunkSize := binary.LittleEndian.Uint32(chunk[i+4 : i+8])
		next := i + 8 + int(chunkSize)

		if chunkID == "data" {
			// streamed WAV (arecord to a pipe) leaves the size unset
			if next > len(chunk) || chunkSize == 0 {
				return chunk[i+8:], nil
			}
			return chunk[i+8 : next], nil
		}

		if chunkSize%2 != 0 {
			next++
		}
		if next > len(chunk) {
			break
		}
		i = next
	}

	return nil, errors.New("invalid WAV: data chunk not found")
}
