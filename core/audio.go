package core

import "time"

type AudioEncodingFormat int

const (
	PCM  AudioEncodingFormat = iota // 16-bit little-endian linear PCM.
	ULAW                            // G.711 mu-law.
)

// AudioChunk is a contiguous piece of audio, either captured from the
// microphone or produced by the speech backend.
type AudioChunk struct {
	Data       []byte
	SampleRate int
	Channels   int
	Format     AudioEncodingFormat
	Timestamp  time.Time
}

// Duration assumes 16-bit samples for PCM and 8-bit samples for mu-law.
func (ac AudioChunk) Duration() time.Duration {
	if ac.SampleRate == 0 || ac.Channels == 0 {
		return 0
	}
	bytesPerSample := 2
	if ac.Format == ULAW {
		bytesPerSample = 1
	}
	samples := len(ac.Data) / (bytesPerSample * ac.Channels)
	return time.Duration(samples) * time.Second / time.Duration(ac.SampleRate)
}
