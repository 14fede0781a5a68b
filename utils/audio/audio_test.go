package audio

import (
	"encoding/binary"
	"testing"

	"voicechat/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(values ...int16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func decode(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

func TestApplyGain(t *testing.T) {
	pcm := samples(1000, -1000, 30000, -30000, 0)

	assert.Equal(t, []int16{900, -900, 27000, -27000, 0}, decode(ApplyGain(pcm, 0.9)))
	assert.Equal(t, []int16{2000, -2000, 32767, -32768, 0}, decode(ApplyGain(pcm, 2)))
	assert.Equal(t, pcm, ApplyGain(pcm, 1))
}

func TestRMS(t *testing.T) {
	assert.Zero(t, RMS(nil))
	assert.Zero(t, RMS(samples(0, 0, 0)))
	assert.InDelta(t, 100, RMS(samples(100, -100, 100, -100)), 0.001)
}

func TestULawRoundTripKeepsShape(t *testing.T) {
	pcm := samples(0, 1000, -1000, 8000, -8000)

	ulaw, err := PCMBytesToULaw(pcm)
	require.NoError(t, err)
	assert.Len(t, ulaw, 5)

	back := decode(ULawBytesToPCM(ulaw))
	require.Len(t, back, 5)
	for i, want := range decode(pcm) {
		assert.InDelta(t, want, back[i], 300)
	}

	_, err = PCMBytesToULaw([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestToPCMAndFromPCM(t *testing.T) {
	pcm := core.AudioChunk{Data: samples(500, -500), SampleRate: 8000, Channels: 1, Format: core.PCM}

	ulaw, err := FromPCM(pcm, core.ULAW)
	require.NoError(t, err)
	assert.Equal(t, core.ULAW, ulaw.Format)
	assert.Len(t, ulaw.Data, 2)

	back, err := ToPCM(ulaw)
	require.NoError(t, err)
	assert.Equal(t, core.PCM, back.Format)
	assert.Len(t, back.Data, 4)

	_, err = FromPCM(ulaw, core.PCM)
	assert.Error(t, err)
}

func TestValidatePCMData(t *testing.T) {
	assert.NoError(t, ValidatePCMData(samples(1, 2), 1))
	assert.NoError(t, ValidatePCMData(samples(1, 2), 2))
	assert.Error(t, ValidatePCMData(nil, 1))
	assert.Error(t, ValidatePCMData(samples(1), 2))
	assert.Error(t, ValidatePCMData(samples(1), 0))
}

func TestStripWAVHeaderIfPresent(t *testing.T) {
	raw := samples(1, 2, 3)
	got, err := StripWAVHeaderIfPresent(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	wav := []byte("RIFF\x00\x00\x00\x00WAVE")
	wav = append(wav, []byte("fmt \x10\x00\x00\x00")...)
	wav = append(wav, make([]byte, 16)...)
	wav = append(wav, []byte("data\x06\x00\x00\x00")...)
	wav = append(wav, raw...)

	got, err = StripWAVHeaderIfPresent(wav)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}
