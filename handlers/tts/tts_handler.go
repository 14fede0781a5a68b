package tts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"voicechat/core"
	"voicechat/utils/audio"
)

// Synthesizer turns text into audio chunks delivered in order to out.
type Synthesizer interface {
	core.IService
	Synthesize(ctx context.Context, text string, out func(core.AudioChunk) error) error
}

// Player opens a playback stream for 16-bit mono PCM at sampleRate.
// Closing the stream blocks until everything written has been played.
type Player interface {
	Start(ctx context.Context, sampleRate int) (io.WriteCloser, error)
}

// Speaker reads replies aloud. Rate and volume are fixed at construction.
type Speaker struct {
	synth  Synthesizer
	player Player
	config SpeakerConfig
	logger *core.Logger
}

func NewSpeaker(synth Synthesizer, player Player, config SpeakerConfig, logger *core.Logger) *Speaker {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Speaker{
		synth:  synth,
		player: player,
		config: config.withDefaults(),
		logger: logger.With(map[string]interface{}{"component": "speaker"}),
	}
}

// Speak synthesizes text and blocks until playback has finished.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	text = normalizeTextForTTS(text)
	if text == "" {
		return nil
	}

	var stream io.WriteCloser
	written := 0
	err := s.synth.Synthesize(ctx, text, func(chunk core.AudioChunk) error {
		pcm, err := audio.ToPCM(chunk)
		if err != nil {
			return err
		}
		if stream == nil {
			if stream, err = s.player.Start(ctx, pcm.SampleRate); err != nil {
				return fmt.Errorf("start playback: %w", err)
			}
		}
		n, err := stream.Write(audio.ApplyGain(pcm.Data, s.config.Volume))
		written += n
		return err
	})

	if stream != nil {
		if closeErr := stream.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("finish playback: %w", closeErr))
		}
	}
	if err != nil {
		return err
	}

	s.logger.Debug("spoke reply", "chars", len(text), "bytes", written)
	return nil
}
