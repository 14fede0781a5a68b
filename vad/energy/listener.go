package energy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"voicechat/core"
	"voicechat/utils/audio"
)

// Listener cuts one spoken phrase out of a continuous 16-bit mono PCM
// stream, using frame energy against a threshold calibrated on ambient
// noise. Durations are measured in audio time, not wall time.
type Listener struct {
	src       io.Reader
	config    Config
	logger    *core.Logger
	threshold float64
}

func NewListener(src io.Reader, config Config, logger *core.Logger) *Listener {
	config = config.withDefaults()
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Listener{
		src:       src,
		config:    config,
		logger:    logger.With(map[string]interface{}{"component": "energy_vad"}),
		threshold: config.EnergyThreshold,
	}
}

// Threshold is the current speech energy threshold.
func (l *Listener) Threshold() float64 {
	return l.threshold
}

func (l *Listener) readFrame(buf []byte) error {
	if _, err := io.ReadFull(l.src, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return io.EOF
		}
		return err
	}
	return nil
}

// Calibrate samples CalibrationDuration of ambient audio and sets the
// threshold to the mean ambient energy times ThresholdMultiplier. The
// threshold never drops below the configured EnergyThreshold.
func (l *Listener) Calibrate(ctx context.Context) error {
	frames := int(l.config.CalibrationDuration / l.config.FrameDuration)
	if frames <= 0 {
		return nil
	}

	buf := make([]byte, l.config.frameBytes())
	var total float64
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.readFrame(buf); err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
		total += audio.RMS(buf)
	}

	ambient := total / float64(frames)
	l.threshold = ambient * l.config.ThresholdMultiplier
	if l.threshold < l.config.EnergyThreshold {
		l.threshold = l.config.EnergyThreshold
	}
	l.logger.Debug("calibrated", "ambient_rms", ambient, "threshold", l.threshold)
	return nil
}

// Listen waits up to timeout of audio for speech to begin and returns the
// phrase once PauseDuration of silence follows it or phraseLimit is
// reached. It returns core.ErrNoSpeech when nothing crosses the threshold
// in time. A zero timeout or phraseLimit means no limit.
func (l *Listener) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (core.AudioChunk, error) {
	frameDur := l.config.FrameDuration
	buf := make([]byte, l.config.frameBytes())

	preRollFrames := int(l.config.PreRoll / frameDur)
	var preRoll [][]byte
	var waited time.Duration

	for {
		if err := ctx.Err(); err != nil {
			return core.AudioChunk{}, err
		}
		if timeout > 0 && waited >= timeout {
			return core.AudioChunk{}, core.ErrNoSpeech
		}
		if err := l.readFrame(buf); err != nil {
			if errors.Is(err, io.EOF) {
				return core.AudioChunk{}, core.ErrNoSpeech
			}
			return core.AudioChunk{}, fmt.Errorf("listen: %w", err)
		}
		waited += frameDur

		if audio.RMS(buf) > l.threshold {
			break
		}
		if preRollFrames > 0 {
			frame := make([]byte, len(buf))
			copy(frame, buf)
			preRoll = append(preRoll, frame)
			if len(preRoll) > preRollFrames {
				preRoll = preRoll[1:]
			}
		}
	}

	phrase := make([]byte, 0, len(buf)*64)
	for _, f := range preRoll {
		phrase = append(phrase, f...)
	}
	phrase = append(phrase, buf...)

	spoken := frameDur
	var silence time.Duration
	for {
		if phraseLimit > 0 && spoken >= phraseLimit {
			break
		}
		if silence >= l.config.PauseDuration {
			break
		}
		if err := ctx.Err(); err != nil {
			return core.AudioChunk{}, err
		}
		if err := l.readFrame(buf); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return core.AudioChunk{}, fmt.Errorf("listen: %w", err)
		}
		phrase = append(phrase, buf...)
		spoken += frameDur

		if audio.RMS(buf) > l.threshold {
			silence = 0
		} else {
			silence += frameDur
		}
	}

	l.logger.Debug("phrase captured", "waited_ms", waited.Milliseconds(), "phrase_ms", spoken.Milliseconds())
	return core.AudioChunk{
		Data:       phrase,
		SampleRate: l.config.SampleRate,
		Channels:   1,
		Format:     core.PCM,
		Timestamp:  time.Now(),
	}, nil
}
