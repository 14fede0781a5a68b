package stt

import (
	"context"
	"errors"
	"strings"
	"time"

	"voicechat/core"
)

// Transcriber captures one utterance and returns its text. Failures are
// core.ErrNoSpeech, core.ErrUnintelligible or *core.RecognitionError.
type Transcriber interface {
	CaptureOnce(ctx context.Context, timeout, phraseLimit time.Duration) (string, error)
}

// Listener captures a single phrase from an audio device.
type Listener interface {
	Calibrate(ctx context.Context) error
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (core.AudioChunk, error)
}

// Device is an audio source that only captures between Start and Stop.
type Device interface {
	Start(ctx context.Context) error
	Stop() error
}

// Recognizer turns captured audio into text.
type Recognizer interface {
	core.IService
	Recognize(ctx context.Context, clip core.AudioChunk) (string, error)
}

// CaptureTranscriber calibrates for ambient noise, listens for one phrase
// and hands it to the recognizer.
type CaptureTranscriber struct {
	device     Device
	listener   Listener
	recognizer Recognizer
	logger     *core.Logger
}

// NewCaptureTranscriber wires the pipeline. device may be nil when the
// listener's source is always live.
func NewCaptureTranscriber(device Device, listener Listener, recognizer Recognizer, logger *core.Logger) *CaptureTranscriber {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &CaptureTranscriber{
		device:     device,
		listener:   listener,
		recognizer: recognizer,
		logger:     logger.With(map[string]interface{}{"component": "transcriber"}),
	}
}

func (c *CaptureTranscriber) CaptureOnce(ctx context.Context, timeout, phraseLimit time.Duration) (string, error) {
	clip, err := c.capture(ctx, timeout, phraseLimit)
	if err != nil {
		if errors.Is(err, core.ErrNoSpeech) {
			return "", err
		}
		return "", &core.RecognitionError{Err: err}
	}

	text, err := c.recognizer.Recognize(ctx, clip)
	if err != nil {
		return "", normalize(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", core.ErrUnintelligible
	}
	c.logger.Info("speech transcribed", "chars", len(text))
	return text, nil
}

func (c *CaptureTranscriber) capture(ctx context.Context, timeout, phraseLimit time.Duration) (core.AudioChunk, error) {
	if c.device != nil {
		if err := c.device.Start(ctx); err != nil {
			return core.AudioChunk{}, err
		}
		defer func() {
			if err := c.device.Stop(); err != nil {
				c.logger.Warn("failed to stop audio device", "error", err)
			}
		}()
	}

	if err := c.listener.Calibrate(ctx); err != nil {
		return core.AudioChunk{}, err
	}
	return c.listener.Listen(ctx, timeout, phraseLimit)
}

// normalize makes sure every failure leaving the transcriber is one of the
// three sentinel shapes.
func normalize(err error) error {
	var rerr *core.RecognitionError
	switch {
	case errors.Is(err, core.ErrNoSpeech), errors.Is(err, core.ErrUnintelligible), errors.As(err, &rerr):
		return err
	default:
		return &core.RecognitionError{Err: err}
	}
}

var sentinelPrefixes = []string{"Timeout", "Could not", "Speech recognition error"}

// IsSentinel reports whether text is a transcription failure message
// rather than something the user said.
func IsSentinel(text string) bool {
	for _, p := range sentinelPrefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}
