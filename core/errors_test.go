package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecognitionError(t *testing.T) {
	cause := errors.New("401 unauthorized")
	err := fmt.Errorf("capture: %w", &RecognitionError{Err: cause})

	var rerr *RecognitionError
	assert.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Speech recognition error: 401 unauthorized", rerr.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKindNone, KindOf(nil))
	assert.Equal(t, ErrorKindUnknown, KindOf(errors.New("plain")))
	wrapped := fmt.Errorf("relay: %w", NewCompletionError(ErrorKindQuota, "rate limited after %d tries", 3))
	assert.Equal(t, ErrorKindQuota, KindOf(wrapped))
	assert.EqualError(t, wrapped, "relay: rate limited after 3 tries")
}

type fakeService struct {
	name    string
	initErr error
	log     *[]string
}

func (f *fakeService) Init(context.Context) error {
	*f.log = append(*f.log, "init "+f.name)
	return f.initErr
}

func (f *fakeService) Cleanup() error {
	*f.log = append(*f.log, "cleanup "+f.name)
	return nil
}

func TestInitServices_RollsBackOnFailure(t *testing.T) {
	var log []string
	a := &fakeService{name: "a", log: &log}
	b := &fakeService{name: "b", log: &log}
	c := &fakeService{name: "c", initErr: errors.New("bad key"), log: &log}

	err := InitServices(context.Background(), a, nil, b, c)
	assert.EqualError(t, err, "bad key")
	assert.Equal(t, []string{"init a", "init b", "init c", "cleanup b", "cleanup a"}, log)

	log = nil
	assert.NoError(t, CleanupServices(a, nil, b))
	assert.Equal(t, []string{"cleanup a", "cleanup b"}, log)
}

func TestAudioChunk_Duration(t *testing.T) {
	pcm := AudioChunk{Data: make([]byte, 32000), SampleRate: 16000, Channels: 1, Format: PCM}
	assert.Equal(t, time.Second, pcm.Duration())

	ulaw := AudioChunk{Data: make([]byte, 4000), SampleRate: 8000, Channels: 1, Format: ULAW}
	assert.Equal(t, 500*time.Millisecond, ulaw.Duration())

	assert.Zero(t, AudioChunk{Data: []byte{1, 2}}.Duration())
}
