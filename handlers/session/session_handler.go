package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"voicechat/core"
	"voicechat/handlers/relay"
	"voicechat/handlers/stt"
)

var (
	ErrMissingCredential  = errors.New("no API key set for this session")
	ErrEmptyInput         = errors.New("input is empty")
	ErrVoiceInputDisabled = errors.New("voice input is disabled")
)

// RejectedTranscriptError is returned when the recognizer produced text
// that reads like a capture failure. The text is kept for display.
type RejectedTranscriptError struct {
	Text string
}

func (e *RejectedTranscriptError) Error() string {
	return e.Text
}

type State int32

const (
	Idle State = iota
	Listening
	AwaitingReply
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case AwaitingReply:
		return "awaiting_reply"
	default:
		return "unknown"
	}
}

// Replier produces the assistant's reply to one input.
type Replier interface {
	GetReply(ctx context.Context, userInput, credential string) relay.Result
}

// Speaker reads text aloud, blocking until playback ends.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Outcome describes one completed request cycle.
type Outcome struct {
	Transcript string       // what was heard, voice cycles only
	Reply      relay.Result // the reply as returned by the relay
	SpeechErr  error        // playback failure, the reply itself still stands
}

// Controller runs request cycles for one chat session. A cycle holds the
// session lock from validation until the reply has been stored and spoken.
type Controller struct {
	mu sync.Mutex

	store       *core.ConversationStore
	replier     Replier
	transcriber stt.Transcriber
	speaker     Speaker
	config      SessionConfig
	logger      *core.Logger

	credential  string
	voiceInput  bool
	voiceOutput bool
	state       atomic.Int32
}

// NewController builds a controller around store. transcriber and speaker
// may be nil when the corresponding device is not configured.
func NewController(
	store *core.ConversationStore,
	replier Replier,
	transcriber stt.Transcriber,
	speaker Speaker,
	config SessionConfig,
	logger *core.Logger,
) *Controller {
	config = config.withDefaults()
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Controller{
		store:       store,
		replier:     replier,
		transcriber: transcriber,
		speaker:     speaker,
		config:      config,
		logger:      logger.With(map[string]interface{}{"component": "session"}),
		voiceInput:  config.VoiceInput && transcriber != nil,
		voiceOutput: config.VoiceOutput && speaker != nil,
	}
}

// SetCredential replaces the API key used for later cycles.
func (c *Controller) SetCredential(credential string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential = strings.TrimSpace(credential)
	c.logger.Info("credential updated", "present", c.credential != "")
}

func (c *Controller) HasCredential() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential != ""
}

// SetVoiceInput toggles voice input. It stays off without a transcriber.
func (c *Controller) SetVoiceInput(enabled bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voiceInput = enabled && c.transcriber != nil
	return c.voiceInput
}

// SetVoiceOutput toggles spoken replies. It stays off without a speaker.
func (c *Controller) SetVoiceOutput(enabled bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voiceOutput = enabled && c.speaker != nil
	return c.voiceOutput
}

func (c *Controller) VoiceInput() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voiceInput
}

func (c *Controller) VoiceOutput() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voiceOutput
}

// State is safe to call while a cycle is running.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Messages returns a copy of the conversation for display.
func (c *Controller) Messages() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.All()
}

// Clear forgets the conversation.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Clear()
	c.logger.Info("conversation cleared")
}

// SubmitText runs one cycle for typed input.
func (c *Controller) SubmitText(ctx context.Context, text string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.credential == "" {
		return Outcome{}, ErrMissingCredential
	}
	if strings.TrimSpace(text) == "" {
		return Outcome{}, ErrEmptyInput
	}
	return c.exchange(ctx, text, ""), nil
}

// SubmitVoice captures one utterance and, if it was understood, runs a
// cycle for it. Capture failures are returned as the transcriber's
// sentinel errors and leave the conversation untouched.
func (c *Controller) SubmitVoice(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.voiceInput {
		return Outcome{}, ErrVoiceInputDisabled
	}
	if c.credential == "" {
		return Outcome{}, ErrMissingCredential
	}

	c.state.Store(int32(Listening))
	text, err := c.transcriber.CaptureOnce(ctx, c.config.ListenTimeout, c.config.PhraseLimit)
	c.state.Store(int32(Idle))
	if err != nil {
		c.logger.Warn("voice input failed", "error", err)
		return Outcome{}, err
	}
	if stt.IsSentinel(text) {
		c.logger.Warn("voice input rejected", "transcript", text)
		return Outcome{Transcript: text}, &RejectedTranscriptError{Text: text}
	}
	return c.exchange(ctx, text, text), nil
}

// exchange stores the input, fetches and stores the reply, then speaks it.
// Callers hold c.mu.
func (c *Controller) exchange(ctx context.Context, input, transcript string) Outcome {
	c.store.Append(core.NewUserMessage(input))

	c.state.Store(int32(AwaitingReply))
	defer c.state.Store(int32(Idle))

	reply := c.replier.GetReply(ctx, input, c.credential)
	c.store.Append(core.NewAssistantMessage(reply.Display()))
	if reply.OK() {
		c.logger.Info("reply stored", "chars", len(reply.Text), "messages", c.store.Len())
	} else {
		c.logger.Warn("reply failed", "kind", string(reply.Err), "messages", c.store.Len())
	}

	out := Outcome{Transcript: transcript, Reply: reply}
	if c.voiceOutput {
		if err := c.speaker.Speak(ctx, reply.Display()); err != nil {
			c.logger.Warn("speech output failed", "error", err)
			out.SpeechErr = err
		}
	}
	return out
}
