package relay

import (
	"context"
	"strings"

	"voicechat/core"
)

// ErrorPrefix starts the display text of every failed reply.
const ErrorPrefix = "API Error: "

// CompletionService is the hosted model behind the relay.
type CompletionService interface {
	core.IService
	Complete(ctx context.Context, credential string, req core.CompletionRequest) (string, error)
}

// Result is the outcome of one relay call. Exactly one of Text or Err is
// meaningful: Err is core.ErrorKindNone on success.
type Result struct {
	Text   string
	Err    core.ErrorKind
	Detail string
}

// OK reports whether the completion call succeeded.
func (r Result) OK() bool {
	return r.Err == core.ErrorKindNone
}

// Display renders the result the way the conversation shows it: the reply
// itself, or "API Error: <details>".
func (r Result) Display() string {
	if r.OK() {
		return r.Text
	}
	return ErrorPrefix + r.Detail
}

// IsErrorText reports whether text is a rendered failure. Only useful for
// callers that kept nothing but the display string.
func IsErrorText(text string) bool {
	return strings.HasPrefix(text, ErrorPrefix)
}

// ResponseRelay turns one user input into one model reply, using the
// persona preamble and the tail of the conversation as context.
type ResponseRelay struct {
	service CompletionService
	store   *core.ConversationStore
	config  RelayConfig
	logger  *core.Logger
}

func NewResponseRelay(service CompletionService, store *core.ConversationStore, config RelayConfig, logger *core.Logger) *ResponseRelay {
	config = config.withDefaults()
	if logger == nil {
		logger = core.GetLogger()
	}
	return &ResponseRelay{
		service: service,
		store:   store,
		config:  config,
		logger:  logger.With(map[string]interface{}{"component": "relay"}),
	}
}

// BuildMessages assembles the prompt: persona, the last ContextWindow
// stored messages, then userInput. The store is only read.
func (r *ResponseRelay) BuildMessages(userInput string) []core.Message {
	history := r.store.Last(r.config.ContextWindow)
	messages := make([]core.Message, 0, len(history)+2)
	messages = append(messages, core.NewSystemMessage(r.config.Persona))
	messages = append(messages, history...)
	messages = append(messages, core.NewUserMessage(userInput))
	return messages
}

// GetReply asks the model for a reply to userInput. It never returns an
// error: failures come back as a Result with Err set. The caller checks
// that credential and userInput are non-empty and appends the reply to the
// store itself.
func (r *ResponseRelay) GetReply(ctx context.Context, userInput, credential string) (res Result) {
	defer func() {
		// a misbehaving service must not take the session down
		if p := recover(); p != nil {
			r.logger.Error("completion service panicked", "panic", p)
			res = Result{Err: core.ErrorKindUnknown, Detail: "unexpected failure in completion service"}
		}
	}()

	req := core.CompletionRequest{
		Model:       r.config.Model,
		Messages:    r.BuildMessages(userInput),
		MaxTokens:   r.config.MaxTokens,
		Temperature: r.config.Temperature,
	}

	text, err := r.service.Complete(ctx, credential, req)
	if err != nil {
		kind := core.KindOf(err)
		r.logger.Warn("reply failed", "kind", string(kind))
		return Result{Err: kind, Detail: err.Error()}
	}
	r.logger.Debug("reply received", "chars", len(text), "context_messages", len(req.Messages))
	return Result{Text: text}
}

// GetReplyText is GetReply rendered to its display string.
func (r *ResponseRelay) GetReplyText(ctx context.Context, userInput, credential string) string {
	return r.GetReply(ctx, userInput, credential).Display()
}
