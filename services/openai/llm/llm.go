package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"voicechat/core"

	"github.com/sashabaranov/go-openai"
)

// Config holds the configuration for the OpenAI completion service. The
// credential is not part of it: it arrives with every call.
type Config struct {
	BaseURL string        `json:"base_url,omitempty" yaml:"base_url,omitempty"` // OpenAI-compatible endpoint, empty for api.openai.com
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`   // per request, 0 means 60s
}

// OpenAILLMService runs non-streaming chat completions.
type OpenAILLMService struct {
	config Config
	logger *core.Logger
	http   *http.Client

	// one cached client, rebuilt when the caller switches credential
	mu         sync.Mutex
	client     *openai.Client
	credential string
}

func NewOpenAILLMService(config Config, logger *core.Logger) *OpenAILLMService {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &OpenAILLMService{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "openai_llm"}),
		http:   &http.Client{Timeout: config.Timeout},
	}
}

func (s *OpenAILLMService) Init(ctx context.Context) error {
	return nil
}

func (s *OpenAILLMService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.credential = ""
	return nil
}

func (s *OpenAILLMService) clientFor(credential string) *openai.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil && s.credential == credential {
		return s.client
	}
	cfg := openai.DefaultConfig(credential)
	if s.config.BaseURL != "" {
		cfg.BaseURL = s.config.BaseURL
	}
	cfg.HTTPClient = s.http
	s.client = openai.NewClientWithConfig(cfg)
	s.credential = credential
	return s.client
}

// Complete sends req and returns the content of the first choice. Errors
// are always *core.CompletionError.
func (s *OpenAILLMService) Complete(ctx context.Context, credential string, req core.CompletionRequest) (string, error) {
	temperature := req.Temperature
	if temperature == 0 {
		// go-openai omits a zero temperature, which the API reads as 1.
		temperature = math.SmallestNonzeroFloat32
	}
	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    convertMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
	}

	started := time.Now()
	resp, err := s.clientFor(credential).CreateChatCompletion(ctx, chatReq)
	if err != nil {
		cerr := classifyError(err)
		s.logger.Warn("completion failed", "kind", string(cerr.Kind), "error", err.Error())
		return "", cerr
	}
	if len(resp.Choices) == 0 {
		return "", core.NewCompletionError(core.ErrorKindMalformed, "completion response has no choices")
	}

	s.logger.Debug("completion finished",
		"model", resp.Model,
		"latency_ms", time.Since(started).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return resp.Choices[0].Message.Content, nil
}

func convertMessages(messages []core.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    convertRole(m.Role),
			Content: m.Content,
		})
	}
	return out
}

func convertRole(role core.MessageRole) string {
	switch role {
	case core.MessageRoleAssistant:
		return openai.ChatMessageRoleAssistant
	case core.MessageRoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}

// classifyError maps go-openai and transport errors onto core.ErrorKind.
func classifyError(err error) *core.CompletionError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Type == "insufficient_quota" {
			return &core.CompletionError{Kind: core.ErrorKindQuota, Err: err}
		}
		return &core.CompletionError{Kind: kindForStatus(apiErr.HTTPStatusCode), Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &core.CompletionError{Kind: kindForStatus(reqErr.HTTPStatusCode), Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &core.CompletionError{Kind: core.ErrorKindMalformed, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &core.CompletionError{Kind: core.ErrorKindNetwork, Err: err}
	}

	return &core.CompletionError{Kind: core.ErrorKindUnknown, Err: err}
}

func kindForStatus(status int) core.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ErrorKindAuth
	case status == http.StatusTooManyRequests:
		return core.ErrorKindQuota
	case status == 0 || status >= http.StatusInternalServerError:
		return core.ErrorKindNetwork
	default:
		return core.ErrorKindUnknown
	}
}
