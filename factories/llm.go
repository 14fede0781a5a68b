package factories

import (
	"voicechat/core"
	"voicechat/handlers/relay"
	openaillm "voicechat/services/openai/llm"
)

// LLMFactoryConfig holds provider-specific configs for the completion service.
// Set at most one provider config; with none set, OpenAI is used.
// All non-OpenAI providers use the OpenAI-compatible protocol and are
// implemented via the same OpenAI service with a custom base URL.
type LLMFactoryConfig struct {
	OpenAIConfig     *openaillm.Config `json:"openai,omitempty" yaml:"openai,omitempty"`
	TogetherConfig   *openaillm.Config `json:"together,omitempty" yaml:"together,omitempty"`
	GroqConfig       *openaillm.Config `json:"groq,omitempty" yaml:"groq,omitempty"`
	DeepSeekConfig   *openaillm.Config `json:"deepseek,omitempty" yaml:"deepseek,omitempty"`
	OpenRouterConfig *openaillm.Config `json:"openrouter,omitempty" yaml:"openrouter,omitempty"`
	MistralConfig    *openaillm.Config `json:"mistral,omitempty" yaml:"mistral,omitempty"`
}

// Default base URLs for OpenAI-compatible providers.
const (
	togetherBaseURL   = "https://api.together.xyz/v1"
	groqBaseURL       = "https://api.groq.com/openai/v1"
	deepseekBaseURL   = "https://api.deepseek.com/v1"
	openrouterBaseURL = "https://openrouter.ai/api/v1"
	mistralBaseURL    = "https://api.mistral.ai/v1"
)

type llmProvider struct {
	name           string
	config         *openaillm.Config
	defaultBaseURL string
	defaultModel   string
}

func (c LLMFactoryConfig) provider() llmProvider {
	providers := []llmProvider{
		{"openai", c.OpenAIConfig, "", relay.DefaultModel},
		{"together", c.TogetherConfig, togetherBaseURL, "meta-llama/Llama-3.3-70B-Instruct-Turbo"},
		{"groq", c.GroqConfig, groqBaseURL, "llama-3.3-70b-versatile"},
		{"deepseek", c.DeepSeekConfig, deepseekBaseURL, "deepseek-chat"},
		{"openrouter", c.OpenRouterConfig, openrouterBaseURL, "openai/gpt-3.5-turbo"},
		{"mistral", c.MistralConfig, mistralBaseURL, "mistral-small-latest"},
	}
	for _, p := range providers {
		if p.config != nil {
			return p
		}
	}
	return llmProvider{"openai", &openaillm.Config{}, "", relay.DefaultModel}
}

// ProviderName is the provider the config selects.
func (c LLMFactoryConfig) ProviderName() string {
	return c.provider().name
}

// DefaultModel is the model used when the relay config names none.
func (c LLMFactoryConfig) DefaultModel() string {
	return c.provider().defaultModel
}

// BuildLLMService constructs the completion service for the selected provider.
func BuildLLMService(config LLMFactoryConfig, logger *core.Logger) *openaillm.OpenAILLMService {
	p := config.provider()
	cfg := *p.config
	if cfg.BaseURL == "" {
		cfg.BaseURL = p.defaultBaseURL
	}
	return openaillm.NewOpenAILLMService(cfg, logger)
}
