package relay

// RelayConfig controls how prompts are built and what the model is asked for.
type RelayConfig struct {
	Model         string  `json:"model" yaml:"model"`                   // Completion model identifier.
	MaxTokens     int     `json:"max_tokens" yaml:"max_tokens"`         // Upper bound on reply length.
	Temperature   float32 `json:"temperature" yaml:"temperature"`       // Sampling temperature.
	ContextWindow int     `json:"context_window" yaml:"context_window"` // Stored messages sent along with each input.
	Persona       string  `json:"persona" yaml:"persona"`               // System preamble describing the assistant.
}

const (
	DefaultModel         = "gpt-3.5-turbo"
	DefaultMaxTokens     = 200
	DefaultTemperature   = 0.7
	DefaultContextWindow = 5
)

// DefaultConfig returns a RelayConfig with the stock model parameters and
// no persona.
func DefaultConfig() RelayConfig {
	return RelayConfig{
		Model:         DefaultModel,
		MaxTokens:     DefaultMaxTokens,
		Temperature:   DefaultTemperature,
		ContextWindow: DefaultContextWindow,
	}
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.ContextWindow <= 0 {
		c.ContextWindow = DefaultContextWindow
	}
	return c
}
