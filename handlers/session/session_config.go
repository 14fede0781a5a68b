package session

import "time"

type SessionConfig struct {
	ListenTimeout time.Duration `json:"listen_timeout" yaml:"listen_timeout"` // How long to wait for speech to start.
	PhraseLimit   time.Duration `json:"phrase_limit" yaml:"phrase_limit"`     // Longest single utterance.
	VoiceInput    bool          `json:"voice_input" yaml:"voice_input"`       // Initial state of the voice input toggle.
	VoiceOutput   bool          `json:"voice_output" yaml:"voice_output"`     // Initial state of the voice output toggle.
}

// DefaultConfig listens for 5 s, caps phrases at 10 s, and starts with
// voice input on and voice output off.
func DefaultConfig() SessionConfig {
	return SessionConfig{
		ListenTimeout: 5 * time.Second,
		PhraseLimit:   10 * time.Second,
		VoiceInput:    true,
		VoiceOutput:   false,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	d := DefaultConfig()
	if c.ListenTimeout <= 0 {
		c.ListenTimeout = d.ListenTimeout
	}
	if c.PhraseLimit <= 0 {
		c.PhraseLimit = d.PhraseLimit
	}
	return c
}

var sampleQuestions = []string{
	"Tell me about yourself",
	"What are your strengths?",
	"Where do you see yourself in 5 years?",
	"Why should we hire you?",
	"What's your biggest weakness?",
	"Describe a challenging project you worked on",
	"How do you handle tight deadlines?",
	"What technologies are you most excited about?",
}

// SampleQuestions returns the ice breaker questions offered to the user.
func SampleQuestions() []string {
	out := make([]string, len(sampleQuestions))
	copy(out, sampleQuestions)
	return out
}
