package factories

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voicechat/handlers/relay"
	"voicechat/handlers/session"
	"voicechat/transports/local"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPersona is the system preamble used when settings name none.
const DefaultPersona = "You are a friendly software engineer answering interview-style questions " +
	"about your background, projects and goals. Answer in the first person, stay concise, " +
	"and keep a warm, professional tone."

// Settings is the top-level config loaded from settings.json or settings.yaml.
type Settings struct {
	// LLM selects the completion provider.
	LLM LLMFactoryConfig `json:"llm" yaml:"llm"`
	// Relay sets the model parameters, context window and persona.
	Relay relay.RelayConfig `json:"relay" yaml:"relay"`
	// PersonaFile, when set, replaces Relay.Persona with the file's contents.
	// Relative paths resolve against the settings file.
	PersonaFile string `json:"persona_file,omitempty" yaml:"persona_file,omitempty"`
	// STT configures voice input.
	STT STTFactoryConfig `json:"stt" yaml:"stt"`
	// TTS configures voice output.
	TTS TTSFactoryConfig `json:"tts" yaml:"tts"`
	// Audio holds the capture and playback device commands.
	Audio local.Config `json:"audio" yaml:"audio"`
	// Session sets listen timeouts and the initial voice toggles.
	Session session.SessionConfig `json:"session" yaml:"session"`
	// Log configures process and per-session logging.
	Log LogConfig `json:"log" yaml:"log"`
}

// DefaultSettings returns Settings pre-filled with every default. The
// relay model stays empty so it can follow the selected provider.
func DefaultSettings() Settings {
	r := relay.DefaultConfig()
	r.Model = ""
	r.Persona = DefaultPersona
	return Settings{
		Relay:   r,
		STT:     DefaultSTTFactoryConfig(),
		TTS:     DefaultTTSFactoryConfig(),
		Audio:   local.DefaultConfig(),
		Session: session.DefaultConfig(),
		Log:     DefaultLogConfig(),
	}
}

// SettingsFromJSON parses a JSON blob on top of DefaultSettings.
func SettingsFromJSON(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := sonic.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	return s.normalize(), nil
}

// SettingsFromYAML parses a YAML blob on top of DefaultSettings.
func SettingsFromYAML(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	return s.normalize(), nil
}

// SettingsFromFile reads settings, choosing the decoder by extension, and
// loads the persona file if one is named.
func SettingsFromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettings().normalize(), fmt.Errorf("settings: read %q: %w", path, err)
	}

	var s Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		s, err = SettingsFromYAML(data)
	default:
		s, err = SettingsFromJSON(data)
	}
	if err != nil {
		return Settings{}, err
	}

	if s.PersonaFile != "" {
		personaPath := s.PersonaFile
		if !filepath.IsAbs(personaPath) {
			personaPath = filepath.Join(filepath.Dir(path), personaPath)
		}
		persona, err := os.ReadFile(personaPath)
		if err != nil {
			return Settings{}, fmt.Errorf("settings: persona file: %w", err)
		}
		s.Relay.Persona = strings.TrimSpace(string(persona))
	}
	return s, nil
}

func (s Settings) normalize() Settings {
	if s.Relay.Model == "" {
		s.Relay.Model = s.LLM.DefaultModel()
	}
	if strings.TrimSpace(s.Relay.Persona) == "" {
		s.Relay.Persona = DefaultPersona
	}
	return s
}

// APIKeys holds the secrets read from the environment. OpenAI is the
// session credential and is handed to the controller, never to a config.
type APIKeys struct {
	OpenAI     string
	Deepgram   string
	ElevenLabs string
}

// LoadEnvFile loads KEY=value pairs from path into the environment without
// overriding variables that are already set.
func LoadEnvFile(path string) error {
	return godotenv.Load(path)
}

func APIKeysFromEnv() APIKeys {
	return APIKeys{
		OpenAI:     os.Getenv("OPENAI_API_KEY"),
		Deepgram:   os.Getenv("DEEPGRAM_API_KEY"),
		ElevenLabs: os.Getenv("ELEVENLABS_API_KEY"),
	}
}

// InjectAPIKeys fills service keys the settings file left empty.
func (s *Settings) InjectAPIKeys(keys APIKeys) {
	if s.STT.Deepgram.APIKey == "" {
		s.STT.Deepgram.APIKey = keys.Deepgram
	}
	if s.TTS.ElevenLabs.APIKey == "" {
		s.TTS.ElevenLabs.APIKey = keys.ElevenLabs
	}
}
