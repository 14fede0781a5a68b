package factories

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voicechat/core"
	openaillm "voicechat/services/openai/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings().normalize()
	assert.Equal(t, "gpt-3.5-turbo", s.Relay.Model)
	assert.Equal(t, 200, s.Relay.MaxTokens)
	assert.InDelta(t, 0.7, s.Relay.Temperature, 1e-6)
	assert.Equal(t, 5, s.Relay.ContextWindow)
	assert.Equal(t, DefaultPersona, s.Relay.Persona)
	assert.Equal(t, 150, s.TTS.Speaker.Rate)
	assert.InDelta(t, 0.9, s.TTS.Speaker.Volume, 1e-9)
	assert.Equal(t, 5*time.Second, s.Session.ListenTimeout)
	assert.Equal(t, 10*time.Second, s.Session.PhraseLimit)
	assert.Equal(t, 16000, s.Audio.CaptureSampleRate)
	assert.Equal(t, "openai", s.LLM.ProviderName())
}

func TestSettingsFromJSON(t *testing.T) {
	s, err := SettingsFromJSON([]byte(`{
		"llm": {"groq": {}},
		"relay": {"max_tokens": 120, "persona": "You are Ada."},
		"stt": {"deepgram": {"model": "nova-3", "encoding": "mulaw"}},
		"session": {"voice_output": true}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "groq", s.LLM.ProviderName())
	assert.Equal(t, "llama-3.3-70b-versatile", s.Relay.Model)
	assert.Equal(t, 120, s.Relay.MaxTokens)
	assert.InDelta(t, 0.7, s.Relay.Temperature, 1e-6)
	assert.Equal(t, "You are Ada.", s.Relay.Persona)
	assert.Equal(t, "nova-3", s.STT.Deepgram.Model)
	assert.Equal(t, "mulaw", s.STT.Deepgram.Encoding)
	assert.Equal(t, "en-US", s.STT.Deepgram.Language)
	assert.True(t, s.Session.VoiceOutput)
	assert.True(t, s.Session.VoiceInput)
}

func TestSettingsFromJSON_Invalid(t *testing.T) {
	_, err := SettingsFromJSON([]byte(`{"relay": `))
	assert.Error(t, err)
}

func TestSettingsFromFile_YAMLWithPersonaFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "persona.txt", "  You are Grace, a compiler engineer.\n")
	path := writeFile(t, dir, "settings.yaml", strings.Join([]string{
		"relay:",
		"  model: gpt-4o-mini",
		"  context_window: 8",
		"persona_file: persona.txt",
		"session:",
		"  listen_timeout: 3s",
		"  voice_input: false",
		"tts:",
		"  elevenlabs:",
		"    output_format: ulaw_8000",
		"audio:",
		"  player_command: [paplay, --raw]",
		"log:",
		"  level: debug",
	}, "\n"))

	s, err := SettingsFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", s.Relay.Model)
	assert.Equal(t, 8, s.Relay.ContextWindow)
	assert.Equal(t, "You are Grace, a compiler engineer.", s.Relay.Persona)
	assert.Equal(t, 3*time.Second, s.Session.ListenTimeout)
	assert.Equal(t, 10*time.Second, s.Session.PhraseLimit)
	assert.False(t, s.Session.VoiceInput)
	assert.Equal(t, "ulaw_8000", s.TTS.ElevenLabs.OutputFormat)
	assert.Equal(t, []string{"paplay", "--raw"}, s.Audio.PlayerCommand)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestSettingsFromFile_ExampleSettings(t *testing.T) {
	s, err := SettingsFromFile(filepath.Join("..", "settings.example.yaml"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(s.Relay.Persona, "You are Keerti Sai Naidu, an engineer"), s.Relay.Persona)
	assert.NotEqual(t, DefaultPersona, s.Relay.Persona)
	assert.Equal(t, "openai", s.LLM.ProviderName())
	assert.Equal(t, "gpt-3.5-turbo", s.Relay.Model)
	assert.Equal(t, 5*time.Second, s.Session.ListenTimeout)
	assert.Equal(t, 150, s.TTS.Speaker.Rate)
}

func TestSettingsFromYAML_ZeroTemperatureKept(t *testing.T) {
	s, err := SettingsFromYAML([]byte("relay:\n  temperature: 0\n"))
	require.NoError(t, err)
	assert.Zero(t, s.Relay.Temperature)
	assert.Equal(t, 200, s.Relay.MaxTokens)
}

func TestSettingsFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	s, err := SettingsFromFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
	assert.Equal(t, "gpt-3.5-turbo", s.Relay.Model)

	path := writeFile(t, dir, "settings.json", `{"persona_file": "nope.txt"}`)
	_, err = SettingsFromFile(path)
	assert.ErrorContains(t, err, "persona file")
}

func TestAPIKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("DEEPGRAM_API_KEY", "dg-env")
	t.Setenv("ELEVENLABS_API_KEY", "el-env")

	keys := APIKeysFromEnv()
	assert.Equal(t, APIKeys{OpenAI: "sk-env", Deepgram: "dg-env", ElevenLabs: "el-env"}, keys)

	s := DefaultSettings()
	s.TTS.ElevenLabs.APIKey = "el-file"
	s.InjectAPIKeys(keys)
	assert.Equal(t, "dg-env", s.STT.Deepgram.APIKey)
	assert.Equal(t, "el-file", s.TTS.ElevenLabs.APIKey)
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".env.local", "VOICECHAT_TEST_KEY=from-file\n")
	t.Setenv("VOICECHAT_TEST_KEY", "")
	os.Unsetenv("VOICECHAT_TEST_KEY")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("VOICECHAT_TEST_KEY"))
	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent")))
}

func TestLLMFactoryConfig_Providers(t *testing.T) {
	tests := []struct {
		name      string
		config    LLMFactoryConfig
		wantName  string
		wantModel string
	}{
		{name: "none", config: LLMFactoryConfig{}, wantName: "openai", wantModel: "gpt-3.5-turbo"},
		{name: "openai", config: LLMFactoryConfig{OpenAIConfig: &openaillm.Config{}}, wantName: "openai", wantModel: "gpt-3.5-turbo"},
		{name: "deepseek", config: LLMFactoryConfig{DeepSeekConfig: &openaillm.Config{}}, wantName: "deepseek", wantModel: "deepseek-chat"},
		{name: "mistral", config: LLMFactoryConfig{MistralConfig: &openaillm.Config{}}, wantName: "mistral", wantModel: "mistral-small-latest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.config.ProviderName())
			assert.Equal(t, tt.wantModel, tt.config.DefaultModel())
			assert.NotNil(t, BuildLLMService(tt.config, core.NewNopLogger()))
		})
	}
}

func TestBuildLogger(t *testing.T) {
	for _, format := range []string{"dev", "console", "json", ""} {
		logger, err := BuildLogger(LogConfig{Level: "error", Format: format})
		require.NoError(t, err, format)
		logger.Info("dropped below error level")
	}
}

func TestBuildSession_TextOnly(t *testing.T) {
	s := DefaultSettings()
	s.Log.Dir = t.TempDir()

	sess, err := BuildSession(context.Background(), s, core.NewNopLogger())
	require.NoError(t, err)
	assert.Len(t, sess.ID, 36)
	assert.False(t, sess.Controller.VoiceInput())
	assert.False(t, sess.Controller.VoiceOutput())
	assert.Equal(t, filepath.Join(s.Log.Dir, sess.ID+".jsonl"), sess.LogPath)

	sess.Controller.SetCredential("sk-test")
	require.NoError(t, sess.Close())

	data, err := os.ReadFile(sess.LogPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[0], `"session_id":"`+sess.ID+`"`)
	assert.Contains(t, lines[0], `"model":"gpt-3.5-turbo"`)
	assert.Contains(t, string(data), "session started")
	assert.NotContains(t, string(data), "sk-test")
}

func TestBuildSession_WithVoice(t *testing.T) {
	s := DefaultSettings()
	s.Session.VoiceOutput = true
	s.InjectAPIKeys(APIKeys{Deepgram: "dg", ElevenLabs: "el"})

	sess, err := BuildSession(context.Background(), s, core.NewNopLogger())
	require.NoError(t, err)
	defer sess.Close()
	assert.True(t, sess.Controller.VoiceInput())
	assert.True(t, sess.Controller.VoiceOutput())
	assert.Len(t, sess.services, 3)
}

func TestBuildSession_InvalidVoiceConfig(t *testing.T) {
	s := DefaultSettings()
	s.InjectAPIKeys(APIKeys{ElevenLabs: "el"})
	s.TTS.ElevenLabs.OutputFormat = "mp3_44100_128"

	_, err := BuildSession(context.Background(), s, core.NewNopLogger())
	assert.ErrorContains(t, err, "init services")
}
