package factories

import (
	"context"
	"fmt"

	"voicechat/core"
	"voicechat/handlers/relay"
	"voicechat/handlers/session"
	"voicechat/handlers/stt"

	"github.com/google/uuid"
)

// Session is one chat session with everything it owns.
type Session struct {
	ID         string
	Controller *session.Controller
	Logger     *core.Logger
	LogPath    string

	services  []core.IService
	logWriter *core.SessionLogWriter
}

// BuildSession assembles store, relay, voice pipelines and controller from
// settings. Voice input and output are only built when their service keys
// are present; the toggles stay off otherwise.
func BuildSession(ctx context.Context, settings Settings, logger *core.Logger) (*Session, error) {
	if logger == nil {
		logger = core.GetLogger()
	}
	settings = settings.normalize()
	s := &Session{ID: uuid.NewString()}

	if settings.Log.Dir != "" {
		writer, err := core.NewSessionLogWriter(settings.Log.Dir, s.ID, settings.Relay.Model)
		if err != nil {
			return nil, err
		}
		s.logWriter = writer
		s.LogPath = writer.Path()
		logger = core.NewSessionLogger(logger, writer)
	}
	s.Logger = logger.With(map[string]interface{}{"session_id": s.ID})

	store := core.NewConversationStore()
	completion := BuildLLMService(settings.LLM, s.Logger)
	s.services = append(s.services, completion)
	replier := relay.NewResponseRelay(completion, store, settings.Relay, s.Logger)

	var transcriber stt.Transcriber
	if settings.STT.Enabled() {
		t, recognizer := BuildTranscriber(settings.STT, settings.Audio, s.Logger)
		transcriber = t
		s.services = append(s.services, recognizer)
	} else if settings.Session.VoiceInput {
		s.Logger.Warn("voice input unavailable: DEEPGRAM_API_KEY is not set")
	}

	var speaker session.Speaker
	if settings.TTS.Enabled() {
		sp, synth := BuildSpeaker(settings.TTS, settings.Audio, s.Logger)
		speaker = sp
		s.services = append(s.services, synth)
	} else if settings.Session.VoiceOutput {
		s.Logger.Warn("voice output unavailable: ELEVENLABS_API_KEY is not set")
	}

	if err := core.InitServices(ctx, s.services...); err != nil {
		s.closeLog()
		return nil, fmt.Errorf("init services: %w", err)
	}

	s.Controller = session.NewController(store, replier, transcriber, speaker, settings.Session, s.Logger)
	s.Logger.Info("session started",
		"provider", settings.LLM.ProviderName(),
		"model", settings.Relay.Model,
		"voice_input", s.Controller.VoiceInput(),
		"voice_output", s.Controller.VoiceOutput(),
	)
	return s, nil
}

// Close releases every service and the session log.
func (s *Session) Close() error {
	err := core.CleanupServices(s.services...)
	s.Logger.Info("session closed", "messages", len(s.Controller.Messages()))
	_ = s.Logger.Sync()
	s.closeLog()
	return err
}

func (s *Session) closeLog() {
	if s.logWriter != nil {
		s.logWriter.Close()
	}
}
