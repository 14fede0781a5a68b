package factories

import (
	"voicechat/core"
	stthandler "voicechat/handlers/stt"
	deepgramstt "voicechat/services/deepgram/stt"
	"voicechat/transports/local"
	"voicechat/vad/energy"
)

// STTFactoryConfig configures voice input: the listener that cuts phrases
// out of the microphone stream and the Deepgram recognizer.
type STTFactoryConfig struct {
	Deepgram deepgramstt.DeepgramConfig `json:"deepgram" yaml:"deepgram"`
	Listener energy.Config              `json:"listener" yaml:"listener"`
}

func DefaultSTTFactoryConfig() STTFactoryConfig {
	return STTFactoryConfig{
		Deepgram: deepgramstt.DefaultConfig(),
		Listener: energy.DefaultConfig(),
	}
}

// Enabled reports whether voice input can be built, i.e. a key is set.
func (c STTFactoryConfig) Enabled() bool {
	return c.Deepgram.APIKey != ""
}

// BuildTranscriber wires microphone, listener and recognizer together. The
// recognizer is returned separately so the caller can Init and Cleanup it.
func BuildTranscriber(config STTFactoryConfig, audio local.Config, logger *core.Logger) (*stthandler.CaptureTranscriber, core.IService) {
	audio = audio.WithDefaults()
	mic := local.NewMicrophone(audio, logger)

	listenerCfg := config.Listener
	listenerCfg.SampleRate = audio.CaptureSampleRate
	listener := energy.NewListener(mic, listenerCfg, logger)

	recognizer := deepgramstt.NewDeepgramSTTService(config.Deepgram, logger)
	return stthandler.NewCaptureTranscriber(mic, listener, recognizer, logger), recognizer
}
