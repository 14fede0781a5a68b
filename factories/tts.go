package factories

import (
	"voicechat/core"
	ttshandler "voicechat/handlers/tts"
	elevenlabs "voicechat/services/elevenlabs/tts"
	"voicechat/transports/local"
)

// TTSFactoryConfig configures voice output: speaking rate and volume, and
// the ElevenLabs backend.
type TTSFactoryConfig struct {
	Speaker    ttshandler.SpeakerConfig       `json:"speaker" yaml:"speaker"`
	ElevenLabs elevenlabs.ElevenLabsTTSConfig `json:"elevenlabs" yaml:"elevenlabs"`
}

func DefaultTTSFactoryConfig() TTSFactoryConfig {
	return TTSFactoryConfig{
		Speaker: ttshandler.DefaultConfig(),
	}
}

// Enabled reports whether voice output can be built, i.e. a key is set.
func (c TTSFactoryConfig) Enabled() bool {
	return c.ElevenLabs.APIKey != ""
}

// BuildSpeaker wires the ElevenLabs backend to the local player. The
// speaking rate sets the backend speed unless one is configured.
func BuildSpeaker(config TTSFactoryConfig, audio local.Config, logger *core.Logger) (*ttshandler.Speaker, core.IService) {
	speaker := config.Speaker
	if speaker.Rate <= 0 {
		speaker.Rate = ttshandler.DefaultConfig().Rate
	}

	elCfg := config.ElevenLabs
	if elCfg.Speed == 0 {
		elCfg.Speed = ttshandler.SpeedForRate(speaker.Rate)
	}
	synth := elevenlabs.NewElevenLabsTTS(elCfg, logger)
	player := local.NewPlayer(audio, logger)
	return ttshandler.NewSpeaker(synth, player, speaker, logger), synth
}
