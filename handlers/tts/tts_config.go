package tts

type SpeakerConfig struct {
	Rate   int     `json:"rate" yaml:"rate"`     // Speaking rate in words per minute.
	Volume float64 `json:"volume" yaml:"volume"` // Linear gain applied to synthesized PCM, 0 to 1.
}

// DefaultConfig returns a SpeakerConfig with the defaults used by the chat
// front-end: 150 words per minute at 90% volume.
func DefaultConfig() SpeakerConfig {
	return SpeakerConfig{
		Rate:   150,
		Volume: 0.9,
	}
}

func (c SpeakerConfig) withDefaults() SpeakerConfig {
	d := DefaultConfig()
	if c.Rate <= 0 {
		c.Rate = d.Rate
	}
	if c.Volume <= 0 || c.Volume > 1 {
		c.Volume = d.Volume
	}
	return c
}

// SpeedForRate maps a words-per-minute rate onto the ElevenLabs speed
// multiplier, where 1.0 is roughly 200 wpm. The service accepts 0.7 to 1.2.
func SpeedForRate(rate int) float64 {
	speed := float64(rate) / 200
	if speed < 0.7 {
		return 0.7
	}
	if speed > 1.2 {
		return 1.2
	}
	return speed
}
