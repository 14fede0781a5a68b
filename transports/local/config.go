package local

import (
	"strconv"
	"strings"
)

// RatePlaceholder in a command argument is replaced by the stream's sample rate.
const RatePlaceholder = "{rate}"

// Config holds the commands used to reach the local audio devices.
type Config struct {
	// Command writing 16-bit mono PCM to stdout, raw or with a WAV header
	CaptureCommand []string `yaml:"capture_command" json:"capture_command"`

	// Capture sample rate (Hz)
	CaptureSampleRate int `yaml:"capture_sample_rate" json:"capture_sample_rate"`

	// Command playing raw 16-bit mono PCM read from stdin
	PlayerCommand []string `yaml:"player_command" json:"player_command"`
}

// DefaultConfig returns ALSA utility commands at 16 kHz capture.
func DefaultConfig() Config {
	return Config{
		CaptureCommand:    []string{"arecord", "-q", "-f", "S16_LE", "-r", RatePlaceholder, "-c", "1", "-t", "raw"},
		CaptureSampleRate: 16000,
		PlayerCommand:     []string{"aplay", "-q", "-f", "S16_LE", "-r", RatePlaceholder, "-c", "1", "-t", "raw"},
	}
}

func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if len(c.CaptureCommand) == 0 {
		c.CaptureCommand = d.CaptureCommand
	}
	if c.CaptureSampleRate <= 0 {
		c.CaptureSampleRate = d.CaptureSampleRate
	}
	if len(c.PlayerCommand) == 0 {
		c.PlayerCommand = d.PlayerCommand
	}
	return c
}

func expandCommand(command []string, sampleRate int) []string {
	rate := strconv.Itoa(sampleRate)
	out := make([]string, len(command))
	for i, arg := range command {
		out[i] = strings.ReplaceAll(arg, RatePlaceholder, rate)
	}
	return out
}
