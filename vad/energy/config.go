package energy

import "time"

// Config holds configuration for the energy-based listener.
type Config struct {
	SampleRate          int           `json:"sample_rate" yaml:"sample_rate"`                   // Rate of the PCM stream, mono 16-bit.
	FrameDuration       time.Duration `json:"frame_duration" yaml:"frame_duration"`             // Audio analysed per step.
	EnergyThreshold     float64       `json:"energy_threshold" yaml:"energy_threshold"`         // RMS above which a frame counts as speech.
	ThresholdMultiplier float64       `json:"threshold_multiplier" yaml:"threshold_multiplier"` // Calibrated threshold = ambient RMS times this.
	CalibrationDuration time.Duration `json:"calibration_duration" yaml:"calibration_duration"` // Ambient noise sampled before listening.
	PauseDuration       time.Duration `json:"pause_duration" yaml:"pause_duration"`             // Silence that ends a phrase.
	PreRoll             time.Duration `json:"pre_roll" yaml:"pre_roll"`                         // Audio kept from before speech started.
}

// DefaultConfig returns a Config with sensible defaults for 16 kHz speech.
func DefaultConfig() Config {
	return Config{
		SampleRate:          16000,
		FrameDuration:       32 * time.Millisecond,
		EnergyThreshold:     300,
		ThresholdMultiplier: 1.5,
		CalibrationDuration: time.Second,
		PauseDuration:       800 * time.Millisecond,
		PreRoll:             300 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.FrameDuration <= 0 {
		c.FrameDuration = d.FrameDuration
	}
	if c.EnergyThreshold <= 0 {
		c.EnergyThreshold = d.EnergyThreshold
	}
	if c.ThresholdMultiplier <= 0 {
		c.ThresholdMultiplier = d.ThresholdMultiplier
	}
	if c.PauseDuration <= 0 {
		c.PauseDuration = d.PauseDuration
	}
	return c
}

// frameBytes is the size of one analysis frame of 16-bit mono PCM.
func (c Config) frameBytes() int {
	samples := int(int64(c.SampleRate) * int64(c.FrameDuration) / int64(time.Second))
	if samples < 1 {
		samples = 1
	}
	return samples * 2
}
