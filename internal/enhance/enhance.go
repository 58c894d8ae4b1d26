// internal/enhance/enhance.go
package enhance

import (
	"fmt"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// Augmentor is the EEG collaborator of MemoryEnhancer.
type Augmentor interface {
	Augment(core.Frame) (core.Frame, error)
	Preprocess(core.Frame) (core.Frame, error)
	Close() error
}

// Stimulator is the fMRI collaborator of AttentionEnhancer.
type Stimulator interface {
	Load(core.Frame) (core.Frame, error)
	Preprocess(core.Frame) (core.Frame, error)
	Stimulate(core.Frame) error
	Close() error
}

// Emulator is the optogenetic collaborator of CreativityEnhancer.
type Emulator interface {
	Decode(core.Frame) (core.Frame, error)
	Preprocess(core.Frame) (core.Frame, error)
	Emulate(target int) error
	Close() error
}

// Config holds engine sizes and score factors.
type Config struct {
	MemorySize          int     `yaml:"memory_size"`
	AttentionSpan       int     `yaml:"attention_span"`
	CreativityFactor    float64 `yaml:"creativity_factor"`
	NormalizationFactor float64 `yaml:"normalization_factor"`
	ValidationFactor    float64 `yaml:"validation_factor"`
	EEGShape            []int   `yaml:"eeg_shape"`
	FMRIShape           []int   `yaml:"fmri_shape"`
	OptoRegions         int     `yaml:"opto_regions"`
	Seed                int64   `yaml:"seed"`
}

// DefaultConfig returns laptop-sized defaults. Full-scale acquisition is
// EEG 64 channels x 2560 samples and fMRI 64x64x64 voxels.
func DefaultConfig() Config {
	return Config{
		MemorySize:          1024,
		AttentionSpan:       12,
		CreativityFactor:    0.5,
		NormalizationFactor: 0.1,
		ValidationFactor:    0.9,
		EEGShape:            []int{16, 64},
		FMRIShape:           []int{16, 16, 4},
		OptoRegions:         16,
		Seed:                1,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.MemorySize == 0 {
		c.MemorySize = d.MemorySize
	}
	if c.AttentionSpan == 0 {
		c.AttentionSpan = d.AttentionSpan
	}
	if c.CreativityFactor == 0 {
		c.CreativityFactor = d.CreativityFactor
	}
	if c.NormalizationFactor == 0 {
		c.NormalizationFactor = d.NormalizationFactor
	}
	if c.ValidationFactor == 0 {
		c.ValidationFactor = d.ValidationFactor
	}
	if len(c.EEGShape) == 0 {
		c.EEGShape = d.EEGShape
	}
	if len(c.FMRIShape) == 0 {
		c.FMRIShape = d.FMRIShape
	}
	if c.OptoRegions == 0 {
		c.OptoRegions = d.OptoRegions
	}
	return c
}

func (c Config) Validate() error {
	if c.MemorySize < 1 {
		return fmt.Errorf("memory_size must be at least 1")
	}
	if c.AttentionSpan < 1 {
		return fmt.Errorf("attention_span must be at least 1")
	}
	if c.OptoRegions < 1 {
		return fmt.Errorf("opto_regions must be at least 1")
	}
	if _, err := core.ShapeSize(c.EEGShape); err != nil {
		return fmt.Errorf("eeg_shape: %w", err)
	}
	size, err := core.ShapeSize(c.FMRIShape)
	if err != nil {
		return fmt.Errorf("fmri_shape: %w", err)
	}
	if size < c.OptoRegions {
		return fmt.Errorf("fmri_shape holds %d voxels, fewer than opto_regions (%d)", size, c.OptoRegions)
	}
	return nil
}
