// internal/device/device.go
package device

import (
	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// Source - acquisition side of a device (EEG headset, replay file, ...).
type Source interface {
	Read() (core.Frame, error)
	Close() error
}

// Sink - device that accepts whole frames (fMRI feedback writer).
type Sink interface {
	Write(core.Frame) error
	Close() error
}

// Actuator - device that is driven to a discrete target (optogenetic stimulator).
type Actuator interface {
	Stimulate(target int) error
	Close() error
}

// Config selects and parameterizes the devices of the process.
type Config struct {
	// Mode is "sim" (seeded simulators) or "replay" (EEG source read from Recording).
	Mode      string `yaml:"mode"`
	Recording string `yaml:"recording"`
	Seed      int64  `yaml:"seed"`
}

func DefaultConfig() Config {
	return Config{Mode: "sim", Seed: 1}
}
