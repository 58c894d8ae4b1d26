// internal/link/config.go
package link

import (
	"fmt"
	"time"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// Config for the duplex link and its transports.
type Config struct {
	// Listen is the inbound TCP address.
	Listen string `yaml:"listen"`
	// Send is the outbound TCP address; ignored when SendURL is set.
	Send string `yaml:"send"`
	// SendURL switches the outbound side to a WebSocket (ws:// or wss://).
	SendURL string `yaml:"send_url"`

	// Modality and Shape describe inbound payloads. An empty shape decodes
	// each payload as a flat vector of whatever length arrives.
	Modality string `yaml:"modality"`
	Shape    []int  `yaml:"shape"`

	ByteOrder              string        `yaml:"byte_order"`
	MaxFrameBytes          int64         `yaml:"max_frame_bytes"`
	DialTimeout            time.Duration `yaml:"dial_timeout"`
	WriteTimeout           time.Duration `yaml:"write_timeout"`
	StopTimeout            time.Duration `yaml:"stop_timeout"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
}

func DefaultConfig() Config {
	return Config{
		Listen:                 "127.0.0.1:8080",
		Modality:               "eeg",
		ByteOrder:              "little",
		MaxFrameBytes:          64 << 20,
		DialTimeout:            5 * time.Second,
		WriteTimeout:           10 * time.Second,
		StopTimeout:            5 * time.Second,
		MaxConsecutiveFailures: 1,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Modality == "" {
		c.Modality = d.Modality
	}
	if c.ByteOrder == "" {
		c.ByteOrder = d.ByteOrder
	}
	if c.MaxFrameBytes == 0 {
		c.MaxFrameBytes = d.MaxFrameBytes
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = d.StopTimeout
	}
	if c.MaxConsecutiveFailures == 0 {
		c.MaxConsecutiveFailures = d.MaxConsecutiveFailures
	}
	return c
}

func (c Config) Validate() error {
	if c.Send == "" && c.SendURL == "" {
		return fmt.Errorf("link: one of send or send_url is required")
	}
	if !core.Modality(c.Modality).Valid() {
		return fmt.Errorf("link: unknown modality %q", c.Modality)
	}
	if len(c.Shape) > 0 {
		if _, err := core.ShapeSize(c.Shape); err != nil {
			return fmt.Errorf("link: invalid shape: %w", err)
		}
	}
	if _, err := core.NewCodec(c.ByteOrder); err != nil {
		return err
	}
	if c.MaxFrameBytes < 8 {
		return fmt.Errorf("link: max_frame_bytes must hold at least one value")
	}
	if c.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("link: max_consecutive_failures must be at least 1")
	}
	return nil
}
