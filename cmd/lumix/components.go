// cmd/lumix/components.go
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/Parhamfakhar1/lumix-bci/internal/augment"
	"github.com/Parhamfakhar1/lumix-bci/internal/core"
	"github.com/Parhamfakhar1/lumix-bci/internal/device"
	"github.com/Parhamfakhar1/lumix-bci/internal/enhance"
	"github.com/Parhamfakhar1/lumix-bci/internal/model"
	"github.com/Parhamfakhar1/lumix-bci/internal/store"
)

type Components struct {
	Engine     *enhance.IntelligenceEnhancer
	Normalizer *enhance.Normalizer
	Validator  *enhance.Validator
	Ethicist   *enhance.Ethicist
	// Session stages all of the above for local runs.
	Session *enhance.Session

	// Source feeds local runs; nil when only the link is served.
	Source   device.Source
	Actuator *device.SimActuator
	Sink     *device.SimSink

	Store    *store.Store
	Archiver *store.Archiver
	Registry *prometheus.Registry
}

func setupComponents(config *Config) (*Components, error) {
	c := &Components{Registry: prometheus.NewRegistry()}
	if err := c.build(config); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Components) build(config *Config) error {
	engine := config.Engine

	classifier, err := model.NewBandPowerClassifier(config.Model.EEGClasses)
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}
	decoder, err := model.NewPoolDecoder(engine.OptoRegions, config.Model.DecoderTemperature)
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	// simulated feedback devices shared by the engine stages
	c.Sink = device.NewSimSink()
	c.Actuator = device.NewSimActuator(engine.OptoRegions)
	noise := rand.New(rand.NewSource(config.Augment.Seed))

	// engine: memory -> attention -> creativity

	memory, err := enhance.NewMemoryEnhancer(
		augment.NewEEGAugmentor(classifier, engine.EEGShape, config.Augment.EEGNoise, noise),
		engine.MemorySize, engine.EEGShape)
	if err != nil {
		return fmt.Errorf("failed to create memory enhancer: %w", err)
	}
	attention, err := enhance.NewAttentionEnhancer(
		augment.NewFMRIStimulator(c.Sink, model.ZScoreAnalyzer{}, engine.FMRIShape, config.Augment.FMRIGain),
		engine.AttentionSpan, engine.FMRIShape)
	if err != nil {
		memory.Close()
		return fmt.Errorf("failed to create attention enhancer: %w", err)
	}
	creativity, err := enhance.NewCreativityEnhancer(
		augment.NewOptoEmulator(c.Actuator, decoder),
		engine.OptoRegions, engine.CreativityFactor, rand.New(rand.NewSource(engine.Seed)))
	if err != nil {
		memory.Close()
		attention.Close()
		return fmt.Errorf("failed to create creativity enhancer: %w", err)
	}
	c.Engine = enhance.NewIntelligenceEnhancer(memory, attention, creativity)

	// normalization and validation run on their own windows
	normMemory, err := enhance.NewMemoryEnhancer(
		augment.NewEEGAugmentor(classifier, engine.EEGShape, config.Augment.EEGNoise, rand.New(rand.NewSource(config.Augment.Seed+1))),
		engine.MemorySize, engine.EEGShape)
	if err != nil {
		return fmt.Errorf("failed to create normalizer: %w", err)
	}
	if c.Normalizer, err = enhance.NewNormalizer(normMemory, engine.NormalizationFactor); err != nil {
		normMemory.Close()
		return fmt.Errorf("failed to create normalizer: %w", err)
	}
	validAttention, err := enhance.NewAttentionEnhancer(
		augment.NewFMRIStimulator(device.NewSimSink(), model.ZScoreAnalyzer{}, engine.FMRIShape, config.Augment.FMRIGain),
		engine.AttentionSpan, engine.FMRIShape)
	if err != nil {
		return fmt.Errorf("failed to create validator: %w", err)
	}
	if c.Validator, err = enhance.NewValidator(validAttention, engine.ValidationFactor); err != nil {
		validAttention.Close()
		return fmt.Errorf("failed to create validator: %w", err)
	}

	// the ethicist scores engine output through its own creativity stage and actuator
	ethicsCreativity, err := enhance.NewCreativityEnhancer(
		augment.NewOptoEmulator(device.NewSimActuator(engine.OptoRegions), decoder),
		engine.OptoRegions, engine.CreativityFactor, rand.New(rand.NewSource(engine.Seed+1)))
	if err != nil {
		return fmt.Errorf("failed to create ethicist: %w", err)
	}
	c.Ethicist = enhance.NewEthicist(ethicsCreativity, model.NewEntropyScorer(config.Model.EthicsTemperature))
	c.Session = enhance.NewSession(c.Normalizer, c.Engine, c.Validator, c.Ethicist)

	// input and archive
	if c.Source, err = openSource(config); err != nil {
		return err
	}

	if config.Store.Enabled {
		if c.Store, err = store.Open(context.Background(), config.Store); err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		c.Archiver = store.NewArchiver(c.Store, config.Link.WriteTimeout)
	}
	return nil
}

// openSource returns the EEG source selected by the devices section.
func openSource(config *Config) (device.Source, error) {
	switch config.Devices.Mode {
	case "replay":
		rec, err := device.LoadRecording(config.Devices.Recording)
		if err != nil {
			return nil, fmt.Errorf("failed to load recording: %w", err)
		}
		log.Info().
			Str("path", config.Devices.Recording).
			Str("modality", string(rec.Modality)).
			Int("frames", len(rec.Frames)).
			Msg("Recording loaded")
		return device.NewReplaySource(rec, false), nil
	default:
		src, err := device.NewSimSource(core.ModalityEEG, config.Engine.EEGShape, config.Devices.Seed)
		if err != nil {
			return nil, fmt.Errorf("failed to create simulated source: %w", err)
		}
		return src, nil
	}
}

// Close releases every component that was created. Closing twice is safe.
func (c *Components) Close() error {
	var errs []error
	if c.Engine != nil {
		if err := c.Engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("engine: %w", err))
		}
	}
	if c.Normalizer != nil {
		if err := c.Normalizer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("normalizer: %w", err))
		}
	}
	if c.Validator != nil {
		if err := c.Validator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("validator: %w", err))
		}
	}
	if c.Ethicist != nil {
		if err := c.Ethicist.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ethicist: %w", err))
		}
	}
	if c.Source != nil {
		if err := c.Source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("source: %w", err))
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	return errors.Join(errs...)
}
