// cmd/lumix/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/Parhamfakhar1/lumix-bci/internal/augment"
	"github.com/Parhamfakhar1/lumix-bci/internal/device"
	"github.com/Parhamfakhar1/lumix-bci/internal/enhance"
	"github.com/Parhamfakhar1/lumix-bci/internal/link"
	"github.com/Parhamfakhar1/lumix-bci/internal/model"
	"github.com/Parhamfakhar1/lumix-bci/internal/monitoring"
	"github.com/Parhamfakhar1/lumix-bci/internal/store"
)

type Config struct {
	System     SystemConfig      `yaml:"system"`
	Engine     enhance.Config    `yaml:"engine"`
	Devices    device.Config     `yaml:"devices"`
	Augment    augment.Config    `yaml:"augment"`
	Model      model.Config      `yaml:"model"`
	Link       link.Config       `yaml:"link"`
	Store      store.Config      `yaml:"store"`
	Monitoring monitoring.Config `yaml:"monitoring"`
	Logging    LoggingConfig     `yaml:"logging"`
}

type SystemConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// ShutdownGrace is how long shutdown may take before the process exits anyway.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var (
	configFile = flag.String("config", "config/default.yaml", "Configuration file path")
	replayFile = flag.String("replay", "", "Replay a JSON recording through the engine instead of serving the link")
	frames     = flag.Int("frames", 0, "Run N frames from the configured devices locally instead of serving the link")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
)

// runOptions come from the command line and pick the run mode.
type runOptions struct {
	Replay string
	Frames int
}

// local reports whether frames come from devices instead of the link.
func (o runOptions) local() bool { return o.Replay != "" || o.Frames > 0 }

func main() {
	flag.Parse()
	opts := runOptions{Replay: *replayFile, Frames: *frames}

	setupLogger(LoggingConfig{Level: "info", Format: "console"})

	config, err := loadConfig(*configFile, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(config.Logging)

	log.Info().Msgf("Starting %s", config.System.Name)
	log.Info().Msg("==============================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandler(cancel, config.System.ShutdownGrace)

	printSystemInfo(config)

	components, err := setupComponents(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup components")
	}

	var stats *runStats
	if opts.local() {
		stats, err = runLocal(ctx, config, components, opts.Frames)
	} else {
		stats, err = serve(ctx, config, components)
	}
	if err != nil {
		log.Error().Err(err).Msg("Run failed")
	}

	shutdown(components)
	printStats(os.Stdout, stats, components)

	log.Info().Msg("Shutdown complete")
	if err != nil {
		os.Exit(1)
	}
}

func setupLogger(cfg LoggingConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if *verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	log.Logger = log.Output(output)
}

func defaultConfig() *Config {
	return &Config{
		System: SystemConfig{
			Name:          "Lumix BCI",
			Version:       "0.1.0",
			ShutdownGrace: 10 * time.Second,
		},
		Engine:     enhance.DefaultConfig(),
		Devices:    device.DefaultConfig(),
		Augment:    augment.DefaultConfig(),
		Model:      model.DefaultConfig(),
		Link:       link.DefaultConfig(),
		Store:      store.DefaultConfig(),
		Monitoring: monitoring.DefaultConfig(),
		Logging:    LoggingConfig{Level: "info", Format: "console"},
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string, opts runOptions) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", path).Msg("Config file not found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if opts.Replay != "" {
		config.Devices.Mode = "replay"
		config.Devices.Recording = opts.Replay
	}

	config.Engine = config.Engine.WithDefaults()
	config.Link = config.Link.WithDefaults()
	config.Store = config.Store.WithDefaults()
	config.Monitoring = config.Monitoring.WithDefaults()
	if config.System.ShutdownGrace == 0 {
		config.System.ShutdownGrace = 10 * time.Second
	}

	if err := validateConfig(config, opts); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config, opts runOptions) error {
	if err := config.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	switch config.Devices.Mode {
	case "sim":
	case "replay":
		if config.Devices.Recording == "" {
			return fmt.Errorf("devices: replay mode needs a recording")
		}
	default:
		return fmt.Errorf("devices: unknown mode %q", config.Devices.Mode)
	}
	if config.Augment.EEGNoise < 0 {
		return fmt.Errorf("augment: eeg_noise cannot be negative")
	}
	if config.Model.EEGClasses < 1 {
		return fmt.Errorf("model: eeg_classes must be at least 1")
	}
	if config.Model.DecoderTemperature <= 0 {
		return fmt.Errorf("model: decoder_temperature must be positive")
	}
	if config.Model.EthicsTemperature <= 0 {
		return fmt.Errorf("model: ethics_temperature must be positive")
	}
	if config.Store.Enabled {
		if err := config.Store.Validate(); err != nil {
			return err
		}
	}

	// the link is only validated when it will be served
	if !opts.local() {
		if err := config.Link.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func setupSignalHandler(cancel context.CancelFunc, grace time.Duration) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()

		time.Sleep(grace)
		log.Error().Msg("Force shutdown after timeout")
		os.Exit(1)
	}()
}

func printSystemInfo(config *Config) {
	log.Info().Msgf("System: %s v%s", config.System.Name, config.System.Version)
	log.Info().Msgf("Engine: memory %d, attention span %d, %d opto regions",
		config.Engine.MemorySize, config.Engine.AttentionSpan, config.Engine.OptoRegions)
	log.Info().Msgf("Shapes: eeg %v, fmri %v", config.Engine.EEGShape, config.Engine.FMRIShape)
	log.Info().Msgf("Devices: %s", config.Devices.Mode)
	log.Info().Msgf("Persistence: %v, monitoring: %v", config.Store.Enabled, config.Monitoring.Enabled)
}
