// cmd/lumix/main_test.go
package main

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
	"github.com/Parhamfakhar1/lumix-bci/internal/device"
	"github.com/Parhamfakhar1/lumix-bci/internal/link"
	"github.com/Parhamfakhar1/lumix-bci/internal/monitoring"
	"github.com/Parhamfakhar1/lumix-bci/internal/store"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// smallConfig keeps windows and shapes tiny so runs finish instantly.
func smallConfig(t *testing.T) *Config {
	t.Helper()
	config := defaultConfig()
	config.Engine.MemorySize = 4
	config.Engine.AttentionSpan = 2
	config.Engine.EEGShape = []int{2, 4}
	config.Engine.FMRIShape = []int{2, 2}
	config.Engine.OptoRegions = 4
	config.Store = store.Config{
		Enabled:   true,
		Path:      filepath.Join(t.TempDir(), "brain.db"),
		CacheSize: 8,
		Level:     "fastest",
	}
	return config
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), runOptions{Frames: 1})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if config.Devices.Mode != "sim" {
		t.Errorf("devices mode = %q, want sim", config.Devices.Mode)
	}
	if config.Engine.MemorySize != 1024 || config.Engine.AttentionSpan != 12 {
		t.Errorf("engine defaults not applied: %+v", config.Engine)
	}
	if config.Link.StopTimeout != 5*time.Second {
		t.Errorf("stop_timeout = %s", config.Link.StopTimeout)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeFile(t, "lumix.yaml", `
system:
  name: bench
engine:
  memory_size: 8
  eeg_shape: [4, 4]
link:
  send: 127.0.0.1:9000
  stop_timeout: 2s
  byte_order: big
monitoring:
  enabled: true
  listen: 127.0.0.1:9191
logging:
  level: debug
`)
	config, err := loadConfig(path, runOptions{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if config.System.Name != "bench" {
		t.Errorf("name = %q", config.System.Name)
	}
	if config.Engine.MemorySize != 8 || len(config.Engine.EEGShape) != 2 || config.Engine.EEGShape[0] != 4 {
		t.Errorf("engine = %+v", config.Engine)
	}
	if config.Engine.AttentionSpan != 12 {
		t.Errorf("attention_span = %d, want default 12", config.Engine.AttentionSpan)
	}
	if config.Link.Send != "127.0.0.1:9000" || config.Link.StopTimeout != 2*time.Second || config.Link.ByteOrder != "big" {
		t.Errorf("link = %+v", config.Link)
	}
	if !config.Monitoring.Enabled || config.Monitoring.Listen != "127.0.0.1:9191" {
		t.Errorf("monitoring = %+v", config.Monitoring)
	}
}

func TestLoadConfigReplayFlag(t *testing.T) {
	config, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), runOptions{Replay: "session.json"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if config.Devices.Mode != "replay" || config.Devices.Recording != "session.json" {
		t.Errorf("devices = %+v", config.Devices)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		opts runOptions
	}{
		{"link without destination", "engine:\n  memory_size: 4\n", runOptions{}},
		{"unknown device mode", "devices:\n  mode: usb\n", runOptions{Frames: 1}},
		{"replay without recording", "devices:\n  mode: replay\n", runOptions{Frames: 1}},
		{"negative memory", "engine:\n  memory_size: -1\n", runOptions{Frames: 1}},
		{"bad temperature", "model:\n  decoder_temperature: -1\n", runOptions{Frames: 1}},
		{"bad ethics temperature", "model:\n  ethics_temperature: 0\n", runOptions{Frames: 1}},
		{"bad store level", "store:\n  enabled: true\n  level: ultra\n", runOptions{Frames: 1}},
		{"malformed yaml", "engine: [", runOptions{Frames: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "lumix.yaml", tt.yaml)
			if _, err := loadConfig(path, tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReplayRun(t *testing.T) {
	config := smallConfig(t)

	var frames []core.Frame
	for i := 0; i < 5; i++ {
		data := make([]float64, 8)
		for j := range data {
			data[j] = math.Sin(float64(i*8+j) / 3)
		}
		f, err := core.NewFrame(core.ModalityEEG, []int{2, 4}, data)
		if err != nil {
			t.Fatalf("NewFrame: %v", err)
		}
		frames = append(frames, f)
	}
	recPath := filepath.Join(t.TempDir(), "session.json")
	file, err := os.Create(recPath)
	if err != nil {
		t.Fatalf("create recording: %v", err)
	}
	if err := device.WriteRecording(file, core.ModalityEEG, []int{2, 4}, frames); err != nil {
		t.Fatalf("WriteRecording: %v", err)
	}
	file.Close()

	config.Devices.Mode = "replay"
	config.Devices.Recording = recPath

	c, err := setupComponents(config)
	if err != nil {
		t.Fatalf("setupComponents: %v", err)
	}
	stats, err := runLocal(context.Background(), config, c, 0)
	if err != nil {
		t.Fatalf("runLocal: %v", err)
	}
	if stats.Processed != 5 || stats.Failed != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	ctx := context.Background()
	for table, want := range map[string]int64{store.TableEEG: 5, store.TableOpto: 5} {
		n, err := c.Store.Count(ctx, table)
		if err != nil {
			t.Fatalf("Count %s: %v", table, err)
		}
		if n != want {
			t.Errorf("Count(%s) = %d, want %d", table, n, want)
		}
	}
	if got := len(c.Actuator.Targets()); got != 5 {
		t.Errorf("opto stimulations = %d, want 5", got)
	}
	if _, writes := c.Sink.Last(); writes != 5 {
		t.Errorf("fmri writes = %d, want 5", writes)
	}
	if score := c.Ethicist.Score(); score <= 0 || score >= 1 {
		t.Errorf("ethics score = %v, want a probability", score)
	}

	shutdown(c)

	var buf bytes.Buffer
	printStats(&buf, stats, c)
	report := buf.String()
	for _, want := range []string{"Frames processed", "replay", "Archived blobs", "Ethics score"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestSimulatedRunRespectsLimit(t *testing.T) {
	config := smallConfig(t)
	config.Store.Enabled = false

	c, err := setupComponents(config)
	if err != nil {
		t.Fatalf("setupComponents: %v", err)
	}
	defer c.Close()

	stats, err := runLocal(context.Background(), config, c, 3)
	if err != nil {
		t.Fatalf("runLocal: %v", err)
	}
	if stats.Processed != 3 {
		t.Errorf("processed = %d, want 3", stats.Processed)
	}
	if c.Archiver != nil {
		t.Error("archiver created with the store disabled")
	}
}

func TestProcessFrameRejectsForeignFrames(t *testing.T) {
	config := smallConfig(t)
	config.Store.Enabled = false
	c, err := setupComponents(config)
	if err != nil {
		t.Fatalf("setupComponents: %v", err)
	}
	defer c.Close()

	tests := []struct {
		name  string
		frame core.Frame
	}{
		{"wrong length", core.Vector(core.ModalityEEG, []float64{1, 2, 3})},
		{"wrong modality", core.Vector(core.ModalityOpto, []float64{1, 2, 3, 4, 5, 6, 7, 8})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := processFrame(c, tt.frame); !errors.Is(err, core.ErrShapeMismatch) {
				t.Errorf("processFrame() = %v, want ErrShapeMismatch", err)
			}
		})
	}

	for _, f := range c.Normalizer.Memory().Window().Frames() {
		for _, v := range f.Values() {
			if v != 0 {
				t.Fatal("normalizer memory pushed for a rejected frame")
			}
		}
	}
	if c.Normalizer.Score() != 0 || c.Ethicist.Score() != 0 {
		t.Errorf("scores moved for rejected frames: normalization %v, ethics %v", c.Normalizer.Score(), c.Ethicist.Score())
	}
	if n := len(c.Actuator.Targets()); n != 0 {
		t.Errorf("opto stimulations = %d, want none", n)
	}
}

func TestRunLocalNeedsFrames(t *testing.T) {
	config := smallConfig(t)
	config.Store.Enabled = false
	c, err := setupComponents(config)
	if err != nil {
		t.Fatalf("setupComponents: %v", err)
	}
	defer c.Close()

	if _, err := runLocal(context.Background(), config, c, 0); err == nil {
		t.Error("endless simulated run without a limit was accepted")
	}
}

func TestHealthProbeFollowsLink(t *testing.T) {
	config := smallConfig(t)
	config.Store.Enabled = false
	c, err := setupComponents(config)
	if err != nil {
		t.Fatalf("setupComponents: %v", err)
	}
	defer c.Close()

	in, err := link.Listen("127.0.0.1:0", 1<<20)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	cfg := link.DefaultConfig()
	cfg.Send = "127.0.0.1:1"
	l, err := link.NewDuplexLink(cfg, in, link.NewTCPSender(cfg.Send, time.Second, time.Second), c.Engine)
	if err != nil {
		t.Fatalf("NewDuplexLink: %v", err)
	}

	probe := healthProbe(l)
	if status, details := probe(); status != monitoring.StatusOK || details["link"] != "running" {
		t.Errorf("probe = %s %v, want ok while running", status, details)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if status, _ := probe(); status != monitoring.StatusStopped {
		t.Errorf("probe = %s after Close, want stopped", status)
	}
}
