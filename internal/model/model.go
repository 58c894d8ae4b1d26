// internal/model/model.go
package model

import (
	"fmt"
	"math"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Classifier maps an EEG frame to a discrete label in [0, Classes()).
type Classifier interface {
	Classify(core.Frame) (int, error)
	Classes() int
}

// Analyzer maps an fMRI frame to a same-shaped response frame.
type Analyzer interface {
	Analyze(core.Frame) (core.Frame, error)
}

// Decoder maps a frame to per-region scores forming a probability vector.
type Decoder interface {
	Decode(core.Frame) (core.Frame, error)
	Regions() int
}

// Scorer maps a probability vector to the probability of the positive class.
type Scorer interface {
	Score(core.Frame) (float64, error)
}

// Config for the built-in statistical models.
type Config struct {
	EEGClasses         int     `yaml:"eeg_classes"`
	DecoderTemperature float64 `yaml:"decoder_temperature"`
	EthicsTemperature  float64 `yaml:"ethics_temperature"`
}

func DefaultConfig() Config {
	return Config{
		EEGClasses:         4,
		DecoderTemperature: 1,
		EthicsTemperature:  1,
	}
}

// BandPowerClassifier - bins the frame's population standard deviation into
// equal-width classes over [0, 1]. Higher variability maps to a higher label.
type BandPowerClassifier struct {
	classes int
}

func NewBandPowerClassifier(classes int) (*BandPowerClassifier, error) {
	if classes < 1 {
		return nil, fmt.Errorf("model: classes must be at least 1, got %d", classes)
	}
	return &BandPowerClassifier{classes: classes}, nil
}

func (c *BandPowerClassifier) Classes() int { return c.classes }

func (c *BandPowerClassifier) Classify(f core.Frame) (int, error) {
	if f.Len() == 0 {
		return 0, core.ShapeMismatch("model.BandPowerClassifier.Classify", 1, 0)
	}
	sd := stat.PopStdDev(f.Values(), nil)
	label := int(core.Clamp(sd, 0, 1) * float64(c.classes))
	if label >= c.classes {
		label = c.classes - 1
	}
	return label, nil
}

// ZScoreAnalyzer - standardizes the frame; the response of a constant frame is all zeros.
type ZScoreAnalyzer struct{}

func (ZScoreAnalyzer) Analyze(f core.Frame) (core.Frame, error) {
	values := f.Values()
	mean, sd := stat.Mean(values, nil), stat.PopStdDev(values, nil)
	if sd == 0 || math.IsNaN(sd) {
		return f.Map(func(float64) float64 { return 0 }), nil
	}
	return f.Map(func(v float64) float64 { return (v - mean) / sd }), nil
}

// PoolDecoder - averages the input over `regions` contiguous blocks and
// applies a temperature softmax, yielding a probability vector.
type PoolDecoder struct {
	regions     int
	temperature float64
}

func NewPoolDecoder(regions int, temperature float64) (*PoolDecoder, error) {
	if regions < 1 {
		return nil, fmt.Errorf("model: regions must be at least 1, got %d", regions)
	}
	if temperature <= 0 {
		temperature = 1
	}
	return &PoolDecoder{regions: regions, temperature: temperature}, nil
}

func (d *PoolDecoder) Regions() int { return d.regions }

func (d *PoolDecoder) Decode(f core.Frame) (core.Frame, error) {
	if f.Len() < d.regions {
		return core.Frame{}, core.ShapeMismatch("model.PoolDecoder.Decode", d.regions, f.Len())
	}
	values := f.Values()
	logits := make([]float64, d.regions)
	for r := range logits {
		lo := r * len(values) / d.regions
		hi := (r + 1) * len(values) / d.regions
		logits[r] = stat.Mean(values[lo:hi], nil) / d.temperature
	}
	return core.Vector(core.ModalityOpto, Softmax(logits)), nil
}

// EntropyScorer - two-class scorer over a region distribution. The negative
// logit is the normalized entropy h and the positive logit is 1-h, so a
// peaked distribution scores above 0.5 and a uniform one below it.
type EntropyScorer struct {
	temperature float64
}

func NewEntropyScorer(temperature float64) *EntropyScorer {
	if temperature <= 0 {
		temperature = 1
	}
	return &EntropyScorer{temperature: temperature}
}

func (s *EntropyScorer) Score(f core.Frame) (float64, error) {
	if f.Len() == 0 {
		return 0, core.ShapeMismatch("model.EntropyScorer.Score", 1, 0)
	}
	p := f.Values()
	if err := core.CheckDistribution("model.EntropyScorer.Score", p); err != nil {
		return 0, err
	}
	h := 0.0
	if len(p) > 1 {
		h = stat.Entropy(p) / math.Log(float64(len(p)))
	}
	probs := Softmax([]float64{h / s.temperature, (1 - h) / s.temperature})
	return probs[1], nil
}

// Softmax returns a numerically stable softmax of xs.
func Softmax(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	peak := floats.Max(xs)
	for i, x := range xs {
		out[i] = math.Exp(x - peak)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}
