// internal/augment/fmri.go
package augment

import (
	"github.com/Parhamfakhar1/lumix-bci/internal/core"
	"github.com/Parhamfakhar1/lumix-bci/internal/device"
	"github.com/Parhamfakhar1/lumix-bci/internal/model"
	"gonum.org/v1/gonum/floats"
)

// FMRIStimulator - loads frames into the fMRI volume space and writes
// analyzer-adjusted feedback to the sink.
type FMRIStimulator struct {
	sink     device.Sink
	analyzer model.Analyzer
	shape    []int
	gain     float64
}

// NewFMRIStimulator takes ownership of sink (and analyzer, if closable).
func NewFMRIStimulator(sink device.Sink, analyzer model.Analyzer, shape []int, gain float64) *FMRIStimulator {
	return &FMRIStimulator{
		sink:     sink,
		analyzer: analyzer,
		shape:    shape,
		gain:     gain,
	}
}

// Load adapts the frame to the fMRI shape and min-max normalizes it into [0, 1].
// A constant frame loads as all zeros.
func (s *FMRIStimulator) Load(f core.Frame) (core.Frame, error) {
	vol, err := s.Preprocess(f)
	if err != nil {
		return core.Frame{}, err
	}
	values := vol.Values()
	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo
	if span == 0 {
		return vol.Map(func(float64) float64 { return 0 }), nil
	}
	return vol.Map(func(v float64) float64 { return (v - lo) / span }), nil
}

// Stimulate writes clip(f + gain*Analyze(f), 0, 1) to the sink.
func (s *FMRIStimulator) Stimulate(f core.Frame) error {
	out, err := s.analyzer.Analyze(f)
	if err != nil {
		return core.Collaborator("augment.FMRIStimulator.Stimulate", err)
	}
	if out.Len() != f.Len() {
		return core.ShapeMismatch("augment.FMRIStimulator.Stimulate", f.Len(), out.Len())
	}
	data := f.Values()
	floats.AddScaled(data, s.gain, out.Values())
	feedback, err := core.NewFrame(f.Modality(), f.Shape(), data)
	if err != nil {
		return err
	}
	if err := s.sink.Write(feedback.Clip(0, 1)); err != nil {
		return core.Collaborator("augment.FMRIStimulator.Stimulate", err)
	}
	return nil
}

// Preprocess adapts any frame to the fMRI shape.
func (s *FMRIStimulator) Preprocess(f core.Frame) (core.Frame, error) {
	return core.Resample(f, core.ModalityFMRI, s.shape)
}

func (s *FMRIStimulator) Close() error {
	return closeAll(s.sink, closerOf(s.analyzer))
}
