package enhance

import (
	"math/rand"
	"testing"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// fakeAugmentor re-tags frames as EEG without changing values.
type fakeAugmentor struct {
	shape    []int
	err      error
	closeErr error
	closed   int
}

func (f *fakeAugmentor) Augment(x core.Frame) (core.Frame, error) {
	if f.err != nil {
		return core.Frame{}, f.err
	}
	return x.As(core.ModalityEEG, f.shape)
}

func (f *fakeAugmentor) Preprocess(x core.Frame) (core.Frame, error) {
	return x.As(core.ModalityEEG, f.shape)
}

func (f *fakeAugmentor) Close() error { f.closed++; return f.closeErr }

// fakeStimulator re-tags frames as fMRI and records what it is asked to stimulate.
type fakeStimulator struct {
	shape        []int
	stimulated   []core.Frame
	stimulateErr error
	closeErr     error
	closed       int
}

func (f *fakeStimulator) Load(x core.Frame) (core.Frame, error) {
	return x.As(core.ModalityFMRI, f.shape)
}

func (f *fakeStimulator) Preprocess(x core.Frame) (core.Frame, error) {
	return x.As(core.ModalityFMRI, f.shape)
}

func (f *fakeStimulator) Stimulate(x core.Frame) error {
	if f.stimulateErr != nil {
		return f.stimulateErr
	}
	f.stimulated = append(f.stimulated, x)
	return nil
}

func (f *fakeStimulator) Close() error { f.closed++; return f.closeErr }

// fakeEmulator decodes to a fixed distribution (or the input itself when probs is nil).
type fakeEmulator struct {
	regions   int
	probs     []float64
	decodeErr error
	targets   []int
	closeErr  error
	closed    int
}

func (f *fakeEmulator) Decode(x core.Frame) (core.Frame, error) {
	if f.decodeErr != nil {
		return core.Frame{}, f.decodeErr
	}
	if f.probs == nil {
		return x.As(core.ModalityOpto, []int{x.Len()})
	}
	return core.Vector(core.ModalityOpto, f.probs), nil
}

func (f *fakeEmulator) Preprocess(x core.Frame) (core.Frame, error) {
	return x.As(core.ModalityOpto, []int{f.regions})
}

func (f *fakeEmulator) Emulate(target int) error {
	f.targets = append(f.targets, target)
	return nil
}

func (f *fakeEmulator) Close() error { f.closed++; return f.closeErr }

func newRng() *rand.Rand { return rand.New(rand.NewSource(3)) }

func eeg(t *testing.T, shape []int, data ...float64) core.Frame {
	t.Helper()
	f, err := core.NewFrame(core.ModalityEEG, shape, data)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func fmri(t *testing.T, data ...float64) core.Frame {
	t.Helper()
	f, err := core.NewFrame(core.ModalityFMRI, []int{len(data)}, data)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// fakeScorer returns a fixed score.
type fakeScorer struct {
	score  float64
	err    error
	closed int
}

func (f *fakeScorer) Score(core.Frame) (float64, error) { return f.score, f.err }

func (f *fakeScorer) Close() error { f.closed++; return nil }
