// internal/augment/eeg.go
package augment

import (
	"math/rand"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
	"github.com/Parhamfakhar1/lumix-bci/internal/model"
)

// EEGAugmentor - feedback collaborator for EEG frames.
// Augment adds gaussian noise, scales by (label+1) from the classifier and clips to [-1, 1].
type EEGAugmentor struct {
	classifier model.Classifier
	shape      []int
	noise      float64
	rng        *rand.Rand
}

// NewEEGAugmentor takes ownership of classifier; it is closed with the augmentor if it implements io.Closer.
func NewEEGAugmentor(classifier model.Classifier, shape []int, noise float64, rng *rand.Rand) *EEGAugmentor {
	return &EEGAugmentor{
		classifier: classifier,
		shape:      append([]int(nil), shape...),
		noise:      noise,
		rng:        rng,
	}
}

func (a *EEGAugmentor) Augment(f core.Frame) (core.Frame, error) {
	in, err := a.Preprocess(f)
	if err != nil {
		return core.Frame{}, err
	}
	label, err := a.classifier.Classify(in)
	if err != nil {
		return core.Frame{}, core.Collaborator("augment.EEGAugmentor.Augment", err)
	}
	gain := float64(label + 1)
	return in.Map(func(v float64) float64 {
		return core.Clamp((v+a.noise*a.rng.NormFloat64())*gain, -1, 1)
	}), nil
}

// Preprocess accepts only EEG frames of the configured flattened size and
// re-tags them with the configured shape. Anything else is a shape mismatch.
func (a *EEGAugmentor) Preprocess(f core.Frame) (core.Frame, error) {
	if f.Modality() != core.ModalityEEG {
		return core.Frame{}, &core.Error{
			Kind:    core.KindShapeMismatch,
			Op:      "augment.EEGAugmentor.Preprocess",
			Message: "modality " + string(f.Modality()) + " is not eeg",
		}
	}
	size, err := core.ShapeSize(a.shape)
	if err != nil {
		return core.Frame{}, err
	}
	if f.Len() != size {
		return core.Frame{}, core.ShapeMismatch("augment.EEGAugmentor.Preprocess", size, f.Len())
	}
	return f.As(core.ModalityEEG, a.shape)
}

func (a *EEGAugmentor) Close() error {
	return closeAll(closerOf(a.classifier))
}
