// internal/augment/opto.go
package augment

import (
	"github.com/Parhamfakhar1/lumix-bci/internal/core"
	"github.com/Parhamfakhar1/lumix-bci/internal/device"
	"github.com/Parhamfakhar1/lumix-bci/internal/model"
)

// OptoEmulator - decodes frames into region probabilities and drives the
// optogenetic actuator.
type OptoEmulator struct {
	actuator device.Actuator
	decoder  model.Decoder
}

func NewOptoEmulator(actuator device.Actuator, decoder model.Decoder) *OptoEmulator {
	return &OptoEmulator{actuator: actuator, decoder: decoder}
}

func (e *OptoEmulator) Regions() int { return e.decoder.Regions() }

func (e *OptoEmulator) Decode(f core.Frame) (core.Frame, error) {
	probs, err := e.decoder.Decode(f)
	if err != nil {
		return core.Frame{}, core.Collaborator("augment.OptoEmulator.Decode", err)
	}
	return probs, nil
}

func (e *OptoEmulator) Emulate(target int) error {
	if err := e.actuator.Stimulate(target); err != nil {
		return core.Collaborator("augment.OptoEmulator.Emulate", err)
	}
	return nil
}

// Preprocess adapts a query to one value per region.
func (e *OptoEmulator) Preprocess(f core.Frame) (core.Frame, error) {
	return core.Resample(f, core.ModalityOpto, []int{e.decoder.Regions()})
}

func (e *OptoEmulator) Close() error {
	return closeAll(e.actuator, closerOf(e.decoder))
}
