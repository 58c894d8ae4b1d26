// internal/core/frame.go
package core

import (
	"fmt"
	"strings"
)

// Modality - the signal family a frame belongs to
type Modality string

const (
	ModalityEEG  Modality = "eeg"
	ModalityFMRI Modality = "fmri"
	ModalityOpto Modality = "opto"
)

// Valid reports whether m is one of the known modalities.
func (m Modality) Valid() bool {
	switch m {
	case ModalityEEG, ModalityFMRI, ModalityOpto:
		return true
	}
	return false
}

// Frame - immutable fixed-shape sample of one modality.
// Data is stored row-major; the constructor copies the caller's slice.
type Frame struct {
	modality Modality
	shape    []int
	data     []float64
}

// NewFrame builds a frame and checks that len(data) matches the shape.
func NewFrame(modality Modality, shape []int, data []float64) (Frame, error) {
	size, err := ShapeSize(shape)
	if err != nil {
		return Frame{}, err
	}
	if len(data) != size {
		return Frame{}, ShapeMismatch("core.NewFrame", size, len(data))
	}

	buf := make([]float64, size)
	copy(buf, data)
	return Frame{
		modality: modality,
		shape:    cloneShape(shape),
		data:     buf,
	}, nil
}

// Zeros returns an all-zero frame of the given shape.
func Zeros(modality Modality, shape []int) (Frame, error) {
	size, err := ShapeSize(shape)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		modality: modality,
		shape:    cloneShape(shape),
		data:     make([]float64, size),
	}, nil
}

// Vector is shorthand for a one-dimensional frame.
func Vector(modality Modality, data []float64) Frame {
	f, _ := NewFrame(modality, []int{len(data)}, data)
	return f
}

func (f Frame) Modality() Modality { return f.modality }

// Shape returns a copy of the frame's dimensions.
func (f Frame) Shape() []int { return cloneShape(f.shape) }

// Len is the flattened length.
func (f Frame) Len() int { return len(f.data) }

func (f Frame) IsZero() bool { return f.data == nil }

// At returns the i-th element of the flattened frame.
func (f Frame) At(i int) float64 { return f.data[i] }

// Values returns a copy of the flattened data.
func (f Frame) Values() []float64 {
	out := make([]float64, len(f.data))
	copy(out, f.data)
	return out
}

// raw exposes the backing slice to the package without copying. Callers must not mutate it.
func (f Frame) raw() []float64 { return f.data }

// As re-tags the frame with another modality and shape of the same flattened size.
func (f Frame) As(modality Modality, shape []int) (Frame, error) {
	size, err := ShapeSize(shape)
	if err != nil {
		return Frame{}, err
	}
	if size != len(f.data) {
		return Frame{}, ShapeMismatch("core.Frame.As", size, len(f.data))
	}
	return Frame{modality: modality, shape: cloneShape(shape), data: f.data}, nil
}

// SameShape reports whether both frames have identical modality and dimensions.
func (f Frame) SameShape(other Frame) bool {
	if f.modality != other.modality || len(f.shape) != len(other.shape) {
		return false
	}
	for i := range f.shape {
		if f.shape[i] != other.shape[i] {
			return false
		}
	}
	return true
}

// Equal compares modality, shape and every element exactly.
func (f Frame) Equal(other Frame) bool {
	if !f.SameShape(other) {
		return false
	}
	for i, v := range f.data {
		if other.data[i] != v {
			return false
		}
	}
	return true
}

// Map applies fn elementwise and returns a new frame with the same tag.
func (f Frame) Map(fn func(float64) float64) Frame {
	out := make([]float64, len(f.data))
	for i, v := range f.data {
		out[i] = fn(v)
	}
	return Frame{modality: f.modality, shape: cloneShape(f.shape), data: out}
}

// Clip bounds every element to [lo, hi].
func (f Frame) Clip(lo, hi float64) Frame {
	return f.Map(func(v float64) float64 { return Clamp(v, lo, hi) })
}

func (f Frame) String() string {
	dims := make([]string, len(f.shape))
	for i, d := range f.shape {
		dims[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("%s[%s]", f.modality, strings.Join(dims, "x"))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ShapeSize returns the flattened length of shape, rejecting empty or non-positive dimensions.
func ShapeSize(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("core: empty shape")
	}
	size := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("core: invalid dimension %d in shape %v", d, shape)
		}
		size *= d
	}
	return size, nil
}

func cloneShape(shape []int) []int {
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}
