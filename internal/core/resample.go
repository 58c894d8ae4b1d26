// internal/core/resample.go
package core

import "gonum.org/v1/gonum/stat"

// Resample adapts a frame to another modality and shape by linear
// interpolation over the flattened data. It is the explicit hand-off used by
// modality adapters; frames whose size already matches are re-tagged as-is.
func Resample(f Frame, modality Modality, shape []int) (Frame, error) {
	size, err := ShapeSize(shape)
	if err != nil {
		return Frame{}, err
	}
	if f.Len() == 0 {
		return Frame{}, ShapeMismatch("core.Resample", size, 0)
	}
	if f.Len() == size {
		return f.As(modality, shape)
	}

	src := f.data
	out := make([]float64, size)
	if len(src) == 1 || size == 1 {
		for i := range out {
			out[i] = src[0]
		}
		if size == 1 {
			out[0] = stat.Mean(src, nil)
		}
		return Frame{modality: modality, shape: cloneShape(shape), data: out}, nil
	}

	step := float64(len(src)-1) / float64(size-1)
	for i := range out {
		pos := float64(i) * step
		lo := int(pos)
		if lo >= len(src)-1 {
			out[i] = src[len(src)-1]
			continue
		}
		frac := pos - float64(lo)
		out[i] = src[lo]*(1-frac) + src[lo+1]*frac
	}
	return Frame{modality: modality, shape: cloneShape(shape), data: out}, nil
}
