// internal/core/codec.go
package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Codec - raw IEEE-754 float64 wire format.
// No header, no length prefix, no separator: the message boundary is
// supplied by the transport.
type Codec struct {
	order binary.ByteOrder
}

// NewCodec accepts "little" (default when empty) or "big".
func NewCodec(byteOrder string) (Codec, error) {
	switch strings.ToLower(byteOrder) {
	case "", "little", "le":
		return Codec{order: binary.LittleEndian}, nil
	case "big", "be":
		return Codec{order: binary.BigEndian}, nil
	}
	return Codec{}, fmt.Errorf("core: unknown byte order %q", byteOrder)
}

// Encode writes the flattened frame as 8 bytes per value.
func (c Codec) Encode(f Frame) []byte {
	buf := make([]byte, 8*len(f.data))
	for i, v := range f.data {
		c.byteOrder().PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// Decode parses a payload into a frame of the given modality and shape.
func (c Codec) Decode(payload []byte, modality Modality, shape []int) (Frame, error) {
	if len(payload)%8 != 0 {
		return Frame{}, &Error{
			Kind:    KindShapeMismatch,
			Op:      "core.Codec.Decode",
			Message: fmt.Sprintf("payload of %d bytes is not a whole number of float64 values", len(payload)),
		}
	}
	size, err := ShapeSize(shape)
	if err != nil {
		return Frame{}, err
	}
	if n := len(payload) / 8; n != size {
		return Frame{}, ShapeMismatch("core.Codec.Decode", size, n)
	}

	data := make([]float64, size)
	for i := range data {
		data[i] = math.Float64frombits(c.byteOrder().Uint64(payload[i*8:]))
	}
	return Frame{modality: modality, shape: cloneShape(shape), data: data}, nil
}

func (c Codec) byteOrder() binary.ByteOrder {
	if c.order == nil {
		return binary.LittleEndian
	}
	return c.order
}
