// Package headset holds the per-frame headset pose record streamed to the consumer process,
// together with its fixed 88-byte little-endian wire layout.
package headset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-xr/engine/xr/pose"
)

const (
	// EyeDataSize is the encoded size of one EyeData: 11 float32 values.
	EyeDataSize = 11 * 4

	// HeadsetDataSize is the encoded size of a HeadsetData: left eye followed by right eye.
	HeadsetDataSize = 2 * EyeDataSize

	// LeftEye and RightEye are the view indexes that map onto HeadsetData slots.
	LeftEye  = 0
	RightEye = 1
)

// ErrShortFrame is returned when decoding a buffer whose length is not the fixed record size.
var ErrShortFrame = errors.New("headset: frame has the wrong size")

// EyeData is the pose and field of view of one eye.
// The zero value is a valid, all-zero record.
type EyeData struct {
	// Pos is the eye position (x, y, z).
	Pos [3]float32 `json:"pos"`

	// Quaternion is the eye orientation stored scalar first (w, x, y, z).
	Quaternion [4]float32 `json:"quaternion"`

	// Fov is the view frustum half-angles ordered up, down, right, left.
	Fov [4]float32 `json:"fov"`
}

// HeadsetData carries exactly two eyes in (left, right) order.
type HeadsetData struct {
	Left  EyeData `json:"left"`
	Right EyeData `json:"right"`
}

// Load overwrites the eye with the pose and field of view of a runtime view.
//
// Parameters:
//   - view: the runtime view to copy from
func (e *EyeData) Load(view pose.View) {
	e.Pos = [3]float32{view.Pose.Position.X, view.Pose.Position.Y, view.Pose.Position.Z}
	o := view.Pose.Orientation
	e.Quaternion = [4]float32{o.W, o.X, o.Y, o.Z}
	e.Fov = [4]float32{view.Fov.AngleUp, view.Fov.AngleDown, view.Fov.AngleRight, view.Fov.AngleLeft}
}

// AppendBinary appends the 44-byte encoding of the eye to b.
//
// Parameters:
//   - b: the destination buffer (may be nil)
//
// Returns:
//   - []byte: the extended buffer
//   - error: always nil; present to satisfy encoding.BinaryAppender
func (e EyeData) AppendBinary(b []byte) ([]byte, error) {
	for _, v := range e.Pos {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	for _, v := range e.Quaternion {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	for _, v := range e.Fov {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b, nil
}

// MarshalBinary encodes the eye as 11 little-endian float32 values: position, quaternion, fov.
//
// Returns:
//   - []byte: exactly EyeDataSize bytes
//   - error: always nil
func (e EyeData) MarshalBinary() ([]byte, error) {
	return e.AppendBinary(make([]byte, 0, EyeDataSize))
}

// UnmarshalBinary decodes an EyeData previously produced by MarshalBinary.
//
// Parameters:
//   - data: exactly EyeDataSize bytes
//
// Returns:
//   - error: ErrShortFrame if data has the wrong length
func (e *EyeData) UnmarshalBinary(data []byte) error {
	if len(data) != EyeDataSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShortFrame, len(data), EyeDataSize)
	}
	next := func() float32 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data))
		data = data[4:]
		return v
	}
	for i := range e.Pos {
		e.Pos[i] = next()
	}
	for i := range e.Quaternion {
		e.Quaternion[i] = next()
	}
	for i := range e.Fov {
		e.Fov[i] = next()
	}
	return nil
}

// LoadView writes a runtime view into the eye slot selected by its index.
// Index 0 fills Left and index 1 fills Right; any other index is ignored.
//
// Parameters:
//   - index: the view index reported by the runtime's view loop
//   - view: the runtime view
//
// Returns:
//   - bool: true if an eye slot was written
func (h *HeadsetData) LoadView(index int, view pose.View) bool {
	switch index {
	case LeftEye:
		h.Left.Load(view)
	case RightEye:
		h.Right.Load(view)
	default:
		return false
	}
	return true
}

// AppendBinary appends the 88-byte encoding (left eye, then right eye) to b.
func (h HeadsetData) AppendBinary(b []byte) ([]byte, error) {
	b, _ = h.Left.AppendBinary(b)
	return h.Right.AppendBinary(b)
}

// MarshalBinary encodes both eyes, left first.
//
// Returns:
//   - []byte: exactly HeadsetDataSize bytes
//   - error: always nil
func (h HeadsetData) MarshalBinary() ([]byte, error) {
	return h.AppendBinary(make([]byte, 0, HeadsetDataSize))
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
//
// Parameters:
//   - data: exactly HeadsetDataSize bytes
//
// Returns:
//   - error: ErrShortFrame if data has the wrong length
func (h *HeadsetData) UnmarshalBinary(data []byte) error {
	if len(data) != HeadsetDataSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShortFrame, len(data), HeadsetDataSize)
	}
	if err := h.Left.UnmarshalBinary(data[:EyeDataSize]); err != nil {
		return err
	}
	return h.Right.UnmarshalBinary(data[EyeDataSize:])
}
