package headset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-xr/engine/xr/pose"
)

func decodeFloats(t *testing.T, b []byte) []float32 {
	t.Helper()
	if len(b)%4 != 0 {
		t.Fatalf("slice length %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func knownEye() EyeData {
	return EyeData{
		Pos:        [3]float32{1, 2, 3},
		Quaternion: [4]float32{1, 0, 0, 0},
		Fov:        [4]float32{0.1, 0.2, 0.3, 0.4},
	}
}

func TestEyeDataLayout(t *testing.T) {
	b, err := knownEye().MarshalBinary()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if len(b) != EyeDataSize || len(b) != 44 {
		t.Fatalf("encoded %d bytes, want 44", len(b))
	}

	pos := decodeFloats(t, b[0:12])
	quat := decodeFloats(t, b[12:28])
	fov := decodeFloats(t, b[28:44])

	if [3]float32(pos) != [3]float32{1, 2, 3} {
		t.Fatalf("pos = %v", pos)
	}
	if [4]float32(quat) != [4]float32{1, 0, 0, 0} {
		t.Fatalf("quaternion = %v", quat)
	}
	if [4]float32(fov) != [4]float32{0.1, 0.2, 0.3, 0.4} {
		t.Fatalf("fov = %v", fov)
	}
}

func TestHeadsetDataIsLeftThenRight(t *testing.T) {
	left := knownEye()
	right := EyeData{
		Pos:        [3]float32{-0.5, 1.7, 0.25},
		Quaternion: [4]float32{0.7071, 0, 0.7071, 0},
		Fov:        [4]float32{0.8, -0.8, 0.75, -0.9},
	}
	h := HeadsetData{Left: left, Right: right}

	got, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if len(got) != HeadsetDataSize || len(got) != 88 {
		t.Fatalf("encoded %d bytes, want 88", len(got))
	}

	lb, _ := left.MarshalBinary()
	rb, _ := right.MarshalBinary()
	if want := append(lb, rb...); !bytes.Equal(got, want) {
		t.Fatalf("headset encoding is not left||right\n got %x\nwant %x", got, want)
	}
}

func TestZeroValueEncodesToZeros(t *testing.T) {
	var h HeadsetData
	b, _ := h.MarshalBinary()
	if !bytes.Equal(b, make([]byte, HeadsetDataSize)) {
		t.Fatalf("zero record should encode to zeros, got %x", b)
	}
}

func TestUnmarshalRoundTrip(t *testing.T) {
	in := HeadsetData{Left: knownEye(), Right: knownEye()}
	in.Right.Pos[0] = 42
	b, _ := in.MarshalBinary()

	var out HeadsetData
	if err := out.UnmarshalBinary(b); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestUnmarshalRejectsWrongSize(t *testing.T) {
	var h HeadsetData
	for _, n := range []int{0, 44, 87, 89} {
		if err := h.UnmarshalBinary(make([]byte, n)); !errors.Is(err, ErrShortFrame) {
			t.Fatalf("len %d: err = %v, want ErrShortFrame", n, err)
		}
	}
	var e EyeData
	if err := e.UnmarshalBinary(make([]byte, 43)); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("eye: err = %v, want ErrShortFrame", err)
	}
}

func sampleView(seed float32) pose.View {
	return pose.View{
		Pose: pose.Pose{
			Position:    pose.Vector3{X: seed, Y: seed + 1, Z: seed + 2},
			Orientation: pose.Quaternion{W: 0.5, X: 0.1, Y: 0.2, Z: 0.3},
		},
		Fov: pose.Fov{AngleUp: 0.7, AngleDown: -0.6, AngleRight: 0.8, AngleLeft: -0.9},
	}
}

func TestLoadViewStoresWFirst(t *testing.T) {
	var h HeadsetData
	if !h.LoadView(0, sampleView(1)) {
		t.Fatalf("index 0 should write the left eye")
	}
	if h.Left.Quaternion != [4]float32{0.5, 0.1, 0.2, 0.3} {
		t.Fatalf("quaternion = %v, want w first", h.Left.Quaternion)
	}
	if h.Left.Fov != [4]float32{0.7, -0.6, 0.8, -0.9} {
		t.Fatalf("fov = %v, want up,down,right,left", h.Left.Fov)
	}
	if h.Left.Pos != [3]float32{1, 2, 3} {
		t.Fatalf("pos = %v", h.Left.Pos)
	}
	if h.Right != (EyeData{}) {
		t.Fatalf("right eye should be untouched, got %+v", h.Right)
	}

	if !h.LoadView(1, sampleView(5)) {
		t.Fatalf("index 1 should write the right eye")
	}
	if h.Right.Pos != [3]float32{5, 6, 7} {
		t.Fatalf("right pos = %v", h.Right.Pos)
	}
}

func TestLoadViewIgnoresOtherIndexes(t *testing.T) {
	h := HeadsetData{Left: knownEye(), Right: knownEye()}
	before := h
	for _, idx := range []int{-1, 2, 3, 100} {
		if h.LoadView(idx, sampleView(9)) {
			t.Fatalf("index %d reported a write", idx)
		}
		if h != before {
			t.Fatalf("index %d mutated the record", idx)
		}
	}
}

func TestSubRecentersPositionAndOrientation(t *testing.T) {
	h := HeadsetData{Left: knownEye(), Right: knownEye()}
	h.Left.Pos = [3]float32{-0.03, 1.6, 0}
	h.Right.Pos = [3]float32{0.03, 1.6, 0}

	offset := h
	offset.CenterEyes()
	if offset.Left.Pos != offset.Right.Pos {
		t.Fatalf("CenterEyes should align both eyes, got %v and %v", offset.Left.Pos, offset.Right.Pos)
	}

	rel := h.Sub(offset)
	if math.Abs(float64(rel.Left.Pos[0]+0.03)) > 1e-6 || math.Abs(float64(rel.Right.Pos[0]-0.03)) > 1e-6 {
		t.Fatalf("recentered eyes should keep their IPD offsets, got %v / %v", rel.Left.Pos, rel.Right.Pos)
	}
	if rel.Left.Pos[1] != 0 {
		t.Fatalf("recentered height = %v, want 0", rel.Left.Pos[1])
	}
	// q * inverse(q) is the identity rotation.
	if rel.Left.Quaternion != [4]float32{1, 0, 0, 0} {
		t.Fatalf("relative orientation = %v, want identity", rel.Left.Quaternion)
	}
	if rel.Left.Fov != h.Left.Fov {
		t.Fatalf("fov should not change when recentering")
	}
}

func TestSubWithZeroOffsetKeepsOrientation(t *testing.T) {
	h := HeadsetData{Left: knownEye(), Right: knownEye()}
	h.Left.Quaternion = [4]float32{0.7071, 0.7071, 0, 0}
	rel := h.Sub(HeadsetData{})
	if rel != h {
		t.Fatalf("zero offset should be a no-op, got %+v", rel)
	}
}
