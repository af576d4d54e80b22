package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-xr/common"
	"github.com/go-gl/mathgl/mgl32"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func checkOrthonormal(t *testing.T, m ViewMatrix) {
	t.Helper()
	for name, v := range map[string][3]float32{"u": m.U, "v": m.V, "n": m.N} {
		if l := common.Length3(v); !near(l, 1) {
			t.Fatalf("%s has length %v, want 1", name, l)
		}
	}
	if d := common.Dot3(m.U, m.V); !near(d, 0) {
		t.Fatalf("u·v = %v, want 0", d)
	}
	if d := common.Dot3(m.U, m.N); !near(d, 0) {
		t.Fatalf("u·n = %v, want 0", d)
	}
	if d := common.Dot3(m.V, m.N); !near(d, 0) {
		t.Fatalf("v·n = %v, want 0", d)
	}
}

func TestLookDirectionBasisIsOrthonormal(t *testing.T) {
	cases := []struct {
		name      string
		direction [3]float32
		up        [3]float32
	}{
		{"xr server defaults", [3]float32{0, 0, -1}, [3]float32{1, 0, 0}},
		{"world up", [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},
		{"oblique", common.Normalize3([3]float32{1, 2, -3}), [3]float32{0, 1, 0}},
		{"tilted up", common.Normalize3([3]float32{-0.5, 0.2, 1}), common.Normalize3([3]float32{0.3, 1, 0.1})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewViewMatrix()
			m.LookDirection(tc.direction, tc.up)
			if m.N != tc.direction {
				t.Fatalf("n = %v, want %v", m.N, tc.direction)
			}
			checkOrthonormal(t, m)
		})
	}
}

func TestLookAtPointsNAwayFromTarget(t *testing.T) {
	m := NewViewMatrix()
	m.Eye = [3]float32{0, 0, 5}
	m.LookAt([3]float32{0, 0, 0}, [3]float32{0, 1, 0})
	if m.N != [3]float32{0, 0, 1} {
		t.Fatalf("n = %v, want +z", m.N)
	}
	checkOrthonormal(t, m)

	// The eye must land at the origin of view space.
	p := common.TransformPoint(m.Matrix(), 0, 0, 5)
	for i := 0; i < 3; i++ {
		if !near(p[i], 0) {
			t.Fatalf("eye in view space = %v, want origin", p)
		}
	}
}

func TestViewMatrixMatchesMathGLLookAt(t *testing.T) {
	m := NewViewMatrix()
	m.Eye = [3]float32{2, 3, 4}
	m.LookAt([3]float32{-1, 0.5, 0}, [3]float32{0, 1, 0})

	got := common.Transpose4(m.Matrix())
	want := mgl32.LookAtV(mgl32.Vec3{2, 3, 4}, mgl32.Vec3{-1, 0.5, 0}, mgl32.Vec3{0, 1, 0})
	for i := range got {
		if !near(got[i], want[i]) {
			t.Fatalf("element %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParallelUpCollapsesU(t *testing.T) {
	m := NewViewMatrix()
	m.LookDirection([3]float32{0, 1, 0}, [3]float32{0, 1, 0})
	if m.U != ([3]float32{}) {
		t.Fatalf("u = %v, want zero vector for parallel up", m.U)
	}
}

func TestDefaultOrthographicView(t *testing.T) {
	o := DefaultOrthographicView()
	m := o.Matrix()
	if m[0] != 1 || m[5] != 1 || !near(m[10], -0.01) || m[15] != 1 {
		t.Fatalf("unexpected default matrix %v", m)
	}
}

func TestProjectionFovSymmetric(t *testing.T) {
	half := float32(math.Pi / 4)
	fov := [4]float32{half, -half, half, -half}

	gl := ProjectionFov(fov, 0.1, 100, ClipSpaceOpenGL)
	want := mgl32.Perspective(2*half, 1, 0.1, 100)
	got := common.Transpose4(gl)
	for i := range got {
		if !near(got[i], want[i]) {
			t.Fatalf("element %d = %v, want %v", i, got[i], want[i])
		}
	}

	vk := ProjectionFov(fov, 0.1, 100, ClipSpaceVulkan)
	if !near(vk[5], -gl[5]) {
		t.Fatalf("vulkan y scale = %v, want %v", vk[5], -gl[5])
	}
	d3d := ProjectionFov(fov, 0.1, 100, ClipSpaceD3D)
	// [0, 1] depth: the near plane maps to 0.
	p := common.TransformPoint(d3d, 0, 0, -0.1)
	if !near(p[2]/p[3], 0) {
		t.Fatalf("near plane depth = %v, want 0", p[2]/p[3])
	}
}

func TestProjectionFovAsymmetricShiftsCenter(t *testing.T) {
	fov := [4]float32{0.8, -0.6, 0.7, -0.9}
	m := ProjectionFov(fov, 0.05, 100, ClipSpaceOpenGL)
	if m[2] == 0 || m[6] == 0 {
		t.Fatalf("asymmetric frustum should have off-axis terms, got %v", m)
	}
}

func TestParseClipSpace(t *testing.T) {
	tests := []struct {
		name string
		want ClipSpace
		ok   bool
	}{
		{"opengl", ClipSpaceOpenGL, true},
		{"d3d", ClipSpaceD3D, true},
		{"vulkan", ClipSpaceVulkan, true},
		{"metal", ClipSpaceOpenGL, false},
	}
	for _, tt := range tests {
		got, ok := ParseClipSpace(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseClipSpace(%q) = %v, %v", tt.name, got, ok)
		}
	}
}
