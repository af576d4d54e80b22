package pose

import "testing"

func TestSymmetricFov(t *testing.T) {
	got := SymmetricFov(0.75)
	want := Fov{AngleUp: 0.75, AngleDown: -0.75, AngleRight: 0.75, AngleLeft: -0.75}
	if got != want {
		t.Fatalf("SymmetricFov(0.75) = %+v, want %+v", got, want)
	}
}
