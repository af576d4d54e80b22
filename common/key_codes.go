package common

// Virtual key codes for the mirror window.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyComma = 44 // , key (ASCII) - recenter the head pose
	KeyMinus = 45 // - key (ASCII) - narrow the eye separation
	KeyEqual = 61 // = key (ASCII) - widen the eye separation
)
