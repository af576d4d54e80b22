package stereo

// StereoRendererBuilderOption is a functional option for configuring a stereoRenderer.
type StereoRendererBuilderOption func(s *stereoRenderer)

// WithProjection sets the projection matrix uploaded for every view.
//
// Parameters:
//   - m: the projection matrix, row-major
//
// Returns:
//   - StereoRendererBuilderOption: option function to apply
func WithProjection(m [16]float32) StereoRendererBuilderOption {
	return func(s *stereoRenderer) {
		s.projection = m
	}
}

// WithView sets the view matrix uploaded for every view.
//
// Parameters:
//   - m: the view matrix, row-major
//
// Returns:
//   - StereoRendererBuilderOption: option function to apply
func WithView(m [16]float32) StereoRendererBuilderOption {
	return func(s *stereoRenderer) {
		s.view = m
	}
}
