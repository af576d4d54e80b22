package capture

// CapturerBuilderOption is a functional option for configuring a screenCapturer.
type CapturerBuilderOption func(c *screenCapturer)

// WithRegion sets the captured screen rectangle.
//
// Parameters:
//   - region: the rectangle to capture
//
// Returns:
//   - CapturerBuilderOption: option function to apply
func WithRegion(region Region) CapturerBuilderOption {
	return func(c *screenCapturer) {
		c.region = region
	}
}

// WithWorkers sets how many row bands are converted in parallel.
//
// Parameters:
//   - n: number of workers (minimum 1)
//
// Returns:
//   - CapturerBuilderOption: option function to apply
func WithWorkers(n int) CapturerBuilderOption {
	return func(c *screenCapturer) {
		c.workers = n
	}
}

// WithGrabFunc replaces the screen grabber, for example with a synthetic image source.
//
// Parameters:
//   - grab: function returning an RGBA image of the requested rectangle
//
// Returns:
//   - CapturerBuilderOption: option function to apply
func WithGrabFunc(grab GrabFunc) CapturerBuilderOption {
	return func(c *screenCapturer) {
		if grab != nil {
			c.grab = grab
		}
	}
}
