package transmit

// TransmitterBuilderOption is a functional option for configuring a pipeTransmitter.
type TransmitterBuilderOption func(t *pipeTransmitter)

// WithDialer replaces the platform pipe dialer.
// Use this to route records through a different transport or an in-memory sink.
//
// Parameters:
//   - dial: function opening the write end for a path
//
// Returns:
//   - TransmitterBuilderOption: option function to apply
func WithDialer(dial DialFunc) TransmitterBuilderOption {
	return func(t *pipeTransmitter) {
		if dial != nil {
			t.dial = dial
		}
	}
}
