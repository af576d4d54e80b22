package listener

import (
	"github.com/Carmen-Shannon/oxy-xr/engine/headset"
)

// HeadsetListenerBuilderOption is a functional option for configuring a headsetListener.
type HeadsetListenerBuilderOption func(l *headsetListener)

// WithFrameCallback registers a function called from the reader goroutine for every record.
//
// Parameters:
//   - callback: receives the record's sequence number (starting at 1) and the recentered record
//
// Returns:
//   - HeadsetListenerBuilderOption: option function to apply
func WithFrameCallback(callback func(seq uint64, data headset.HeadsetData)) HeadsetListenerBuilderOption {
	return func(l *headsetListener) {
		l.onFrame = callback
	}
}
