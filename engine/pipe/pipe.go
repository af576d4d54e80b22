// Package pipe opens the platform named pipe that carries headset records from the
// XR server to the consumer process. On Windows this is a `\\.\pipe\` endpoint; on
// Unix-like systems it is a FIFO in the filesystem.
package pipe

import (
	"errors"
	"io"
)

// DefaultName is the pipe name the consumer plugin listens on.
const DefaultName = "tca_vr_headset_data"

// ErrNotPipe is returned when the dial path exists but is not a named pipe.
var ErrNotPipe = errors.New("pipe: path is not a named pipe")

// Listener is the reader side of a named pipe. The reader owns the endpoint and
// waits for the writer to connect.
type Listener interface {
	// Accept blocks until a writer connects and returns the read end.
	//
	// Returns:
	//   - io.ReadCloser: the connected read end
	//   - error: error if the pipe could not be opened
	Accept() (io.ReadCloser, error)

	// Path returns the platform path of the pipe endpoint.
	//
	// Returns:
	//   - string: the endpoint path
	Path() string

	// Close releases the endpoint. On Unix the FIFO is removed from the filesystem.
	//
	// Returns:
	//   - error: error if the endpoint could not be released
	Close() error
}

// DefaultPath returns the platform path for DefaultName.
//
// Returns:
//   - string: the default pipe path
func DefaultPath() string {
	return PathFor(DefaultName)
}
