// Package transmit owns the write end of the headset pipe and pushes one encoded record per frame.
package transmit

import (
	"errors"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-xr/engine/pipe"
)

// State identifies which variant of the transmitter state machine is active.
type State int

const (
	// StateClosed means no pipe handle is held. This is the initial state.
	StateClosed State = iota

	// StateOpen means a writable pipe handle is held.
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInvalidState is the sentinel wrapped by StateError.
var ErrInvalidState = errors.New("transmit: invalid state")

// StateError reports an operation attempted in a state that does not permit it.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("transmit: %s not allowed while %s", e.Op, e.State)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// DialFunc opens the write end of the pipe at path.
type DialFunc func(path string) (io.WriteCloser, error)

// Transmitter sends raw byte blobs to a named pipe created by another process.
type Transmitter interface {
	// Open connects to the existing pipe. It does not wait or retry; a missing pipe is an error.
	// Calling Open while already open closes the previous handle first.
	//
	// Returns:
	//   - error: error if the pipe could not be opened
	Open() error

	// Write sends p as a single write.
	//
	// Parameters:
	//   - p: the bytes to send
	//
	// Returns:
	//   - error: a *StateError wrapping ErrInvalidState if closed, or the underlying write error
	Write(p []byte) error

	// Close releases the pipe handle. Closing a closed transmitter is a no-op.
	//
	// Returns:
	//   - error: error from releasing the handle
	Close() error

	// State reports the current state.
	//
	// Returns:
	//   - State: StateClosed or StateOpen
	State() State

	// Path returns the pipe path the transmitter dials.
	//
	// Returns:
	//   - string: the pipe path
	Path() string
}

// transmitterState is either closed{} or open{}.
type transmitterState interface {
	kind() State
}

type closed struct{}

func (closed) kind() State { return StateClosed }

type open struct {
	w io.WriteCloser
}

func (open) kind() State { return StateOpen }

// pipeTransmitter is the implementation of the Transmitter interface.
type pipeTransmitter struct {
	path  string
	dial  DialFunc
	state transmitterState
}

var _ Transmitter = &pipeTransmitter{}

// NewTransmitter creates a closed Transmitter for the pipe at path.
// The platform named pipe dialer is used unless WithDialer overrides it.
//
// Parameters:
//   - path: the platform pipe path (see pipe.PathFor)
//   - options: functional options
//
// Returns:
//   - Transmitter: the closed transmitter
func NewTransmitter(path string, options ...TransmitterBuilderOption) Transmitter {
	t := &pipeTransmitter{
		path:  path,
		dial:  pipe.Dial,
		state: closed{},
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *pipeTransmitter) Open() error {
	if err := t.Close(); err != nil {
		return err
	}
	w, err := t.dial(t.path)
	if err != nil {
		return fmt.Errorf("transmit: open %s: %w", t.path, err)
	}
	t.state = open{w: w}
	return nil
}

func (t *pipeTransmitter) Write(p []byte) error {
	s, ok := t.state.(open)
	if !ok {
		return &StateError{Op: "write", State: t.state.kind()}
	}
	n, err := s.w.Write(p)
	if err != nil {
		return fmt.Errorf("transmit: write: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("transmit: write: %w", io.ErrShortWrite)
	}
	return nil
}

func (t *pipeTransmitter) Close() error {
	s, ok := t.state.(open)
	if !ok {
		return nil
	}
	t.state = closed{}
	if err := s.w.Close(); err != nil {
		return fmt.Errorf("transmit: close: %w", err)
	}
	return nil
}

func (t *pipeTransmitter) State() State {
	return t.state.kind()
}

func (t *pipeTransmitter) Path() string {
	return t.path
}
