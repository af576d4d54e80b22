// Package listener is the consumer side of the pose pipe: it decodes the fixed-size headset
// records a writer streams and keeps the most recent one.
package listener

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/Carmen-Shannon/oxy-xr/engine/headset"
)

// HeadsetListener reads headset records from a stream in the background.
type HeadsetListener interface {
	// Read returns the latest record and marks it as read.
	//
	// Returns:
	//   - headset.HeadsetData: the latest record, or the zero record if none arrived yet
	Read() headset.HeadsetData

	// HasBeenRead reports whether the latest record was already returned by Read.
	// It is true before the first record arrives.
	//
	// Returns:
	//   - bool: true if there is nothing new to read
	HasBeenRead() bool

	// Latest returns the latest record and how many records have arrived, without marking it read.
	//
	// Returns:
	//   - headset.HeadsetData: the latest record
	//   - uint64: the number of records received so far
	Latest() (headset.HeadsetData, uint64)

	// Recenter makes the latest record the origin: later reads report poses relative to it,
	// keeping each eye's offset from the eyes' midpoint. Recentering before any record
	// arrives clears the origin.
	Recenter()

	// Done is closed when the stream ends.
	//
	// Returns:
	//   - <-chan struct{}: the completion channel
	Done() <-chan struct{}

	// Err returns the error that ended the stream. A writer closing the pipe between
	// records, or a call to Close, is a clean end and yields nil.
	//
	// Returns:
	//   - error: the terminal read error, or nil
	Err() error

	// Close closes the underlying stream if it is closable and waits for the reader to stop.
	//
	// Returns:
	//   - error: error from closing the stream
	Close() error
}

// headsetListener implements HeadsetListener.
type headsetListener struct {
	r       io.Reader
	onFrame func(seq uint64, data headset.HeadsetData)

	mu     sync.Mutex
	latest headset.HeadsetData
	offset headset.HeadsetData
	seq    uint64
	read   bool
	err    error

	// closing is set by Close before the stream is closed under the reader.
	closing bool

	done chan struct{}
}

var _ HeadsetListener = &headsetListener{}

// NewHeadsetListener starts reading records from r.
//
// Parameters:
//   - r: the stream, typically an accepted pipe connection
//   - options: functional options
//
// Returns:
//   - HeadsetListener: the running listener
func NewHeadsetListener(r io.Reader, options ...HeadsetListenerBuilderOption) HeadsetListener {
	l := &headsetListener{
		r:    r,
		read: true,
		done: make(chan struct{}),
	}
	for _, opt := range options {
		opt(l)
	}
	go l.loop()
	return l
}

func (l *headsetListener) loop() {
	defer close(l.done)

	buf := make([]byte, headset.HeadsetDataSize)
	for {
		if _, err := io.ReadFull(l.r, buf); err != nil {
			l.finish(err)
			return
		}

		var data headset.HeadsetData
		if err := data.UnmarshalBinary(buf); err != nil {
			l.finish(err)
			return
		}

		l.mu.Lock()
		l.latest = data
		l.seq++
		l.read = false
		seq := l.seq
		data = l.relative()
		l.mu.Unlock()

		if l.onFrame != nil {
			l.onFrame(seq, data)
		}
	}
}

// finish records why the stream ended. EOF on a record boundary and a stream closed by
// Close are clean ends.
func (l *headsetListener) finish(err error) {
	l.mu.Lock()
	closing := l.closing
	l.mu.Unlock()

	if errors.Is(err, io.EOF) || closing && closedStream(err) {
		err = nil
	} else if errors.Is(err, io.ErrUnexpectedEOF) {
		err = fmt.Errorf("listener: stream ended mid-record: %w", err)
	} else {
		err = fmt.Errorf("listener: %w", err)
	}
	if err != nil {
		log.Printf("[Listener] %v", err)
	}
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

// closedStream reports whether err comes from reading a stream that was closed locally.
func closedStream(err error) bool {
	return errors.Is(err, os.ErrClosed) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

// relative returns the latest record against the recenter offset. Callers hold mu.
func (l *headsetListener) relative() headset.HeadsetData {
	return l.latest.Sub(l.offset)
}

func (l *headsetListener) Read() headset.HeadsetData {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.read = true
	return l.relative()
}

func (l *headsetListener) HasBeenRead() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read
}

func (l *headsetListener) Latest() (headset.HeadsetData, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.relative(), l.seq
}

func (l *headsetListener) Recenter() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.offset = l.latest
	l.offset.CenterEyes()
	log.Printf("[Listener] recentered at left %v right %v", l.latest.Left.Pos, l.latest.Right.Pos)
}

func (l *headsetListener) Done() <-chan struct{} {
	return l.done
}

func (l *headsetListener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *headsetListener) Close() error {
	l.mu.Lock()
	l.closing = true
	l.mu.Unlock()

	var err error
	if c, ok := l.r.(io.Closer); ok {
		err = c.Close()
	}
	<-l.done
	return err
}
