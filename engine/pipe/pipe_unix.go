//go:build unix

package pipe

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// PathFor maps a pipe name onto a FIFO path in the temporary directory.
// Names that already contain a path separator are returned unchanged.
//
// Parameters:
//   - name: the pipe name or an explicit FIFO path
//
// Returns:
//   - string: the FIFO path
func PathFor(name string) string {
	if filepath.Base(name) != name {
		return name
	}
	return filepath.Join(os.TempDir(), name)
}

// Dial opens the write end of an existing FIFO.
// It fails immediately when the FIFO does not exist or no reader has it open; it never waits.
//
// Parameters:
//   - path: the FIFO path
//
// Returns:
//   - io.WriteCloser: the write end
//   - error: error if the FIFO is missing, is not a FIFO, or has no reader
func Dial(path string) (io.WriteCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("pipe: dial %s: %w", path, err)
	}
	if info.Mode()&fs.ModeNamedPipe == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotPipe, path)
	}

	// O_NONBLOCK makes the open fail with ENXIO instead of blocking when there is no reader.
	// Writes still block from the caller's point of view through the runtime poller.
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("pipe: dial %s: %w", path, err)
	}
	return f, nil
}

type fifoListener struct {
	path string
}

// Listen creates the FIFO at path (reusing an existing FIFO) and returns the reader side.
//
// Parameters:
//   - path: the FIFO path
//
// Returns:
//   - Listener: the reader side
//   - error: error if the FIFO could not be created
func Listen(path string) (Listener, error) {
	if err := unix.Mkfifo(path, 0o600); err != nil {
		if !errors.Is(err, unix.EEXIST) {
			return nil, fmt.Errorf("pipe: mkfifo %s: %w", path, err)
		}
		info, statErr := os.Stat(path)
		if statErr != nil {
			return nil, fmt.Errorf("pipe: stat %s: %w", path, statErr)
		}
		if info.Mode()&fs.ModeNamedPipe == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotPipe, path)
		}
	}
	return &fifoListener{path: path}, nil
}

// Accept opens the FIFO for reading. The open blocks until a writer connects.
func (l *fifoListener) Accept() (io.ReadCloser, error) {
	f, err := os.OpenFile(l.path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("pipe: accept %s: %w", l.path, err)
	}
	return f, nil
}

func (l *fifoListener) Path() string {
	return l.path
}

func (l *fifoListener) Close() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
