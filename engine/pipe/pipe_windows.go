//go:build windows

package pipe

import (
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/Microsoft/go-winio"
)

const pipePrefix = `\\.\pipe\`

// PathFor maps a pipe name onto its `\\.\pipe\` path.
// Names that already carry the prefix are returned unchanged.
//
// Parameters:
//   - name: the pipe name or full pipe path
//
// Returns:
//   - string: the pipe path
func PathFor(name string) string {
	if strings.HasPrefix(name, pipePrefix) {
		return name
	}
	return pipePrefix + name
}

// Dial opens the client (write) end of an existing named pipe.
// winio only retries while the server reports the pipe busy; a missing pipe fails immediately.
//
// Parameters:
//   - path: the pipe path
//
// Returns:
//   - io.WriteCloser: the connected write end
//   - error: error if the pipe does not exist
func Dial(path string) (io.WriteCloser, error) {
	conn, err := winio.DialPipe(path, nil)
	if err != nil {
		return nil, fmt.Errorf("pipe: dial %s: %w", path, err)
	}
	return conn, nil
}

type winListener struct {
	path string
	ln   net.Listener
}

// Listen creates the server end of a named pipe.
//
// Parameters:
//   - path: the pipe path
//
// Returns:
//   - Listener: the reader side
//   - error: error if the pipe could not be created
func Listen(path string) (Listener, error) {
	ln, err := winio.ListenPipe(path, &winio.PipeConfig{
		InputBufferSize: 4096,
	})
	if err != nil {
		return nil, fmt.Errorf("pipe: listen %s: %w", path, err)
	}
	return &winListener{path: path, ln: ln}, nil
}

func (l *winListener) Accept() (io.ReadCloser, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("pipe: accept %s: %w", l.path, err)
	}
	return conn, nil
}

func (l *winListener) Path() string {
	return l.path
}

func (l *winListener) Close() error {
	return l.ln.Close()
}
