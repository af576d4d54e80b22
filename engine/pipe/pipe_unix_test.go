//go:build unix

package pipe

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPathFor(t *testing.T) {
	if got, want := PathFor("demo"), filepath.Join(os.TempDir(), "demo"); got != want {
		t.Fatalf("PathFor(demo) = %q, want %q", got, want)
	}
	if got := PathFor("/run/xr/demo"); got != "/run/xr/demo" {
		t.Fatalf("explicit paths should pass through, got %q", got)
	}
	if filepath.Base(DefaultPath()) != DefaultName {
		t.Fatalf("DefaultPath() = %q", DefaultPath())
	}
}

func TestDialMissingPipeFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")
	if _, err := Dial(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestDialRegularFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Dial(path); !errors.Is(err, ErrNotPipe) {
		t.Fatalf("err = %v, want ErrNotPipe", err)
	}
	if _, err := Listen(path); !errors.Is(err, ErrNotPipe) {
		t.Fatalf("Listen err = %v, want ErrNotPipe", err)
	}
}

func TestDialWithoutReaderFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noreader")
	ln, err := Listen(path)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	if w, err := Dial(path); err == nil {
		w.Close()
		t.Fatalf("dial should fail when nobody reads the pipe")
	}
}

func TestListenDialRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip")
	ln, err := Listen(path)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	if ln.Path() != path {
		t.Fatalf("Path() = %q", ln.Path())
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		r, err := ln.Accept()
		if err != nil {
			done <- result{err: err}
			return
		}
		defer r.Close()
		buf := make([]byte, 5)
		_, err = io.ReadFull(r, buf)
		done <- result{data: buf, err: err}
	}()

	// The reader opens asynchronously; Dial fails until it has.
	var w io.WriteCloser
	deadline := time.Now().Add(2 * time.Second)
	for {
		w, err = Dial(path)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial never succeeded: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	w.Close()

	res := <-done
	if res.err != nil {
		t.Fatalf("read failed: %v", res.err)
	}
	if string(res.data) != "hello" {
		t.Fatalf("read %q", res.data)
	}

	if err := ln.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("FIFO should be removed on close, stat err = %v", err)
	}
}
