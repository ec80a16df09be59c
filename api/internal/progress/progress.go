// Package progress collects pipeline log lines for an interactive front end.
package progress

import (
	"strings"
	"sync"
)

// Buffer is an append-only, mutex-guarded text buffer. It implements io.Writer,
// so it can back a *log.Logger. After every append the notify callback
// receives a snapshot of the whole buffer.
type Buffer struct {
	mu     sync.Mutex
	b      strings.Builder
	notify func(snapshot string)
}

func NewBuffer(notify func(snapshot string)) *Buffer {
	return &Buffer{notify: notify}
}

// Write appends p as a line; a trailing newline is dropped.
func (buf *Buffer) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")

	buf.mu.Lock()
	if buf.b.Len() > 0 {
		buf.b.WriteByte('\n')
	}
	buf.b.WriteString(line)
	snapshot := buf.b.String()
	notify := buf.notify
	buf.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
	return len(p), nil
}

// Error appends "ERROR: <msg>".
func (buf *Buffer) Error(err error) {
	if err == nil {
		return
	}
	_, _ = buf.Write([]byte("ERROR: " + err.Error()))
}

func (buf *Buffer) String() string {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return buf.b.String()
}
