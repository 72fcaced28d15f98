package commands

import (
	"bytes"
	"io"
	"sync"
)

// ProgressWriter is the stderr of a dispatch. Heartbeats, the session banner
// and usage lines come from different goroutines; it forwards only complete
// lines, one locked write each, so a heartbeat never lands inside a usage line
// that was printed in pieces. Flush writes a trailing partial line.
type ProgressWriter struct {
	mu  sync.Mutex
	w   io.Writer
	buf []byte
}

// NewProgressWriter wraps w. Wrapping a ProgressWriter again returns it unchanged.
func NewProgressWriter(w io.Writer) *ProgressWriter {
	if pw, ok := w.(*ProgressWriter); ok {
		return pw
	}
	return &ProgressWriter{w: w}
}

func (pw *ProgressWriter) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	pw.buf = append(pw.buf, p...)
	i := bytes.LastIndexByte(pw.buf, '\n')
	if i < 0 {
		return len(p), nil
	}
	_, err := pw.w.Write(pw.buf[:i+1])
	pw.buf = append(pw.buf[:0], pw.buf[i+1:]...)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (pw *ProgressWriter) WriteString(s string) (int, error) {
	return pw.Write([]byte(s))
}

// Flush writes buffered text that has no newline yet.
func (pw *ProgressWriter) Flush() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if len(pw.buf) == 0 {
		return nil
	}
	_, err := pw.w.Write(pw.buf)
	pw.buf = pw.buf[:0]
	return err
}
