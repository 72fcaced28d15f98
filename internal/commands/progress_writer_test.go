package commands

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressWriterHoldsPartialLines(t *testing.T) {
	var out bytes.Buffer
	pw := NewProgressWriter(&out)
	assert.Same(t, pw, NewProgressWriter(pw))

	fmt.Fprint(pw, "gpt-5.1-pro: ")
	assert.Empty(t, out.String())

	fmt.Fprint(pw, "1,234 tokens\n[heartbeat] 30s elapsed")
	assert.Equal(t, "gpt-5.1-pro: 1,234 tokens\n", out.String())

	require.NoError(t, pw.Flush())
	assert.Equal(t, "gpt-5.1-pro: 1,234 tokens\n[heartbeat] 30s elapsed", out.String())
	require.NoError(t, pw.Flush())
	assert.Equal(t, "gpt-5.1-pro: 1,234 tokens\n[heartbeat] 30s elapsed", out.String())
}

type writeRecorder struct {
	mu     sync.Mutex
	writes []string
}

func (r *writeRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, string(p))
	return len(p), nil
}

func TestProgressWriterConcurrentLines(t *testing.T) {
	rec := &writeRecorder{}
	pw := NewProgressWriter(rec)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				fmt.Fprintf(pw, "[heartbeat] worker %d beat %d\n", g, i)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, pw.Flush())

	var lines []string
	for _, w := range rec.writes {
		require.True(t, strings.HasSuffix(w, "\n"), "write %q is not whole lines", w)
		lines = append(lines, strings.Split(strings.TrimSuffix(w, "\n"), "\n")...)
	}
	require.Len(t, lines, 400)
	for _, l := range lines {
		assert.Regexp(t, `^\[heartbeat\] worker \d beat \d+$`, l)
	}
}
