// Package loggingtest provides loggers for tests.
package loggingtest

import (
	"bytes"
	"log/slog"
	"os"
	"sync"
)

func NewForTesting() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Capture is a concurrency safe buffer of text log records.
type Capture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewCapture creates a debug level logger recording to the returned Capture.
func NewCapture() (*slog.Logger, *Capture) {
	capture := &Capture{}
	return slog.New(slog.NewTextHandler(capture, &slog.HandlerOptions{Level: slog.LevelDebug})), capture
}

func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *Capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}
