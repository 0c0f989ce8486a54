package logging

import (
	"bytes"
	"context"
	"log"
	"log/slog"
	"sync"

	"github.com/alecthomas/inject"
)

// Legacy creates a [log.Logger] that forwards each complete line to logger at
// the given level.
//
// Partial lines are held until a newline arrives.
func Legacy(logger *slog.Logger, level slog.Level) *log.Logger {
	return log.New(&lineWriter{logger: logger, level: level}, "", 0)
}

// legacyDefinitions registers a *log.Logger factory parameterised by level.
//
//	logger, err := inject.Get[*log.Logger](ctx, c, inject.WithParams(slog.LevelWarn))
func legacyDefinitions(d *inject.Definitions) {
	inject.FactoryWithParams(d, func(ctx context.Context, c *inject.Container, level slog.Level) (*log.Logger, error) {
		logger, err := inject.Get[*slog.Logger](ctx, c)
		if err != nil {
			return nil, err
		}
		return Legacy(logger, level), nil
	})
}

type lineWriter struct {
	mu      sync.Mutex
	logger  *slog.Logger
	level   slog.Level
	pending []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.logger.Log(context.Background(), w.level, string(w.pending[:i]))
		w.pending = w.pending[i+1:]
	}
	if len(w.pending) == 0 {
		w.pending = nil
	}
	return len(p), nil
}
