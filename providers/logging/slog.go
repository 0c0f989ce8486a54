// Package logging contains providers for common loggers.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"github.com/alecthomas/inject"
)

// Config for the logger, suitable for embedding in a kong CLI.
type Config struct {
	Level slog.Level `help:"The default logging level." default:"info"`
	JSON  bool       `help:"Enable JSON logging."`
}

// New creates a logger writing to stdout.
func New(config Config) *slog.Logger {
	return NewWriter(os.Stdout, config)
}

// NewWriter creates a logger writing to w, coloured with tint unless JSON is enabled.
func NewWriter(w io.Writer, config Config) *slog.Logger {
	var handler slog.Handler
	if config.JSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: config.Level,
		})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      config.Level,
			TimeFormat: "15:04:05",
		})
	}
	return slog.New(handler)
}

//inject:provider weak singleton
func ProvideLogger(config Config) *slog.Logger {
	return New(config)
}

// Module registers config, a singleton *slog.Logger built from it, and a
// *log.Logger factory taking a [slog.Level] parameter.
//
// Config is resolved against the container the module is installed in.
func Module(config Config) inject.Module {
	return inject.NewModule("github.com/alecthomas/inject/providers/logging", func(d *inject.Definitions) {
		legacyDefinitions(d)
		inject.Value(d, config)
		inject.Singleton(d, func(ctx context.Context, c *inject.Container) (*slog.Logger, error) {
			config, err := inject.Get[Config](ctx, c)
			if err != nil {
				return nil, err
			}
			return ProvideLogger(config), nil
		})
	})
}
