// Command injectgen generates inject modules from annotated Go source.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/alecthomas/errors"
	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	"github.com/kballard/go-shellquote"

	"github.com/alecthomas/inject/internal/depgraph"
	"github.com/alecthomas/inject/internal/flock"
	"github.com/alecthomas/inject/internal/generator"
	"github.com/alecthomas/inject/providers/logging"
)

type CLI struct {
	Version    kong.VersionFlag   `help:"Print the version and exit."`
	Chdir      kong.ChangeDirFlag `help:"Change to this directory before running." placeholder:"DIR" short:"C"`
	Logging    logging.Config     `embed:"" prefix:"log-"`
	Debug      bool               `help:"Enable debug logging of package loading."`
	Tags       []string           `help:"Tags to enable during type analysis (will also be read from $GOFLAGS)." placeholder:"TAG"`
	Resolve    []string           `help:"Resolve an ambiguous type with this provider." placeholder:"REF"`
	ModuleName string             `help:"Name of the generated module variable." default:"Module"`
	Strict     bool               `help:"Fail if a provider depends on a type nothing in the graph provides."`
	List       bool               `help:"List all dependencies instead of generating code."`
	Timeout    time.Duration      `help:"How long to wait for a concurrent run on the same package." default:"30s"`
	Dest       string             `help:"Destination package directory for generated files." arg:"" type:"existingdir"`
	Patterns   []string           `help:"Additional packages pattern to scan." arg:"" optional:""`
}

func main() {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		version = info.Main.Version
	}
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Description("Generate inject modules and Injectable implementations from //inject: annotations."),
		kong.Configuration(kongtoml.Loader, ".injectgen.toml", "~/.injectgen.toml"),
		kong.Vars{"version": version},
	)
	logger := logging.NewWriter(os.Stderr, cli.Logging)
	err := run(context.Background(), logger, cli)
	kctx.FatalIfErrorf(err)
}

func run(ctx context.Context, logger *slog.Logger, cli CLI) error {
	// Combine explicit tags and tags from GOFLAGS
	tags := append(slices.Clone(cli.Tags), parseGoTags(os.Getenv("GOFLAGS"))...)

	release, err := flock.Acquire(ctx, filepath.Join(cli.Dest, ".injectgen.lock"), cli.Timeout)
	if err != nil {
		return errors.WithStack(err)
	}
	defer release() //nolint

	graph, err := depgraph.Analyse(cli.Dest,
		depgraph.WithPatterns(cli.Patterns...),
		depgraph.WithProviders(cli.Resolve...),
		depgraph.WithDebug(cli.Debug),
		depgraph.WithTags(tags...),
	)
	if err != nil {
		return errors.WithStack(err)
	}

	for fn, missing := range graph.Missing {
		missingStr := []string{}
		for _, typ := range missing {
			missingStr = append(missingStr, typ.String())
		}
		if cli.Strict {
			return errors.Errorf("%s() is missing a provider for %s", fn.FullName(), strings.Join(missingStr, ", "))
		}
		logger.WarnContext(ctx, "No provider in the graph, it must be defined at runtime",
			"function", fn.FullName(), "missing", strings.Join(missingStr, ", "))
	}

	if cli.List {
		g := graph.Graph()
		for _, root := range slices.Sorted(maps.Keys(g)) {
			fmt.Printf("%s\n", root)
			for _, dep := range g[root] {
				fmt.Printf("  %s\n", dep)
			}
		}
		return nil
	}

	err = generator.GenerateFile(dirFS(cli.Dest), generator.Filename, graph, generator.WithModuleName(cli.ModuleName))
	if err != nil {
		return errors.WithStack(err)
	}
	logger.InfoContext(ctx, "Generated", "file", filepath.Join(cli.Dest, generator.Filename),
		"providers", len(graph.Providers), "injectables", len(graph.Injectables))
	return nil
}

// dirFS writes files relative to a directory.
type dirFS string

func (d dirFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return errors.WithStack(os.WriteFile(filepath.Join(string(d), name), data, perm))
}

func parseGoTags(goFlags string) []string {
	words, err := shellquote.Split(goFlags)
	if err != nil {
		return nil
	}
	tags := []string{}
	for i, word := range words {
		switch {
		case strings.HasPrefix(word, "-tags="):
			tags = append(tags, strings.Split(word[6:], ",")...)
		case strings.HasPrefix(word, "--tags="):
			tags = append(tags, strings.Split(word[7:], ",")...)
		case (word == "-tags" || word == "--tags") && i+1 < len(words):
			tags = append(tags, strings.Split(words[i+1], ",")...)
		}
	}
	return tags
}
