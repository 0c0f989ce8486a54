// Package codewriter is a small helper for writing indented Go source.
package codewriter

import (
	"bytes"
	"fmt"
	"go/format"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/errors"
)

type Writer struct {
	pkg     string
	header  []string
	imports map[string]string
	body    *bytes.Buffer
	indent  int
}

// New creates a Writer for a file in package pkg.
func New(pkg string) *Writer {
	return &Writer{pkg: pkg, imports: map[string]string{}, body: &bytes.Buffer{}}
}

// Header adds a comment line above the package clause.
func (w *Writer) Header(format string, args ...any) {
	w.header = append(w.header, "// "+fmt.Sprintf(format, args...))
}

// Import adds imports to the file.
//
// Each import is either a package path, optionally quoted, or an alias
// followed by a quoted path, eg. `imp1234 "database/sql"`.
func (w *Writer) Import(imports ...string) {
	for _, imp := range imports {
		alias, path, ok := strings.Cut(imp, " ")
		if !ok {
			alias, path = "", imp
		}
		if unquoted, err := strconv.Unquote(path); err == nil {
			path = unquoted
		}
		w.imports[path] = alias
	}
}

// L writes an indented line.
func (w *Writer) L(format string, args ...any) {
	w.Indent()
	w.W(format, args...)
	w.body.WriteByte('\n')
}

// W writes formatted text without indentation or a trailing newline.
func (w *Writer) W(format string, args ...any) {
	if len(args) == 0 {
		w.body.WriteString(format)
		return
	}
	fmt.Fprintf(w.body, format, args...)
}

// Indent writes the current indentation.
func (w *Writer) Indent() {
	w.body.WriteString(strings.Repeat("\t", w.indent))
}

// In runs fn with the indentation increased by one level.
func (w *Writer) In(fn func(w *Writer)) {
	w.indent++
	defer func() { w.indent-- }()
	fn(w)
}

// Bytes returns the unformatted source.
func (w *Writer) Bytes() []byte {
	out := &bytes.Buffer{}
	for _, line := range w.header {
		fmt.Fprintln(out, line)
	}
	if len(w.header) > 0 {
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "package %s\n\n", w.pkg)
	if len(w.imports) > 0 {
		fmt.Fprintln(out, "import (")
		for _, path := range slices.Sorted(maps.Keys(w.imports)) {
			if alias := w.imports[path]; alias != "" {
				fmt.Fprintf(out, "\t%s %q\n", alias, path)
			} else {
				fmt.Fprintf(out, "\t%q\n", path)
			}
		}
		fmt.Fprintln(out, ")")
		fmt.Fprintln(out)
	}
	out.Write(w.body.Bytes())
	return out.Bytes()
}

// Format returns the gofmt formatted source.
func (w *Writer) Format() ([]byte, error) {
	source := w.Bytes()
	formatted, err := format.Source(source)
	if err != nil {
		return nil, errors.Errorf("failed to format generated code: %w\n%s", err, source)
	}
	return formatted, nil
}
