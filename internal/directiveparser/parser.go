// Package directiveparser implements a parser for injectgen's compiler directives.
package directiveparser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/errors"
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	annotationParser = participle.MustBuild[annotation](
		participle.Lexer(directiveLexer),
		participle.Union[Directive](&DirectiveProvider{}, &DirectiveInjectable{}),
		participle.Elide("Whitespace"),
		participle.Unquote("String"),
	)
	directiveLexer = lexer.MustSimple([]lexer.SimpleRule{
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_.-]*`},
		{"String", `"(\\.|[^"])*"`},
		{"Punct", `[:=]`},
		{"Whitespace", `\s+`},
	})
)

type annotation struct {
	Directive Directive `parser:"'inject' ':' @@"`
}

type Directive interface {
	directive()
	// Validate the directive.
	Validate() error
	String() string
}

// DirectiveProvider marks a function as a provider of its first return value.
//
//	//inject:provider [singleton] [weak] [name=<name>]
type DirectiveProvider struct {
	Singleton bool   `parser:"'provider' (  @'singleton'"`
	Weak      bool   `parser:"            | @'weak'"`
	Name      string `parser:"            | 'name' '=' @(String | Ident) )*"`
}

func (p *DirectiveProvider) directive() {}
func (p *DirectiveProvider) String() string {
	out := "inject:provider"
	if p.Singleton {
		out += " singleton"
	}
	if p.Weak {
		out += " weak"
	}
	if p.Name != "" {
		out += " name=" + quoteIfNeeded(p.Name)
	}
	return out
}
func (p *DirectiveProvider) Validate() error {
	if strings.TrimSpace(p.Name) != p.Name {
		return errors.Errorf("provider name %q must not have surrounding whitespace", p.Name)
	}
	return nil
}

// DirectiveInjectable marks a struct type as able to construct itself from
// its fields.
//
//	//inject:injectable [constructor]
type DirectiveInjectable struct {
	Constructor bool `parser:"'injectable' @'constructor'?"`
}

func (d *DirectiveInjectable) directive() {}
func (d *DirectiveInjectable) String() string {
	if d.Constructor {
		return "inject:injectable constructor"
	}
	return "inject:injectable"
}
func (d *DirectiveInjectable) Validate() error { return nil }

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.-]*$`)

func quoteIfNeeded(s string) string {
	if identRe.MatchString(s) {
		return s
	}
	return strconv.Quote(s)
}

// Parse an injectgen compiler directive.
func Parse(text string) (Directive, error) {
	if text == "" {
		return nil, errors.Errorf("empty directive")
	}

	result, err := annotationParser.ParseString("", text)
	if err != nil {
		return nil, errors.Errorf("failed to parse directive: %w", err)
	}
	directive := result.Directive
	if err := directive.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	return directive, nil
}
