// Package strcase splits and re-cases Go identifiers.
package strcase

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	classLower = iota + 1
	classUpper
	classDigit
	classOther
)

func classOf(r rune) int {
	switch {
	case unicode.IsLower(r):
		return classLower
	case unicode.IsUpper(r):
		return classUpper
	case unicode.IsDigit(r):
		return classDigit
	default:
		return classOther
	}
}

// Split an identifier into words at case, digit and punctuation boundaries.
//
// Runs of upper case letters are kept together as acronyms, eg.
// "HTTPClient" splits into "HTTP" and "Client".
func Split(s string) []string {
	if !utf8.ValidString(s) {
		return []string{s}
	}
	var runs [][]rune
	lastClass := 0
	for _, r := range s {
		class := classOf(r)
		if class == lastClass {
			runs[len(runs)-1] = append(runs[len(runs)-1], r)
		} else {
			runs = append(runs, []rune{r})
		}
		lastClass = class
	}
	// The last letter of an upper case run starts the following word.
	for i := 0; i < len(runs)-1; i++ {
		if unicode.IsUpper(runs[i][0]) && unicode.IsLower(runs[i+1][0]) {
			runs[i+1] = append([]rune{runs[i][len(runs[i])-1]}, runs[i+1]...)
			runs[i] = runs[i][:len(runs[i])-1]
		}
	}
	out := make([]string, 0, len(runs))
	for _, run := range runs {
		if len(run) > 0 {
			out = append(out, string(run))
		}
	}
	return out
}

// ToLowerCamel converts an identifier to lowerCamelCase, lower casing a leading acronym.
func ToLowerCamel(s string) string {
	parts := Split(s)
	if len(parts) == 0 {
		return s
	}
	parts[0] = strings.ToLower(parts[0])
	return strings.Join(parts, "")
}

// ToUpperCamel converts an identifier to UpperCamelCase.
func ToUpperCamel(s string) string {
	parts := Split(s)
	for i, part := range parts {
		r, size := utf8.DecodeRuneInString(part)
		parts[i] = string(unicode.ToUpper(r)) + part[size:]
	}
	return strings.Join(parts, "")
}
