package directiveparser

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		directive string
		want      Directive
		wantErr   bool
	}{
		{
			name:      "Empty",
			directive: "",
			wantErr:   true,
		},
		{
			name:      "UnknownDirective",
			directive: "inject:bogus",
			wantErr:   true,
		},
		{
			name:      "WrongPrefix",
			directive: "zero:provider",
			wantErr:   true,
		},
		{
			name:      "Provider",
			directive: "inject:provider",
			want:      &DirectiveProvider{},
		},
		{
			name:      "SingletonProvider",
			directive: "inject:provider singleton",
			want:      &DirectiveProvider{Singleton: true},
		},
		{
			name:      "NamedProvider",
			directive: "inject:provider name=primary",
			want:      &DirectiveProvider{Name: "primary"},
		},
		{
			name:      "QuotedName",
			directive: `inject:provider singleton name="read replica"`,
			want:      &DirectiveProvider{Singleton: true, Name: "read replica"},
		},
		{
			name:      "AllOptions",
			directive: "inject:provider weak singleton name=db.primary",
			want:      &DirectiveProvider{Singleton: true, Weak: true, Name: "db.primary"},
		},
		{
			name:      "NameWithWhitespace",
			directive: `inject:provider name=" padded"`,
			wantErr:   true,
		},
		{
			name:      "MissingNameValue",
			directive: "inject:provider name=",
			wantErr:   true,
		},
		{
			name:      "Injectable",
			directive: "inject:injectable",
			want:      &DirectiveInjectable{},
		},
		{
			name:      "InjectableWithConstructor",
			directive: "inject:injectable constructor",
			want:      &DirectiveInjectable{Constructor: true},
		},
		{
			name:      "InjectableTrailingGarbage",
			directive: "inject:injectable singleton",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.directive)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirectiveString(t *testing.T) {
	tests := []struct {
		name      string
		directive string
	}{
		{name: "Provider", directive: "inject:provider"},
		{name: "Singleton", directive: "inject:provider singleton"},
		{name: "Weak", directive: "inject:provider weak"},
		{name: "Named", directive: "inject:provider singleton name=primary"},
		{name: "QuotedName", directive: `inject:provider name="read replica"`},
		{name: "Injectable", directive: "inject:injectable"},
		{name: "Constructor", directive: "inject:injectable constructor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directive, err := Parse(tt.directive)
			assert.NoError(t, err)
			assert.Equal(t, tt.directive, directive.String())
		})
	}
}
