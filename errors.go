package inject

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/alecthomas/errors"
)

// Failure kinds reported by a [*DependencyError]. Match them with errors.Is.
var (
	ErrBadParams          = errors.New("bad parameters")
	ErrMissingDependency  = errors.New("missing dependency")
	ErrNilDependency      = errors.New("nil dependency")
	ErrCircularDependency = errors.New("circular dependency")
)

// ErrNestedLocalResolve is returned when a local resolution is started while
// another one is already active on a container using [SharedOverlay].
var ErrNestedLocalResolve = errors.New("nested local resolution is not supported with the shared overlay")

// DependencyError describes why a key could not be resolved.
type DependencyError struct {
	// Kind is one of ErrBadParams, ErrMissingDependency, ErrNilDependency or ErrCircularDependency.
	Kind error
	Key  ServiceKey
	// Available is the number of entries visible to the failed lookup.
	Available int
	// Similar lists visible keys sharing the type or name of Key.
	Similar []ServiceKey
	// Chain is the resolution path that led back to Key.
	Chain []ServiceKey
	detail string
}

func (e *DependencyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s for %s", e.Kind, e.Key)
	if e.detail != "" {
		fmt.Fprintf(&b, ": %s", e.detail)
	}
	if errors.Is(e.Kind, ErrMissingDependency) {
		fmt.Fprintf(&b, " (%d entries registered", e.Available)
		if len(e.Similar) > 0 {
			similar := make([]string, len(e.Similar))
			for i, key := range e.Similar {
				similar[i] = key.String()
			}
			fmt.Fprintf(&b, "; similar: %s", strings.Join(similar, ", "))
		}
		b.WriteString(")")
	}
	if len(e.Chain) > 0 {
		chain := make([]string, len(e.Chain))
		for i, key := range e.Chain {
			chain[i] = key.String()
		}
		fmt.Fprintf(&b, ": %s", strings.Join(chain, " -> "))
	}
	return b.String()
}

func (e *DependencyError) Unwrap() error { return e.Kind }

func badParams(key ServiceKey, got any, want reflect.Type) error {
	return &DependencyError{Kind: ErrBadParams, Key: key, detail: fmt.Sprintf("got %T, want %s", got, want)}
}

func nilDependency(key ServiceKey) error {
	return &DependencyError{Kind: ErrNilDependency, Key: key}
}

func missingDependency(key ServiceKey, available int, similar []ServiceKey) error {
	return &DependencyError{Kind: ErrMissingDependency, Key: key, Available: available, Similar: similar}
}

func circularDependency(key ServiceKey, chain []ServiceKey) error {
	return &DependencyError{Kind: ErrCircularDependency, Key: key, Chain: chain}
}

// isMissing reports whether err is a missing dependency failure for exactly key.
func isMissing(err error, key ServiceKey) bool {
	var derr *DependencyError
	if !errors.As(err, &derr) {
		return false
	}
	return derr.Key == key && errors.Is(derr.Kind, ErrMissingDependency)
}

// isNil reports whether value is an absent dependency.
//
// Nil slices and maps are usable empty values and are not considered absent.
func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}
