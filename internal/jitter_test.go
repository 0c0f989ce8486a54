package internal

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestJitter(t *testing.T) {
	for range 1000 {
		d := Jitter(time.Second)
		assert.True(t, d >= 950*time.Millisecond && d < 1050*time.Millisecond, "%s", d)
	}
	assert.Equal(t, time.Duration(10), Jitter(10))
}
