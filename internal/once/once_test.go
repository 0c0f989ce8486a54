package once

import (
	"sync/atomic"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/errors"
	"golang.org/x/sync/errgroup"
)

func TestCellComputesOnce(t *testing.T) {
	var cell Cell[*int]
	var calls atomic.Int32
	compute := func() (*int, error) {
		calls.Add(1)
		v := 42
		return &v, nil
	}

	results := make([]*int, 64)
	wg := errgroup.Group{}
	for i := range results {
		wg.Go(func() error {
			v, err := cell.Get(compute)
			results[i] = v
			return err
		})
	}
	assert.NoError(t, wg.Wait())
	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.True(t, v == results[0], "all callers must observe the same instance")
	}
}

func TestCellDoesNotCacheErrors(t *testing.T) {
	var cell Cell[string]
	_, err := cell.Get(func() (string, error) { return "", errors.New("boom") })
	assert.EqualError(t, err, "boom")

	_, ok := cell.Peek()
	assert.False(t, ok)

	v, err := cell.Get(func() (string, error) { return "ok", nil })
	assert.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestCellReset(t *testing.T) {
	var cell Cell[int]
	v, err := cell.Get(func() (int, error) { return 1, nil })
	assert.NoError(t, err)
	assert.Equal(t, 1, v)

	cell.Reset()
	v, err = cell.Get(func() (int, error) { return 2, nil })
	assert.NoError(t, err)
	assert.Equal(t, 2, v)
}
