package concurrent_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/jaspr/jaspr/internal/concurrent"
	"github.com/stretchr/testify/require"
)

func TestSliceMap(t *testing.T) {
	in := []int{1, 2, 3}
	out, err := concurrent.SliceMap(in, func(i int) (int, error) {
		return i + 1, nil
	})

	require.NoError(t, err)

	slices.Sort(out)

	require.Equal(t, []int{2, 3, 4}, out)
}

func TestSliceMapPropagatesError(t *testing.T) {
	in := []int{1, 2, 3}
	_, err := concurrent.SliceMap(in, func(i int) (int, error) {
		if i == 2 {
			return 0, errors.New("boom")
		}
		return i, nil
	})
	require.Error(t, err)
}

func TestSliceMapWithIndexPreservesOrder(t *testing.T) {
	in := []string{"a", "b", "c"}
	out, err := concurrent.SliceMapWithIndex(in, func(i int, s string) (string, error) {
		return s, nil
	})
	require.NoError(t, err)
	require.Equal(t, in, out)
}
