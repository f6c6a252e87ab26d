package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlignUp(t *testing.T) {
	for _, tc := range []struct {
		v, alignment, want int
	}{
		{0, 16, 0},
		{1, 16, 16},
		{9, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{13, 1, 13},
		{13, 0, 13},
		{10, 8, 16},
	} {
		require.Equal(t, tc.want, AlignUp(tc.v, tc.alignment), "AlignUp(%d, %d)", tc.v, tc.alignment)
	}
}

func TestHalfUp(t *testing.T) {
	require.Equal(t, 9, HalfUp(18))
	require.Equal(t, 5, HalfUp(9))
	require.Equal(t, 5, HalfUp(10))
	require.Equal(t, uint32(1), HalfUp(uint32(1)))
}
