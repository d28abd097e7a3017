package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, "apcalculusab", NormalizeName(" AP Calculus\tAB\n"))
	require.Equal(t, "0112345001", NormalizeID("01_12345_001"))
	require.Equal(t, "classdesc0112345001", NormalizeID("classDesc_01_12345_001"))
	require.Equal(t, "ALGEBRA I", CourseKey("  Algebra I "))
}

func TestClosest(t *testing.T) {
	_, _, ok := Closest("x", nil)
	require.False(t, ok)

	best, sim, ok := Closest("Algebra 1", []string{"Biology", "ALGEBRA I", "World History"})
	require.True(t, ok)
	require.Equal(t, "ALGEBRA I", best)
	require.Greater(t, sim, 0.8)
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName("Spanish II Honors", []string{"spanish"}))
	require.False(t, MatchName("Chemistry", []string{"spanish", "french"}))
}
