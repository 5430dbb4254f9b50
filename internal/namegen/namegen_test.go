package namegen_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/jaspr/jaspr/internal/namegen"
	"github.com/stretchr/testify/require"
)

func TestGenerateBasic(t *testing.T) {
	require.Equal(t, "fix-the-thing", namegen.Generate("Fix the thing!"))
}

func TestGenerateEmptyFallsBack(t *testing.T) {
	require.Equal(t, "stack", namegen.Generate("!!!"))
}

func TestGenerateExactly40NotTruncated(t *testing.T) {
	subj := strings.Repeat("a", 40)
	require.Equal(t, subj, namegen.Generate(subj))
	require.Len(t, namegen.Generate(subj), 40)
}

func TestGenerate41Truncated(t *testing.T) {
	subj := strings.Repeat("a", 41)
	out := namegen.Generate(subj)
	require.LessOrEqual(t, len(out), 40)
	require.False(t, strings.HasSuffix(out, "-"))
}

func TestGenerateTruncationChopsAtDash(t *testing.T) {
	subj := strings.Repeat("a", 38) + "-" + strings.Repeat("b", 10)
	out := namegen.Generate(subj)
	require.Equal(t, strings.Repeat("a", 38), out)
}

func TestUniqueNameNoCollision(t *testing.T) {
	name, err := namegen.UniqueName("Fix it", 3, rand.New(rand.NewSource(1)), func(string) bool { return false })
	require.NoError(t, err)
	require.Equal(t, "fix-it", name)
}

func TestUniqueNameCollidesThenSucceeds(t *testing.T) {
	calls := 0
	taken := func(name string) bool {
		calls++
		return calls <= 2
	}
	name, err := namegen.UniqueName("Fix it", 5, rand.New(rand.NewSource(1)), taken)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(name, "fix-it-"))
}

func TestUniqueNameExhausted(t *testing.T) {
	_, err := namegen.UniqueName("Fix it", 2, rand.New(rand.NewSource(1)), func(string) bool { return true })
	require.Error(t, err)
}
