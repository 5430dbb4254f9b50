package refs_test

import (
	"testing"

	"github.com/jaspr/jaspr/internal/refs"
	"github.com/stretchr/testify/require"
)

func TestEncodeParseBranchRoundTrip(t *testing.T) {
	cases := []struct {
		target, id string
		rev        int
	}{
		{"main", "abc12345", 0},
		{"main", "abc12345", 1},
		{"release/v2", "deadbeef", 42},
	}
	for _, c := range cases {
		name := refs.EncodeBranch("jaspr", c.target, c.id, c.rev)
		parsed, ok := refs.ParseBranch(name, "jaspr")
		require.True(t, ok)
		require.Equal(t, c.id, parsed.CommitID)
		require.Equal(t, c.target, parsed.Target)
		require.Equal(t, c.rev, parsed.RevNum)
	}
}

func TestParseBranchWrongPrefix(t *testing.T) {
	_, ok := refs.ParseBranch("other/main/abc12345", "jaspr")
	require.False(t, ok)
}

func TestParseBranchNonNumericSuffixIsWholeID(t *testing.T) {
	parsed, ok := refs.ParseBranch("jaspr/main/abc_def", "jaspr")
	require.True(t, ok)
	require.Equal(t, "abc_def", parsed.CommitID)
	require.Equal(t, 0, parsed.RevNum)
}

func TestParseBranchThreeDigitSuffixIsWholeID(t *testing.T) {
	parsed, ok := refs.ParseBranch("jaspr/main/abc12345_001", "jaspr")
	require.True(t, ok)
	require.Equal(t, "abc12345_001", parsed.CommitID)
	require.Equal(t, 0, parsed.RevNum)
}

func TestEncodeParseNamedRoundTrip(t *testing.T) {
	name := refs.EncodeNamed("jaspr-named", "main", "feature/x")
	parsed, ok := refs.ParseNamed(name, "jaspr-named", "main")
	require.True(t, ok)
	require.Equal(t, "feature/x", parsed.StackName)
}

func TestParseNamedAnyTarget(t *testing.T) {
	parsed, ok := refs.ParseNamedAnyTarget("jaspr-named/main/my-stack", "jaspr-named")
	require.True(t, ok)
	require.Equal(t, "main", parsed.Target)
	require.Equal(t, "my-stack", parsed.StackName)
}
