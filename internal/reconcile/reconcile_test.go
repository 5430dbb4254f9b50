package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/gitshell"
	"github.com/jaspr/jaspr/internal/stack"
)

func TestSliceByCountPositiveKeepsFirstN(t *testing.T) {
	commits := []gitshell.Commit{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	out, err := sliceByCount(commits, intPtr(2))
	require.NoError(t, err)
	assert.Equal(t, []gitshell.Commit{{ID: "a"}, {ID: "b"}}, out)
}

func TestSliceByCountNegativeDropsFromHead(t *testing.T) {
	commits := []gitshell.Commit{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	out, err := sliceByCount(commits, intPtr(-1))
	require.NoError(t, err)
	assert.Equal(t, []gitshell.Commit{{ID: "a"}, {ID: "b"}}, out)
}

func TestSliceByCountNilKeepsAll(t *testing.T) {
	commits := []gitshell.Commit{{ID: "a"}, {ID: "b"}}
	out, err := sliceByCount(commits, nil)
	require.NoError(t, err)
	assert.Equal(t, commits, out)
}

func TestSliceByCountOutOfRange(t *testing.T) {
	commits := []gitshell.Commit{{ID: "a"}}
	_, err := sliceByCount(commits, intPtr(5))
	assert.ErrorIs(t, err, stack.ErrCountOutOfRange)

	_, err = sliceByCount(commits, intPtr(-5))
	assert.ErrorIs(t, err, stack.ErrCountOutOfRange)
}

func TestApplyDontPushFilterDropsFromFirstMatch(t *testing.T) {
	cfg := config.DefaultConfig()
	commits := []gitshell.Commit{
		{ID: "a", ShortSubject: "first change"},
		{ID: "b", ShortSubject: "wip: still cooking"},
		{ID: "c", ShortSubject: "third change"},
	}
	out := applyDontPushFilter(cfg, commits)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestApplyDontPushFilterNoMatchKeepsAll(t *testing.T) {
	cfg := config.DefaultConfig()
	commits := []gitshell.Commit{
		{ID: "a", ShortSubject: "first change"},
		{ID: "b", ShortSubject: "second change"},
	}
	out := applyDontPushFilter(cfg, commits)
	assert.Len(t, out, 2)
}

func TestNextRevisionNumberStartsAtOne(t *testing.T) {
	n := nextRevisionNumber(map[string]string{}, "jaspr", "main", "aaa111")
	assert.Equal(t, 1, n)
}

func TestNextRevisionNumberIncrementsPastExisting(t *testing.T) {
	hashes := map[string]string{
		"jaspr/main/aaa111_01": "h1",
		"jaspr/main/aaa111_03": "h3",
		"jaspr/main/aaa111_02": "h2",
	}
	n := nextRevisionNumber(hashes, "jaspr", "main", "aaa111")
	assert.Equal(t, 4, n)
}

func TestRevisionChainHighestToLowest(t *testing.T) {
	hashes := map[string]string{
		"jaspr/main/aaa111_01": "h1",
		"jaspr/main/aaa111_02": "h2",
	}
	chain := revisionChain(hashes, "jaspr", "main", "aaa111", "jaspr/main/aaa111", 3)
	assert.Equal(t, []string{
		"jaspr/main/aaa111",
		"jaspr/main/aaa111_03",
		"jaspr/main/aaa111_02",
		"jaspr/main/aaa111_01",
	}, chain)
}

func intPtr(n int) *int { return &n }
