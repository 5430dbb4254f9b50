package status_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaspr/jaspr/internal/refs"
	"github.com/jaspr/jaspr/internal/stack"
	"github.com/jaspr/jaspr/internal/status"
)

func commit(id, subject, hash string) stack.Commit {
	return stack.Commit{ID: id, ShortSubject: subject, Hash: hash}
}

func boolPtr(b bool) *bool { return &b }

func TestComputeAllGreen(t *testing.T) {
	c1 := commit("aaa111", "first", "h1")
	c2 := commit("bbb222", "second", "h2")
	branch1 := refs.EncodeBranch("jaspr", "main", "aaa111", 0)
	branch2 := refs.EncodeBranch("jaspr", "main", "bbb222", 0)

	pr1 := &stack.PullRequest{ForgeID: "1", Number: 1, ChecksPass: boolPtr(true), Approved: boolPtr(true)}
	pr2 := &stack.PullRequest{ForgeID: "2", Number: 2, ChecksPass: boolPtr(true), Approved: boolPtr(true)}

	rows := status.Compute(status.Input{
		BranchPrefix:       "jaspr",
		Target:             "main",
		Stack:              stack.Stack{c1, c2},
		RemoteBranchHashes: map[string]string{branch1: "h1", branch2: "h2"},
		PRsByCommitID:      map[string]*stack.PullRequest{"aaa111": pr1, "bbb222": pr2},
	})

	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, status.GlyphPass, r.Flags.Pushed)
		assert.Equal(t, status.GlyphPass, r.Flags.PRExists)
		assert.Equal(t, status.GlyphPass, r.Flags.Checks)
		assert.Equal(t, status.GlyphPass, r.Flags.ReadyForReview)
		assert.Equal(t, status.GlyphPass, r.Flags.Approved)
		assert.Equal(t, status.GlyphPass, r.Flags.StackCheck)
	}
}

func TestComputeUnpushedCommitHasEmptyPushedFlag(t *testing.T) {
	c1 := commit("aaa111", "first", "h1")
	rows := status.Compute(status.Input{
		BranchPrefix:       "jaspr",
		Target:             "main",
		Stack:              stack.Stack{c1},
		RemoteBranchHashes: map[string]string{},
		PRsByCommitID:      map[string]*stack.PullRequest{},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, status.GlyphEmpty, rows[0].Flags.Pushed)
	assert.Equal(t, status.GlyphEmpty, rows[0].Flags.PRExists)
}

func TestComputeDivergedBranchIsWarn(t *testing.T) {
	c1 := commit("aaa111", "first", "h1")
	branch1 := refs.EncodeBranch("jaspr", "main", "aaa111", 0)
	rows := status.Compute(status.Input{
		BranchPrefix:       "jaspr",
		Target:             "main",
		Stack:              stack.Stack{c1},
		RemoteBranchHashes: map[string]string{branch1: "stale-hash"},
		PRsByCommitID:      map[string]*stack.PullRequest{},
	})
	assert.Equal(t, status.GlyphWarn, rows[0].Flags.Pushed)
}

func TestComputeDuplicateIDIsWarn(t *testing.T) {
	c1 := commit("dup", "first", "h1")
	c2 := commit("dup", "second", "h2")
	rows := status.Compute(status.Input{
		BranchPrefix:       "jaspr",
		Target:             "main",
		Stack:              stack.Stack{c1, c2},
		RemoteBranchHashes: map[string]string{},
		PRsByCommitID:      map[string]*stack.PullRequest{},
	})
	assert.Equal(t, status.GlyphWarn, rows[0].Flags.Pushed)
	assert.Equal(t, status.GlyphWarn, rows[1].Flags.Pushed)
}

func TestComputeStackCheckFailsWhenEarlierCommitNotGreen(t *testing.T) {
	c1 := commit("aaa111", "first", "h1")
	c2 := commit("bbb222", "second", "h2")
	branch2 := refs.EncodeBranch("jaspr", "main", "bbb222", 0)

	pr2 := &stack.PullRequest{ForgeID: "2", Number: 2, ChecksPass: boolPtr(true), Approved: boolPtr(true)}

	rows := status.Compute(status.Input{
		BranchPrefix:       "jaspr",
		Target:             "main",
		Stack:              stack.Stack{c1, c2},
		RemoteBranchHashes: map[string]string{branch2: "h2"},
		PRsByCommitID:      map[string]*stack.PullRequest{"bbb222": pr2},
	})

	assert.Equal(t, status.GlyphEmpty, rows[0].Flags.StackCheck)
	assert.Equal(t, status.GlyphEmpty, rows[1].Flags.StackCheck, "second commit's stack-check depends on first, which isn't pushed")
}

func TestComputeBehindTargetForcesStackCheckEmpty(t *testing.T) {
	c1 := commit("aaa111", "first", "h1")
	branch1 := refs.EncodeBranch("jaspr", "main", "aaa111", 0)
	pr1 := &stack.PullRequest{ForgeID: "1", Number: 1, ChecksPass: boolPtr(true), Approved: boolPtr(true)}

	rows := status.Compute(status.Input{
		BranchPrefix:       "jaspr",
		Target:             "main",
		Stack:              stack.Stack{c1},
		RemoteBranchHashes: map[string]string{branch1: "h1"},
		PRsByCommitID:      map[string]*stack.PullRequest{"aaa111": pr1},
		BehindCount:        2,
	})
	assert.Equal(t, status.GlyphEmpty, rows[0].Flags.StackCheck)
}

func TestComputeChecksFailing(t *testing.T) {
	c1 := commit("aaa111", "first", "h1")
	pr1 := &stack.PullRequest{ForgeID: "1", Number: 1, ChecksPass: boolPtr(false)}
	rows := status.Compute(status.Input{
		Stack:              stack.Stack{c1},
		RemoteBranchHashes: map[string]string{},
		PRsByCommitID:      map[string]*stack.PullRequest{"aaa111": pr1},
	})
	assert.Equal(t, status.GlyphFail, rows[0].Flags.Checks)
}

func TestComputeDraftHasEmptyReadyForReview(t *testing.T) {
	c1 := commit("aaa111", "first", "h1")
	pr1 := &stack.PullRequest{ForgeID: "1", Number: 1, IsDraft: true}
	rows := status.Compute(status.Input{
		Stack:              stack.Stack{c1},
		RemoteBranchHashes: map[string]string{},
		PRsByCommitID:      map[string]*stack.PullRequest{"aaa111": pr1},
	})
	assert.Equal(t, status.GlyphEmpty, rows[0].Flags.ReadyForReview)
}

func TestIsDraftSubject(t *testing.T) {
	assert.True(t, status.IsDraftSubject("WIP: still working"))
	assert.True(t, status.IsDraftSubject("draft: early pass"))
	assert.False(t, status.IsDraftSubject("fix the thing"))
}

func TestRenderIsHeadFirstAndIncludesKey(t *testing.T) {
	c1 := commit("aaa111", "first", "h1")
	c2 := commit("bbb222", "second", "h2")
	rows := status.Compute(status.Input{
		Stack:              stack.Stack{c1, c2},
		RemoteBranchHashes: map[string]string{},
		PRsByCommitID:      map[string]*stack.PullRequest{},
	})
	out := status.Render(rows, status.Input{Stack: stack.Stack{c1, c2}}, "", 0, 0)
	require.Contains(t, out, "Status Key")
	secondIdx := strings.Index(out, "second")
	firstIdx := strings.Index(out, "first")
	require.True(t, secondIdx < firstIdx, "head commit (second) should render before base commit (first)")
}

func TestRenderIncludesBehindWarning(t *testing.T) {
	out := status.Render(nil, status.Input{Target: "main", BehindCount: 3}, "", 0, 0)
	assert.Contains(t, out, "3 commit(s) behind main")
}

func TestRenderIncludesOwnerFooter(t *testing.T) {
	out := status.Render(nil, status.Input{}, "my-stack", 2, 1)
	assert.Contains(t, out, `stack "my-stack": 2 ahead, 1 behind`)
}
