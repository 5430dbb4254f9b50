package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/forge/mockclient"
	"github.com/jaspr/jaspr/gitshell/mockgit"
	"github.com/jaspr/jaspr/internal/stack"
	"github.com/jaspr/jaspr/mock"
)

func boolPtr(b bool) *bool { return &b }

func TestMergeableRequiresEverything(t *testing.T) {
	assert.False(t, Mergeable(false, &stack.PullRequest{ChecksPass: boolPtr(true), Approved: boolPtr(true)}))
	assert.False(t, Mergeable(true, nil))
	assert.False(t, Mergeable(true, &stack.PullRequest{IsDraft: true, ChecksPass: boolPtr(true), Approved: boolPtr(true)}))
	assert.False(t, Mergeable(true, &stack.PullRequest{ChecksPass: boolPtr(false), Approved: boolPtr(true)}))
	assert.False(t, Mergeable(true, &stack.PullRequest{ChecksPass: boolPtr(true), Approved: nil}))
	assert.True(t, Mergeable(true, &stack.PullRequest{ChecksPass: boolPtr(true), Approved: boolPtr(true)}))
}

func TestRunRefusesWhenBehindTarget(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Repo.GitHubRemote = "origin"
	cfg.Repo.GitHubBranch = "main"

	gitcmd := mockgit.New(t, true)
	gitcmd.ExpectGit("fetch origin true")
	gitcmd.ExpectGit("log-range local origin/main", mock.StringOutputter("commit aaahash\n\tsubject\n\n\tcommit-id:aaa111\n\n"))

	fc := mockclient.New(mock.New(t, true))

	result, err := Run(context.Background(), gitcmd, fc, cfg, stack.Stack{{ID: "aaa111", Hash: "headhash"}}, map[string]string{}, map[string]*stack.PullRequest{}, "local", nil)

	require.ErrorIs(t, err, stack.ErrBehindTarget)
	assert.Nil(t, result)
	gitcmd.ExpectationsMet()
}

func TestRevisionSiblingsFindsAllRevisions(t *testing.T) {
	hashes := map[string]string{
		"jaspr/main/aaa111":    "head",
		"jaspr/main/aaa111_01": "r1",
		"jaspr/main/aaa111_02": "r2",
		"jaspr/main/bbb222":    "other",
	}
	out := revisionSiblings(hashes, "jaspr", "main", "aaa111")
	assert.ElementsMatch(t, []string{"jaspr/main/aaa111_01", "jaspr/main/aaa111_02"}, out)
}
