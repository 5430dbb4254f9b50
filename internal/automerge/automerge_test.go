package automerge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/forge/mockclient"
	"github.com/jaspr/jaspr/gitshell/mockgit"
	"github.com/jaspr/jaspr/internal/automerge"
	"github.com/jaspr/jaspr/mock"
)

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "merged", automerge.OutcomeMerged.String())
	assert.Equal(t, "behind target", automerge.OutcomeBehindTarget.String())
	assert.Equal(t, "stack empty", automerge.OutcomeStackEmpty.String())
}

func TestRunExitsWhenBehindTarget(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Repo.GitHubRemote = "origin"
	cfg.Repo.GitHubBranch = "main"

	gitcmd := mockgit.New(t, true)
	gitcmd.ExpectGit("fetch origin true")
	gitcmd.ExpectGit("log-range local origin/main", mock.StringOutputter("commit aaahash\n\tsubject\n\n\tcommit-id:aaa111\n\n"))

	fc := mockclient.New(mock.New(t, true))

	result, err := automerge.Run(context.Background(), gitcmd, fc, cfg, automerge.Input{
		LocalRef:        "local",
		PollingInterval: time.Millisecond,
		MaxAttempts:     1,
	}, func(time.Duration) {}, nil)

	require.NoError(t, err)
	assert.Equal(t, automerge.OutcomeBehindTarget, result.Outcome)
	gitcmd.ExpectationsMet()
}

func TestRunExitsWhenStackEmpty(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Repo.GitHubRemote = "origin"
	cfg.Repo.GitHubBranch = "main"

	gitcmd := mockgit.New(t, true)
	gitcmd.ExpectGit("fetch origin true")
	gitcmd.ExpectGit("log-range local origin/main", mock.StringOutputter(""))
	gitcmd.ExpectGit("log-range origin/main local", mock.StringOutputter(""))

	fc := mockclient.New(mock.New(t, true))

	result, err := automerge.Run(context.Background(), gitcmd, fc, cfg, automerge.Input{
		LocalRef:        "local",
		PollingInterval: time.Millisecond,
		MaxAttempts:     1,
	}, func(time.Duration) {}, nil)

	require.NoError(t, err)
	assert.Equal(t, automerge.OutcomeStackEmpty, result.Outcome)
	gitcmd.ExpectationsMet()
}
