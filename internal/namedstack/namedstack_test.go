package namedstack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/gitshell/mockgit"
	"github.com/jaspr/jaspr/internal/namedstack"
	"github.com/jaspr/jaspr/mock"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Repo.GitHubRemote = "origin"
	cfg.Repo.GitHubBranch = "main"
	cfg.Repo.NamedStackPrefix = "jaspr-named"
	return cfg
}

func TestListSortsByStackName(t *testing.T) {
	gitcmd := mockgit.New(t, true)
	gitcmd.ExpectGit("remote-branches-by-id origin", mock.StringOutputter(
		"jaspr-named/main/zeta=hash1,jaspr-named/main/alpha=hash2,jaspr-named/other/beta=hash3"))

	out, err := namedstack.List(gitcmd, testConfig(), "main")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "alpha", out[0].StackName)
	assert.Equal(t, "zeta", out[1].StackName)
	gitcmd.ExpectationsMet()
}

func TestCheckoutCreatesTrackingBranchWhenAbsent(t *testing.T) {
	gitcmd := mockgit.New(t, true)
	gitcmd.ExpectGit("remote-branches-by-id origin", mock.StringOutputter("jaspr-named/main/alpha=hash1"))
	gitcmd.ExpectGit("branch-names", mock.StringOutputter("main"))
	gitcmd.ExpectGit("branch alpha origin/jaspr-named/main/alpha false", new(string))
	gitcmd.ExpectGit("checkout alpha", new(string))
	gitcmd.ExpectGit("set-upstream-for-local alpha origin jaspr-named/main/alpha", new(string))

	err := namedstack.Checkout(gitcmd, testConfig(), "main", "alpha")
	require.NoError(t, err)
	gitcmd.ExpectationsMet()
}

func TestCheckoutUnknownStack(t *testing.T) {
	gitcmd := mockgit.New(t, true)
	gitcmd.ExpectGit("remote-branches-by-id origin", mock.StringOutputter(""))

	err := namedstack.Checkout(gitcmd, testConfig(), "main", "ghost")
	assert.Error(t, err)
	gitcmd.ExpectationsMet()
}

func TestRenamePushesCreateAndDeleteInOneCall(t *testing.T) {
	gitcmd := mockgit.New(t, true)
	gitcmd.ExpectGit("remote-branches-by-id origin", mock.StringOutputter("jaspr-named/main/old=hash1"))
	gitcmd.ExpectGit("push +hash1:jaspr-named/main/new,+:jaspr-named/main/old origin", new(string))
	gitcmd.ExpectGit("branch-names", mock.StringOutputter(""))

	err := namedstack.Rename(gitcmd, testConfig(), "main", "old", "new")
	require.NoError(t, err)
	gitcmd.ExpectationsMet()
}

func TestRenameCollisionWhenNewNameTaken(t *testing.T) {
	gitcmd := mockgit.New(t, true)
	gitcmd.ExpectGit("remote-branches-by-id origin", mock.StringOutputter(
		"jaspr-named/main/old=hash1,jaspr-named/main/new=hash2"))

	err := namedstack.Rename(gitcmd, testConfig(), "main", "old", "new")
	assert.Error(t, err)
	gitcmd.ExpectationsMet()
}

func TestDeleteForceDeletesRemoteRefViaPush(t *testing.T) {
	gitcmd := mockgit.New(t, true)
	gitcmd.ExpectGit("push +:jaspr-named/main/alpha origin", new(string))
	gitcmd.ExpectGit("branch-names", mock.StringOutputter(""))

	err := namedstack.Delete(gitcmd, testConfig(), "main", "alpha")
	require.NoError(t, err)
	gitcmd.ExpectationsMet()
}

func TestDeleteClearsUpstreamOfTrackingLocalBranch(t *testing.T) {
	gitcmd := mockgit.New(t, true)
	gitcmd.ExpectGit("push +:jaspr-named/main/alpha origin", new(string))
	gitcmd.ExpectGit("branch-names", mock.StringOutputter("alpha,other"))
	gitcmd.ExpectGit("upstream-branch-name alpha origin", mock.StringOutputter("jaspr-named/main/alpha"))
	gitcmd.ExpectGit("set-upstream-for-local alpha origin nil", new(string))
	gitcmd.ExpectGit("upstream-branch-name other origin", mock.StringOutputter("jaspr-named/main/someone-else"))

	err := namedstack.Delete(gitcmd, testConfig(), "main", "alpha")
	require.NoError(t, err)
	gitcmd.ExpectationsMet()
}
