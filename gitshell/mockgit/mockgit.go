// Package mockgit is a gitshell.Client test double built on the shared
// mock.Expectations harness: each method renders a deterministic command
// string and checks it against the registered expectation queue. Grounded
// on the teacher's git/mockgit/mockgit.go, generalized from the teacher's
// narrow per-commit-branch surface to the full gitshell.Client contract.
package mockgit

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jaspr/jaspr/gitshell"
	"github.com/jaspr/jaspr/mock"
)

type Mock struct {
	Root string
	*mock.Expectations
}

func New(t *testing.T, synchronized bool) *Mock {
	return &Mock{Root: "/repo", Expectations: mock.New(t, synchronized)}
}

var _ gitshell.Client = (*Mock)(nil)

func (m *Mock) cmdString(name string, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		parts = append(parts, fmt.Sprintf("%v", a))
	}
	return strings.Join(parts, " ")
}

func (m *Mock) Fetch(remote string, prune bool) error {
	m.GitCmd(m.cmdString("fetch", remote, prune), new(string))
	return nil
}

func (m *Mock) Log(ref string, n int) ([]gitshell.Commit, error) {
	var out string
	m.GitCmd(m.cmdString("log", ref, n), &out)
	return decodeCommits(out), nil
}

func (m *Mock) LogAll(ref string) ([]gitshell.Commit, error) {
	var out string
	m.GitCmd(m.cmdString("log-all", ref), &out)
	return decodeCommits(out), nil
}

func (m *Mock) LogRange(since, until string) ([]gitshell.Commit, error) {
	var out string
	m.GitCmd(m.cmdString("log-range", since, until), &out)
	return decodeCommits(out), nil
}

func (m *Mock) GetParents(commit string) ([]string, error) {
	var out string
	m.GitCmd(m.cmdString("parents", commit), &out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, ","), nil
}

func (m *Mock) Reflog(ref string) ([]string, error) {
	var out string
	m.GitCmd(m.cmdString("reflog", ref), &out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func (m *Mock) IsWorkingDirectoryClean() (bool, error) {
	var out string
	m.GitCmd("status", &out)
	return out == "" || out == "clean", nil
}

func (m *Mock) IsHeadDetached() (bool, error) {
	var out string
	m.GitCmd("head-detached", &out)
	return out == "true", nil
}

func (m *Mock) GetCurrentBranchName() (string, error) {
	var out string
	m.GitCmd("current-branch", &out)
	return out, nil
}

func (m *Mock) GetLocalCommitStack(remote, localRef, targetRef string) ([]gitshell.Commit, error) {
	return m.LogRange(fmt.Sprintf("%s/%s", remote, targetRef), localRef)
}

func (m *Mock) RefExists(ref string) (bool, error) {
	var out string
	m.GitCmd(m.cmdString("ref-exists", ref), &out)
	return out == "true", nil
}

func (m *Mock) GetBranchNames() ([]string, error) {
	var out string
	m.GitCmd("branch-names", &out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, ","), nil
}

func (m *Mock) GetRemoteBranchesByID(remote string) (map[string]string, error) {
	var out string
	m.GitCmd(m.cmdString("remote-branches-by-id", remote), &out)
	result := map[string]string{}
	if out == "" {
		return result, nil
	}
	for _, pair := range strings.Split(out, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			result[kv[0]] = kv[1]
		}
	}
	return result, nil
}

func (m *Mock) Reset(ref string) error {
	m.GitCmd(m.cmdString("reset", ref), new(string))
	return nil
}

func (m *Mock) Branch(name, start string, force bool) error {
	m.GitCmd(m.cmdString("branch", name, start, force), new(string))
	return nil
}

func (m *Mock) Checkout(ref string) error {
	m.GitCmd(m.cmdString("checkout", ref), new(string))
	return nil
}

func (m *Mock) DeleteBranches(names []string, force bool) error {
	m.GitCmd(m.cmdString("delete-branches", strings.Join(names, ","), force), new(string))
	return nil
}

func (m *Mock) Add(pattern string) error {
	m.GitCmd(m.cmdString("add", pattern), new(string))
	return nil
}

func (m *Mock) Commit(message string, footers map[string]string, author, committer *gitshell.Ident, amend bool) (gitshell.Commit, error) {
	var out string
	m.GitCmd(m.cmdString("commit", message, amend), &out)
	commits := decodeCommits(out)
	if len(commits) == 0 {
		return gitshell.Commit{}, nil
	}
	return commits[0], nil
}

func (m *Mock) CherryPick(commit string, author, committer *gitshell.Ident) error {
	m.GitCmd(m.cmdString("cherry-pick", commit), new(string))
	return nil
}

func (m *Mock) SetCommitID(id string, author, committer *gitshell.Ident) error {
	m.GitCmd(m.cmdString("set-commit-id", id), new(string))
	return nil
}

func (m *Mock) Push(refspecs []gitshell.RefSpec, remote string) error {
	m.GitCmd(m.cmdString("push", refspecString(refspecs), remote), new(string))
	return nil
}

func (m *Mock) PushWithLease(refspecs []gitshell.RefSpec, remote string, expected map[string]*string) error {
	m.GitCmd(m.cmdString("push-with-lease", refspecString(refspecs), remote), new(string))
	return nil
}

func refspecString(refspecs []gitshell.RefSpec) string {
	parts := make([]string, len(refspecs))
	for i, rs := range refspecs {
		local := rs.Local
		if rs.Force {
			local = "+" + local
		}
		parts[i] = local + ":" + rs.Remote
	}
	return strings.Join(parts, ",")
}

func (m *Mock) GetRemoteURIOrNull(remote string) (string, error) {
	var out string
	m.GitCmd(m.cmdString("remote-uri", remote), &out)
	return out, nil
}

func (m *Mock) GetUpstreamBranch(remote string) (string, error) {
	var out string
	m.GitCmd(m.cmdString("upstream-branch", remote), &out)
	return out, nil
}

func (m *Mock) SetUpstreamBranch(remote, name string) error {
	m.GitCmd(m.cmdString("set-upstream-branch", remote, name), new(string))
	return nil
}

func (m *Mock) GetUpstreamBranchName(localBranch, remote string) (string, error) {
	var out string
	m.GitCmd(m.cmdString("upstream-branch-name", localBranch, remote), &out)
	return out, nil
}

func (m *Mock) SetUpstreamBranchForLocalBranch(localBranch, remote string, ref *string) error {
	refStr := "nil"
	if ref != nil {
		refStr = *ref
	}
	m.GitCmd(m.cmdString("set-upstream-for-local", localBranch, remote, refStr), new(string))
	return nil
}

func (m *Mock) GetConfigValue(key string) (string, error) {
	var out string
	m.GitCmd(m.cmdString("config-get", key), &out)
	return out, nil
}

func (m *Mock) SetConfigValue(key, value string) error {
	m.GitCmd(m.cmdString("config-set", key, value), new(string))
	return nil
}

func (m *Mock) GetCommits(refs []string) ([]gitshell.Commit, error) {
	var out string
	m.GitCmd(m.cmdString("commits", strings.Join(refs, ",")), &out)
	return decodeCommits(out), nil
}

func (m *Mock) GetShortMessages(refs []string) (map[string]string, error) {
	var out string
	m.GitCmd(m.cmdString("short-messages", strings.Join(refs, ",")), &out)
	result := map[string]string{}
	if out == "" {
		return result, nil
	}
	for _, pair := range strings.Split(out, "\x1f") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			result[kv[0]] = kv[1]
		}
	}
	return result, nil
}

func (m *Mock) RootDir() string { return m.Root }

// decodeCommits parses the `commit <hash>\n...\ncommit-id:<id>` format
// produced by mock.CommitOutputter, the only format this mock's Log-family
// expectations ever need to understand.
func decodeCommits(raw string) []gitshell.Commit {
	if raw == "" {
		return nil
	}
	var commits []gitshell.Commit
	var cur gitshell.Commit
	have := false
	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "commit "):
			if have {
				commits = append(commits, cur)
			}
			cur = gitshell.Commit{Hash: strings.TrimPrefix(line, "commit ")}
			have = true
		case strings.HasPrefix(strings.TrimSpace(line), "commit-id:"):
			cur.ID = strings.TrimPrefix(strings.TrimSpace(line), "commit-id:")
		case strings.HasPrefix(line, "\t") && cur.ShortSubject == "" && have:
			cur.ShortSubject = strings.TrimSpace(line)
		}
	}
	if have {
		commits = append(commits, cur)
	}
	return commits
}
