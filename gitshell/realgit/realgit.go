// Package realgit is the production gitshell.Client: go-git for read-only
// plumbing (fetch, remote branch listing) and a shelled-out
// `git` binary for everything go-git does not support well — cherry-pick,
// commit amending, worktrees, lease-protected pushes.
package realgit

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/rs/zerolog/log"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/gitshell"
	"github.com/jaspr/jaspr/internal/message"
)

// logFieldSep/logEntrySep are ASCII unit/record separators used in the
// --pretty=format string so commit bodies containing arbitrary text never
// get mistaken for field boundaries.
const (
	logFieldSep = "\x1f"
	logEntrySep = "\x1e"
	logFormat   = "%H" + logFieldSep + "%an" + logFieldSep + "%ae" + logFieldSep +
		"%cn" + logFieldSep + "%ce" + logFieldSep + "%aI" + logFieldSep + "%cI" + logFieldSep +
		"%B" + logEntrySep
)

// Client is the realgit implementation of gitshell.Client.
type Client struct {
	config  *config.Config
	rootdir string
	stderr  *os.File
}

// New returns a new realgit client rooted at the nearest git directory
// containing the current working directory.
func New(cfg *config.Config) (*Client, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := gitshell.FindNearestGitDir(cwd)
	if err != nil {
		return nil, fmt.Errorf("%s is not a git repository or worktree", cwd)
	}
	return &Client{config: cfg, rootdir: root, stderr: os.Stderr}, nil
}

// NewAt returns a realgit client rooted at an explicit directory — used by
// the auto-merge loop's scratch clone.
func NewAt(cfg *config.Config, rootdir string) *Client {
	return &Client{config: cfg, rootdir: rootdir, stderr: os.Stderr}
}

func (c *Client) RootDir() string { return c.rootdir }

func (c *Client) repo() (*gogit.Repository, error) {
	return gogit.PlainOpenWithOptions(c.rootdir, &gogit.PlainOpenOptions{DetectDotGit: true})
}

// run shells out to `git <argStr>` inside the repo root.
func (c *Client) run(argStr string, output *string) error {
	if c.config != nil && c.config.User.LogGitCommands {
		fmt.Printf("> git %s\n", argStr)
	}
	log.Debug().Msg("git " + argStr)

	args := append([]string{
		"-c", "core.editor=true",
		"-c", "commit.verbose=false",
	}, strings.Fields(argStr)...)

	cmd := exec.Command("git", args...)
	cmd.Dir = c.rootdir
	cmd.Env = os.Environ()

	out, err := cmd.CombinedOutput()
	if output != nil {
		*output = strings.TrimSpace(string(out))
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "git error: %s\n", string(out))
		return fmt.Errorf("git %s: %w", argStr, err)
	}
	return nil
}

func (c *Client) Fetch(remote string, prune bool) error {
	r, err := c.repo()
	if err != nil {
		return err
	}
	err = r.Fetch(&gogit.FetchOptions{RemoteName: remote, Prune: prune})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("fetch %s: %w", remote, err)
	}
	return nil
}

func parseLogOutput(raw string) []gitshell.Commit {
	var commits []gitshell.Commit
	for _, entry := range strings.Split(raw, logEntrySep) {
		entry = strings.Trim(entry, "\n")
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, logFieldSep)
		if len(fields) != 8 {
			continue
		}
		authorDate, _ := time.Parse(time.RFC3339, fields[5])
		commitDate, _ := time.Parse(time.RFC3339, fields[6])
		msg := strings.TrimPrefix(fields[7], "\n")
		commits = append(commits, gitshell.Commit{
			Hash:         fields[0],
			ShortSubject: message.Subject(msg),
			FullMessage:  msg,
			ID:           message.Footers(msg)["commit-id"],
			Author:       gitshell.Ident{Name: fields[1], Email: fields[2]},
			Committer:    gitshell.Ident{Name: fields[3], Email: fields[4]},
			AuthorDate:   authorDate,
			CommitDate:   commitDate,
		})
	}
	return commits
}

func (c *Client) Log(ref string, n int) ([]gitshell.Commit, error) {
	args := fmt.Sprintf("log --no-color -n %d --pretty=format:%s %s", n, logFormat, ref)
	var out string
	if err := c.run(args, &out); err != nil {
		return nil, err
	}
	return parseLogOutput(out), nil
}

func (c *Client) LogAll(ref string) ([]gitshell.Commit, error) {
	args := fmt.Sprintf("log --no-color --pretty=format:%s %s", logFormat, ref)
	var out string
	if err := c.run(args, &out); err != nil {
		return nil, err
	}
	return parseLogOutput(out), nil
}

// LogRange returns commits in since..until, base(oldest)-to-head(newest)
// order, failing loudly if either ref does not exist.
func (c *Client) LogRange(since, until string) ([]gitshell.Commit, error) {
	if exists, err := c.RefExists(since); err != nil || !exists {
		return nil, fmt.Errorf("logRange: ref %q does not exist", since)
	}
	if exists, err := c.RefExists(until); err != nil || !exists {
		return nil, fmt.Errorf("logRange: ref %q does not exist", until)
	}

	args := fmt.Sprintf("log --no-color --pretty=format:%s %s..%s", logFormat, since, until)
	var out string
	if err := c.run(args, &out); err != nil {
		return nil, err
	}
	commits := parseLogOutput(out)
	// `git log since..until` emits newest-first; reverse to base(oldest)->head(newest).
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}

func (c *Client) GetParents(commit string) ([]string, error) {
	var out string
	if err := c.run(fmt.Sprintf("rev-list --parents -n 1 %s", commit), &out); err != nil {
		return nil, err
	}
	fields := strings.Fields(out)
	if len(fields) <= 1 {
		return nil, nil
	}
	return fields[1:], nil
}

func (c *Client) Reflog(ref string) ([]string, error) {
	var out string
	if err := c.run(fmt.Sprintf("reflog show --no-color %s", ref), &out); err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func (c *Client) IsWorkingDirectoryClean() (bool, error) {
	var out string
	if err := c.run("status --porcelain --untracked-files=no", &out); err != nil {
		return false, err
	}
	return out == "", nil
}

func (c *Client) IsHeadDetached() (bool, error) {
	var out string
	err := c.run("symbolic-ref -q HEAD", &out)
	return err != nil, nil
}

func (c *Client) GetCurrentBranchName() (string, error) {
	var out string
	if err := c.run("rev-parse --abbrev-ref HEAD", &out); err != nil {
		return "", err
	}
	return out, nil
}

func (c *Client) GetLocalCommitStack(remote, localRef, targetRef string) ([]gitshell.Commit, error) {
	return c.LogRange(fmt.Sprintf("%s/%s", remote, targetRef), localRef)
}

func (c *Client) RefExists(ref string) (bool, error) {
	err := c.run(fmt.Sprintf("rev-parse --verify --quiet %s", ref), nil)
	return err == nil, nil
}

func (c *Client) GetBranchNames() ([]string, error) {
	var out string
	if err := c.run("branch --no-color --format=%(refname:short)", &out); err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func (c *Client) GetRemoteBranchesByID(remote string) (map[string]string, error) {
	r, err := c.repo()
	if err != nil {
		return nil, err
	}
	rem, err := r.Remote(remote)
	if err != nil {
		return nil, fmt.Errorf("finding remote %s: %w", remote, err)
	}
	refs, err := rem.List(&gogit.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing remote branches: %w", err)
	}
	out := map[string]string{}
	for _, ref := range refs {
		if ref.Name().IsBranch() && ref.Name().Short() != "HEAD" {
			out[ref.Name().Short()] = ref.Hash().String()
		}
	}
	return out, nil
}

func (c *Client) Reset(ref string) error {
	return c.run(fmt.Sprintf("reset --hard %s", ref), nil)
}

func (c *Client) Branch(name, start string, force bool) error {
	args := "branch"
	if force {
		args += " -f"
	}
	args += " " + name
	if start != "" {
		args += " " + start
	}
	return c.run(args, nil)
}

func (c *Client) Checkout(ref string) error {
	return c.run(fmt.Sprintf("checkout %s", ref), nil)
}

func (c *Client) DeleteBranches(names []string, force bool) error {
	if len(names) == 0 {
		return nil
	}
	flag := "-d"
	if force {
		flag = "-D"
	}
	return c.run(fmt.Sprintf("branch %s %s", flag, strings.Join(names, " ")), nil)
}

func (c *Client) Add(pattern string) error {
	return c.run(fmt.Sprintf("add %s", pattern), nil)
}

func (c *Client) Commit(msg string, footers map[string]string, author, committer *gitshell.Ident, amend bool) (gitshell.Commit, error) {
	full := message.AddFooters(msg, orderedFooters(footers))

	args := []string{"-c", "core.editor=true", "commit", "--allow-empty-message", "-m", full}
	if amend {
		args = append(args, "--amend")
	}
	if author != nil {
		args = append(args, fmt.Sprintf("--author=%s <%s>", author.Name, author.Email))
	}
	cmd := exec.Command("git", args...)
	cmd.Dir = c.rootdir
	cmd.Env = commitEnv(committer)
	if out, err := cmd.CombinedOutput(); err != nil {
		return gitshell.Commit{}, fmt.Errorf("commit failed: %w: %s", err, out)
	}

	var hash string
	if err := c.run("rev-parse HEAD", &hash); err != nil {
		return gitshell.Commit{}, err
	}
	commits, err := c.Log(hash, 1)
	if err != nil || len(commits) == 0 {
		return gitshell.Commit{}, fmt.Errorf("reading back new commit: %w", err)
	}
	return commits[0], nil
}

func orderedFooters(m map[string]string) []message.Footer {
	out := make([]message.Footer, 0, len(m))
	for k, v := range m {
		out = append(out, message.Footer{Key: k, Value: v})
	}
	return out
}

func commitEnv(committer *gitshell.Ident) []string {
	env := os.Environ()
	if committer != nil {
		env = append(env,
			"GIT_COMMITTER_NAME="+committer.Name,
			"GIT_COMMITTER_EMAIL="+committer.Email,
		)
	}
	return env
}

func (c *Client) CherryPick(commit string, author, committer *gitshell.Ident) error {
	var out string
	env := commitEnv(committer)
	cmd := exec.Command("git", "cherry-pick", commit)
	cmd.Dir = c.rootdir
	cmd.Env = env
	raw, err := cmd.CombinedOutput()
	out = string(raw)
	if err != nil {
		if strings.Contains(out, "CONFLICT") || strings.Contains(out, "Merge conflict") {
			return fmt.Errorf("cherry-pick of %s produced a conflict and cannot be applied cleanly", commit)
		}
		return fmt.Errorf("cherry-pick %s: %w: %s", commit, err, out)
	}
	return nil
}

func (c *Client) SetCommitID(id string, author, committer *gitshell.Ident) error {
	var msg string
	if err := c.run("log -1 --pretty=format:%B HEAD", &msg); err != nil {
		return err
	}
	newMsg := message.AddFooters(msg, []message.Footer{{Key: "commit-id", Value: id}})
	_, err := c.Commit(newMsg, nil, author, committer, true)
	return err
}

func (c *Client) Push(refspecs []gitshell.RefSpec, remote string) error {
	return c.pushRefspecs(refspecs, remote, nil)
}

func (c *Client) PushWithLease(refspecs []gitshell.RefSpec, remote string, expected map[string]*string) error {
	return c.pushRefspecs(refspecs, remote, expected)
}

func (c *Client) pushRefspecs(refspecs []gitshell.RefSpec, remote string, expected map[string]*string) error {
	args := []string{"push"}
	var refStrs []string
	for _, rs := range refspecs {
		local := rs.Local
		if rs.Force && !strings.HasPrefix(local, "+") && local != "" {
			local = "+" + local
		}
		refStrs = append(refStrs, fmt.Sprintf("%s:%s", local, rs.Remote))

		if exp, ok := expected[rs.Remote]; ok {
			leaseArg := "--force-with-lease=" + rs.Remote + ":"
			if exp != nil {
				leaseArg += *exp
			}
			args = append(args, leaseArg)
		}
	}
	args = append(args, remote)
	args = append(args, refStrs...)

	var out string
	err := c.run(strings.Join(args, " "), &out)
	if err != nil {
		for ref := range expected {
			return &gitshell.ErrPushFailed{Ref: ref, Err: err}
		}
		return err
	}
	return nil
}

func (c *Client) GetRemoteURIOrNull(remote string) (string, error) {
	var out string
	if err := c.run(fmt.Sprintf("remote get-url %s", remote), &out); err != nil {
		return "", nil
	}
	return out, nil
}

func (c *Client) GetUpstreamBranch(remote string) (string, error) {
	detached, err := c.IsHeadDetached()
	if err != nil {
		return "", err
	}
	if detached {
		return "", fmt.Errorf("cannot get upstream branch: HEAD is detached")
	}
	var out string
	if err := c.run("rev-parse --abbrev-ref --symbolic-full-name @{u}", &out); err != nil {
		return "", err
	}
	return out, nil
}

func (c *Client) SetUpstreamBranch(remote, name string) error {
	detached, err := c.IsHeadDetached()
	if err != nil {
		return err
	}
	if detached {
		return fmt.Errorf("cannot set upstream branch: HEAD is detached")
	}
	return c.run(fmt.Sprintf("branch --set-upstream-to=%s/%s", remote, name), nil)
}

func (c *Client) GetUpstreamBranchName(localBranch, remote string) (string, error) {
	var out string
	if err := c.run(fmt.Sprintf("for-each-ref --format=%%(upstream:short) refs/heads/%s", localBranch), &out); err != nil {
		return "", err
	}
	return strings.TrimPrefix(out, remote+"/"), nil
}

func (c *Client) SetUpstreamBranchForLocalBranch(localBranch, remote string, ref *string) error {
	if ref == nil {
		return c.run(fmt.Sprintf("branch --unset-upstream %s", localBranch), nil)
	}
	return c.run(fmt.Sprintf("branch --set-upstream-to=%s/%s %s", remote, *ref, localBranch), nil)
}

func (c *Client) GetConfigValue(key string) (string, error) {
	var out string
	if err := c.run(fmt.Sprintf("config --get %s", key), &out); err != nil {
		return "", err
	}
	return out, nil
}

func (c *Client) SetConfigValue(key, value string) error {
	return c.run(fmt.Sprintf("config %s %s", key, strconv.Quote(value)), nil)
}

func (c *Client) GetCommits(refs []string) ([]gitshell.Commit, error) {
	var commits []gitshell.Commit
	for _, ref := range refs {
		cs, err := c.Log(ref, 1)
		if err != nil {
			return nil, err
		}
		commits = append(commits, cs...)
	}
	return commits, nil
}

func (c *Client) GetShortMessages(refs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, ref := range refs {
		var subj string
		if err := c.run(fmt.Sprintf("log -1 --pretty=format:%%s %s", ref), &subj); err != nil {
			return nil, err
		}
		out[ref] = subj
	}
	return out, nil
}

// worktreeAdd creates a linked worktree at dir checked out to ref. Nothing
// in the module calls it.
func (c *Client) worktreeAdd(dir, ref string) error {
	return c.run(fmt.Sprintf("worktree add %s %s", filepath.Clean(dir), ref), nil)
}

func (c *Client) worktreeRemove(dir string) {
	_ = c.run(fmt.Sprintf("worktree remove --force %s", filepath.Clean(dir)), nil)
	_ = c.run("worktree prune", nil)
}

var _ gitshell.Client = (*Client)(nil)
