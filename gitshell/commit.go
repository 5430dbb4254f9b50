// Package gitshell is the GitClient contract consumed by the stack
// reconciliation engine (spec §6.1), plus the Commit value type the rest of
// the engine is built around.
package gitshell

import (
	"time"
)

// Ident is a commit author or committer identity.
type Ident struct {
	Name  string
	Email string
}

// Commit holds everything the engine needs to know about one git commit.
type Commit struct {
	// Hash is the current git commit hash. It changes every time the
	// commit is amended or cherry-picked.
	Hash string

	// ShortSubject is the first line of the commit message.
	ShortSubject string

	// FullMessage is the complete, unparsed commit message (subject, body
	// and footers).
	FullMessage string

	// ID is the short stable identifier carried in the message's
	// commit-id: footer. Empty until the reconciler assigns one.
	ID string

	Author     Ident
	Committer  Ident
	AuthorDate time.Time
	CommitDate time.Time
}

// RefSpec mirrors a single git push refspec. Force is encoded separately
// from the string so callers never have to string-match a "+" prefix.
type RefSpec struct {
	Local  string
	Remote string
	Force  bool
}

// Client is the GitClient contract the engine depends on (spec §6.1). Any
// implementation that satisfies it — the shelled-out realgit.Client or a
// test mock — is acceptable.
type Client interface {
	Fetch(remote string, prune bool) error
	Log(ref string, n int) ([]Commit, error)
	LogAll(ref string) ([]Commit, error)
	LogRange(since, until string) ([]Commit, error)
	GetParents(commit string) ([]string, error)
	Reflog(ref string) ([]string, error)

	IsWorkingDirectoryClean() (bool, error)
	IsHeadDetached() (bool, error)
	GetCurrentBranchName() (string, error)

	// GetLocalCommitStack returns logRange(<remote>/<targetRef>..<localRef>)
	// in base-to-head order.
	GetLocalCommitStack(remote, localRef, targetRef string) ([]Commit, error)

	RefExists(ref string) (bool, error)
	GetBranchNames() ([]string, error)
	GetRemoteBranchesByID(remote string) (map[string]string, error)

	Reset(ref string) error
	Branch(name, start string, force bool) error
	Checkout(ref string) error
	DeleteBranches(names []string, force bool) error

	Add(pattern string) error
	Commit(message string, footers map[string]string, author, committer *Ident, amend bool) (Commit, error)
	CherryPick(commit string, author, committer *Ident) error
	SetCommitID(id string, author, committer *Ident) error

	Push(refspecs []RefSpec, remote string) error
	// PushWithLease pushes refspecs, asserting that each ref named in
	// expected currently has the given value at the remote (nil means "must
	// not exist"). Used for immutable revision-history branch writes.
	PushWithLease(refspecs []RefSpec, remote string, expected map[string]*string) error

	GetRemoteURIOrNull(remote string) (string, error)
	GetUpstreamBranch(remote string) (string, error)
	SetUpstreamBranch(remote, name string) error
	GetUpstreamBranchName(localBranch, remote string) (string, error)
	SetUpstreamBranchForLocalBranch(localBranch, remote string, ref *string) error

	GetConfigValue(key string) (string, error)
	SetConfigValue(key, value string) error

	GetCommits(refs []string) ([]Commit, error)
	GetShortMessages(refs []string) (map[string]string, error)

	RootDir() string
}

// ErrPushFailed is returned by PushWithLease when the remote's observed
// value for a ref didn't match what was expected — the signal used to
// detect a lost race on an immutable revision-history write (spec §6.1,
// §9).
type ErrPushFailed struct {
	Ref string
	Err error
}

func (e *ErrPushFailed) Error() string {
	return "push failed for " + e.Ref + ": " + e.Err.Error()
}

func (e *ErrPushFailed) Unwrap() error { return e.Err }

// FindNearestGitDir walks upward from dir looking for a `.git` directory or
// gitdir-file (worktree pointer), per spec §6.1.
func FindNearestGitDir(dir string) (string, error) {
	return findNearestGitDir(dir)
}
