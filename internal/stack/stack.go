// Package stack holds the data model shared by every other engine package:
// the Commit/RemoteRef/NamedStackRef/PullRequest/Stack types and the
// sentinel errors the CLI boundary maps to exit codes and messages.
// Grounded on bl/internal/state.go's LocalCommit/State types, generalized
// off the teacher's single per-commit-branch model to also cover
// revision-history and named-stack refs.
package stack

import (
	"fmt"

	"github.com/jaspr/jaspr/gitshell"
)

// Ident is a commit author or committer identity.
type Ident = gitshell.Ident

// Commit is the domain view of one local commit. The hash/subject/body/id
// fields mirror gitshell.Commit exactly (spec §3); stack wraps rather than
// redefines them so the reconciler never has to convert back and forth.
type Commit = gitshell.Commit

// RemoteRef is a resolved per-commit branch: either a live branch (RevNum
// == 0) or an immutable revision-history snapshot (RevNum > 0).
type RemoteRef struct {
	Name     string
	CommitID string
	Target   string
	RevNum   int
	Hash     string
}

// NamedStackRef is a resolved named-stack pointer.
type NamedStackRef struct {
	Name      string
	Target    string
	StackName string
	Hash      string
}

// PullRequest is the domain view of a forge review request (spec §3). Draft
// is tracked independently of the subject-based WIP detection so a manually
// un-drafted PR is not re-drafted by the next push.
type PullRequest struct {
	ForgeID    string
	CommitID   string
	Number     int
	HeadRef    string
	BaseRef    string
	Title      string
	Body       string
	ChecksPass *bool
	Approved   *bool
	IsDraft    bool
	Permalink  string
}

// HasForgeID reports whether this PR has actually been created on the
// forge (as opposed to being a planned, not-yet-created PR).
func (p *PullRequest) HasForgeID() bool { return p.ForgeID != "" }

// Stack is an ordered list of commits, base (oldest) first, head (newest,
// HEAD-most) last.
type Stack []Commit

// Head returns the newest commit, or the zero Commit if the stack is empty.
func (s Stack) Head() Commit {
	if len(s) == 0 {
		return Commit{}
	}
	return s[len(s)-1]
}

// Base returns the oldest commit, or the zero Commit if the stack is empty.
func (s Stack) Base() Commit {
	if len(s) == 0 {
		return Commit{}
	}
	return s[0]
}

// IDs returns the commit-ids of every commit in the stack, in stack order.
func (s Stack) IDs() []string {
	ids := make([]string, len(s))
	for i, c := range s {
		ids[i] = c.ID
	}
	return ids
}

// DuplicateIDs returns the set of commit-ids that appear on more than one
// commit in the stack.
func (s Stack) DuplicateIDs() []string {
	seen := map[string]int{}
	for _, c := range s {
		if c.ID == "" {
			continue
		}
		seen[c.ID]++
	}
	var dups []string
	for id, n := range seen {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	return dups
}

// Sentinel errors. Each corresponds to a §7 precondition or integrity error
// class; the CLI boundary formats these into human-readable messages.
var (
	ErrDirtyWorkingTree  = fmt.Errorf("working tree has uncommitted changes")
	ErrDetachedHead      = fmt.Errorf("HEAD is detached")
	ErrDuplicateCommitID = fmt.Errorf("duplicate commit-id within the stack")
	ErrStackEmpty        = fmt.Errorf("stack is empty")
	ErrNotMergeable      = fmt.Errorf("stack is not mergeable")
	ErrBehindTarget      = fmt.Errorf("local branch is behind its target")
	ErrCountOutOfRange   = fmt.Errorf("count is out of range for this stack")
	ErrUnknownStack      = fmt.Errorf("no such named stack")
	ErrNameCollision     = fmt.Errorf("name collision")
	ErrLeaseViolation    = fmt.Errorf("lease violation: remote ref changed concurrently")
	ErrRevisionOverflow  = fmt.Errorf("revision-history branch count exceeded 99")
)
