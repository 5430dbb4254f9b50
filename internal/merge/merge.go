// Package merge implements the merge engine (spec §4.7): once a prefix of
// the stack is fully mergeable it pushes the stack head directly onto the
// target branch, rebases any PRs still based on the merged branches, and
// cleans up the per-commit branches that are no longer needed. Grounded on
// spr.go's MergePRSet/gitapi.go's DeletePullRequest (branch deletion with
// retry), re-targeted at the encode/decode scheme in internal/refs instead
// of the teacher's PR-set indices.
package merge

import (
	"context"
	"time"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/forge"
	"github.com/jaspr/jaspr/gitshell"
	"github.com/jaspr/jaspr/internal/concurrent"
	"github.com/jaspr/jaspr/internal/refs"
	"github.com/jaspr/jaspr/internal/stack"
)

// deleteRetryDelay/deleteRetryAttempts back the branch-delete retry after a
// merge (spec §4.7 step 7): the forge needs a moment to observe the merge
// before it will let the branch go.
const (
	postMergeSettleDelay = 2 * time.Second
	deleteRetryAttempts  = 3
	deleteRetryDelay     = 500 * time.Millisecond
)

// Sleeper abstracts time.Sleep so tests run instantly.
type Sleeper func(time.Duration)

// Options mirrors the reconciler's, sliced the same way.
type Options struct {
	Count *int
}

// Result reports what got merged and deleted.
type Result struct {
	MergedStack stack.Stack
	Target      string
}

// Mergeable reports whether a commit's row is eligible to be merged: pushed,
// has a PR, checks pass, not a draft, and approved (spec §4.7 step 2).
func Mergeable(pushedOK bool, pr *stack.PullRequest) bool {
	if !pushedOK || pr == nil {
		return false
	}
	if pr.IsDraft {
		return false
	}
	if pr.ChecksPass == nil || !*pr.ChecksPass {
		return false
	}
	if pr.Approved == nil || !*pr.Approved {
		return false
	}
	return true
}

// Run executes the merge engine. remoteHashes/prsByCommitID must already be
// resolved (the caller, internal/status's Compute input, already has them).
// localRef is the branch the stack was read from, used for the
// behind-target precondition (spec §4.7 step 1).
func Run(ctx context.Context, gitcmd gitshell.Client, fc forge.Client, cfg *config.Config, st stack.Stack, remoteHashes map[string]string, prsByCommitID map[string]*stack.PullRequest, localRef string, sleep Sleeper) (*Result, error) {
	if sleep == nil {
		sleep = time.Sleep
	}

	remote := cfg.Repo.GitHubRemote
	target := cfg.Repo.GitHubBranch
	prefix := cfg.Repo.BranchNamePrefix

	if err := gitcmd.Fetch(remote, true); err != nil {
		return nil, err
	}

	if len(st) == 0 {
		return nil, stack.ErrStackEmpty
	}

	behind, err := behindCount(gitcmd, remote, target, localRef)
	if err != nil {
		return nil, err
	}
	if behind > 0 {
		return nil, stack.ErrBehindTarget
	}

	for _, c := range st {
		branch := refs.EncodeBranch(prefix, target, c.ID, 0)
		pushedOK := remoteHashes[branch] == c.Hash
		pr := prsByCommitID[c.ID]
		if !Mergeable(pushedOK, pr) {
			return nil, stack.ErrNotMergeable
		}
	}

	head := st.Head()
	headBranch := refs.EncodeBranch(prefix, target, head.ID, 0)
	headPR := prsByCommitID[head.ID]
	if headPR.BaseRef != target {
		update := *headPR
		update.BaseRef = target
		if err := fc.UpdatePullRequest(ctx, &update); err != nil {
			return nil, err
		}
		headPR.BaseRef = target
	}

	if err := gitcmd.Push([]gitshell.RefSpec{{Local: head.Hash, Remote: target, Force: false}}, remote); err != nil {
		return nil, err
	}

	merged := map[string]bool{}
	for _, c := range st {
		merged[refs.EncodeBranch(prefix, target, c.ID, 0)] = true
	}
	var dependents []*stack.PullRequest
	for _, pr := range prsByCommitID {
		if merged[pr.BaseRef] {
			dependents = append(dependents, pr)
		}
	}
	if _, err := concurrent.SliceMap(dependents, func(pr *stack.PullRequest) (struct{}, error) {
		update := *pr
		update.BaseRef = target
		return struct{}{}, fc.UpdatePullRequest(ctx, &update)
	}); err != nil {
		return nil, err
	}

	if err := fc.AutoClosePRs(ctx); err != nil {
		return nil, err
	}

	sleep(postMergeSettleDelay)

	var toDelete []string
	for _, c := range st {
		toDelete = append(toDelete, refs.EncodeBranch(prefix, target, c.ID, 0))
		toDelete = append(toDelete, revisionSiblings(remoteHashes, prefix, target, c.ID)...)
	}

	var deleteSpecs []gitshell.RefSpec
	for _, b := range toDelete {
		deleteSpecs = append(deleteSpecs, gitshell.RefSpec{Local: "", Remote: b, Force: true})
	}

	var lastErr error
	for attempt := 0; attempt < deleteRetryAttempts; attempt++ {
		if attempt > 0 {
			sleep(deleteRetryDelay)
		}
		if lastErr = gitcmd.Push(deleteSpecs, remote); lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	return &Result{MergedStack: st, Target: target}, nil
}

func behindCount(gitcmd gitshell.Client, remote, target, localRef string) (int, error) {
	ahead, err := gitcmd.LogRange(localRef, remote+"/"+target)
	if err != nil {
		return 0, err
	}
	return len(ahead), nil
}

func revisionSiblings(remoteHashes map[string]string, prefix, target, commitID string) []string {
	var out []string
	for name := range remoteHashes {
		parsed, ok := refs.ParseBranch(name, prefix)
		if !ok || parsed.Target != target || parsed.CommitID != commitID || parsed.RevNum == 0 {
			continue
		}
		out = append(out, name)
	}
	return out
}
