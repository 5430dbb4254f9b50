// Package reconcile implements the push reconciler (spec §4.6): the engine
// operation that takes the local commit stack and makes the remote branch
// set, revision history, named-stack pointer and PRs agree with it in one
// pass. Grounded on spr.go's UpdatePullRequests/syncCommitStackToGitHub
// (fetch, align commits, create/update PRs) and bl/internal/state.go's
// commit-id stamping, generalized from the teacher's single always-linear
// per-commit-branch model to also maintain revision history and a
// named-stack pointer.
package reconcile

import (
	"context"
	mathrand "math/rand"
	"regexp"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/forge"
	"github.com/jaspr/jaspr/gitshell"
	"github.com/jaspr/jaspr/internal/concurrent"
	"github.com/jaspr/jaspr/internal/message"
	"github.com/jaspr/jaspr/internal/namegen"
	"github.com/jaspr/jaspr/internal/prbody"
	"github.com/jaspr/jaspr/internal/refs"
	"github.com/jaspr/jaspr/internal/stack"
)

// AbandonCheck is consulted when a push would drop commit-ids that were
// reachable via the stack's existing NamedStackRef (spec §4.6 step 13). It
// returns true to proceed with the push, false to abort it entirely.
type AbandonCheck func(ctx context.Context, dropped []*stack.PullRequest) bool

// Options are the per-invocation inputs to Push.
type Options struct {
	// StackName, if non-empty, overrides both the existing owner lookup and
	// fresh-name generation (spec §4.6 step 9).
	StackName string
	// Count slices the computed stack per spec §4.6 step 1: positive keeps
	// the first n (base-most), negative drops the top |n|, nil means "all";
	// zero is rejected with ErrCountOutOfRange.
	Count *int
}

// Result is what a successful Push produced.
type Result struct {
	Stack     stack.Stack
	StackName string
	PRs       []*stack.PullRequest
	// RevisionRefs maps commit-id to the ordered chain of head refs a
	// revision-history rewrite produced for it (live ref first, highest
	// revision to lowest), for internal/prbody's compare links.
	RevisionRefs map[string][]string
}

var dontPushDefaultRe = regexp.MustCompile(`(?i)^(dont-push|wip|draft)\b.*`)

// Push runs the full reconciliation algorithm against local_ref (the
// current branch).
func Push(ctx context.Context, gitcmd gitshell.Client, fc forge.Client, cfg *config.Config, opts Options, abandon AbandonCheck) (*Result, error) {
	clean, err := gitcmd.IsWorkingDirectoryClean()
	if err != nil {
		return nil, err
	}
	if !clean {
		return nil, stack.ErrDirtyWorkingTree
	}

	detached, err := gitcmd.IsHeadDetached()
	if err != nil {
		return nil, err
	}
	if detached {
		return nil, stack.ErrDetachedHead
	}

	remote := cfg.Repo.GitHubRemote
	target := cfg.Repo.GitHubBranch
	prefix := cfg.Repo.BranchNamePrefix
	namedPrefix := cfg.Repo.NamedStackPrefix

	if err := gitcmd.Fetch(remote, true); err != nil {
		return nil, err
	}

	localRef, err := gitcmd.GetCurrentBranchName()
	if err != nil {
		return nil, err
	}

	commits, err := gitcmd.GetLocalCommitStack(remote, localRef, target)
	if err != nil {
		return nil, err
	}
	commits, err = sliceByCount(commits, opts.Count)
	if err != nil {
		return nil, err
	}

	commits, err = assignMissingCommitIDs(gitcmd, remote, target, commits)
	if err != nil {
		return nil, err
	}

	commits = applyDontPushFilter(cfg, commits)
	if len(commits) == 0 {
		return &Result{RevisionRefs: map[string][]string{}}, nil
	}

	st := stack.Stack(commits)
	if dups := st.DuplicateIDs(); len(dups) > 0 {
		return nil, stack.ErrDuplicateCommitID
	}

	allPRs, err := fc.GetPullRequests(ctx)
	if err != nil {
		return nil, err
	}
	prsByCommitID := map[string]*stack.PullRequest{}
	for _, pr := range allPRs {
		parsed, ok := refs.ParseBranch(pr.HeadRef, prefix)
		if !ok || parsed.Target != target {
			continue // not managed against this target; leave it alone
		}
		prsByCommitID[parsed.CommitID] = pr
	}

	if err := reorderPrelude(ctx, fc, st, prsByCommitID, target, prefix); err != nil {
		return nil, err
	}

	remoteHashes, err := gitcmd.GetRemoteBranchesByID(remote)
	if err != nil {
		return nil, err
	}

	revisionRefs := map[string][]string{}
	var pushSpecs []gitshell.RefSpec
	leaseExpected := map[string]*string{}

	for _, c := range st {
		branch := refs.EncodeBranch(prefix, target, c.ID, 0)
		priorHash, existed := remoteHashes[branch]
		if existed && priorHash == c.Hash {
			continue // already up to date, nothing to push for this commit
		}

		pushSpecs = append(pushSpecs, gitshell.RefSpec{Local: c.Hash, Remote: branch, Force: true})

		if existed {
			nextRev := nextRevisionNumber(remoteHashes, prefix, target, c.ID)
			if nextRev > 99 {
				return nil, stack.ErrRevisionOverflow
			}
			revBranch := refs.EncodeBranch(prefix, target, c.ID, nextRev)
			pushSpecs = append(pushSpecs, gitshell.RefSpec{Local: priorHash, Remote: revBranch, Force: false})
			leaseExpected[revBranch] = nil // must not already exist

			revisionRefs[c.ID] = revisionChain(remoteHashes, prefix, target, c.ID, branch, nextRev)
		}
	}

	stackName, existingNamed, err := resolveStackName(gitcmd, remote, target, namedPrefix, opts.StackName, st.IDs(), st.Head().ShortSubject)
	if err != nil {
		return nil, err
	}
	namedBranch := refs.EncodeNamed(namedPrefix, target, stackName)

	if existingNamed {
		droppedIDs, err := droppedSinceLastPush(gitcmd, remote, target, namedBranch, st.IDs())
		if err != nil {
			return nil, err
		}
		if len(droppedIDs) > 0 {
			var droppedPRs []*stack.PullRequest
			for _, id := range droppedIDs {
				if pr, ok := prsByCommitID[id]; ok {
					droppedPRs = append(droppedPRs, pr)
				}
			}
			if len(droppedPRs) > 0 && abandon != nil && !abandon(ctx, droppedPRs) {
				return nil, nil
			}
		}
	}

	pushSpecs = append(pushSpecs, gitshell.RefSpec{Local: st.Head().Hash, Remote: namedBranch, Force: true})

	if len(leaseExpected) > 0 {
		if err := gitcmd.PushWithLease(pushSpecs, remote, leaseExpected); err != nil {
			return nil, err
		}
	} else if err := gitcmd.Push(pushSpecs, remote); err != nil {
		return nil, err
	}

	prs, err := reconcilePullRequests(ctx, fc, cfg, st, prsByCommitID, revisionRefs)
	if err != nil {
		return nil, err
	}

	return &Result{Stack: st, StackName: stackName, PRs: prs, RevisionRefs: revisionRefs}, nil
}

func sliceByCount(commits []gitshell.Commit, count *int) ([]gitshell.Commit, error) {
	if count == nil || *count == 0 {
		if count != nil && *count == 0 && len(commits) > 0 {
			return nil, stack.ErrCountOutOfRange
		}
		return commits, nil
	}
	n := *count
	if n > 0 {
		if n > len(commits) {
			return nil, stack.ErrCountOutOfRange
		}
		return commits[:n], nil
	}
	drop := -n
	if drop > len(commits) {
		return nil, stack.ErrCountOutOfRange
	}
	return commits[:len(commits)-drop], nil
}

// assignMissingCommitIDs stamps a fresh commit-id on every commit from the
// first one missing an id onward, cherry-picking the rest of the range back
// on top so later commits keep their content.
func assignMissingCommitIDs(gitcmd gitshell.Client, remote, target string, commits []gitshell.Commit) ([]gitshell.Commit, error) {
	missingIdx := -1
	for i, c := range commits {
		if c.ID == "" {
			missingIdx = i
			break
		}
	}
	if missingIdx == -1 {
		return commits, nil
	}

	var resetTo string
	if missingIdx == 0 {
		resetTo = remote + "/" + target
	} else {
		resetTo = commits[missingIdx-1].Hash
	}
	if err := gitcmd.Reset(resetTo); err != nil {
		return nil, err
	}

	for i := missingIdx; i < len(commits); i++ {
		c := commits[i]
		if err := gitcmd.CherryPick(c.Hash, &c.Author, &c.Committer); err != nil {
			return nil, err
		}
		if c.ID == "" {
			id, err := newCommitID()
			if err != nil {
				return nil, err
			}
			if err := gitcmd.SetCommitID(id, &c.Author, &c.Committer); err != nil {
				return nil, err
			}
		}
	}

	localRef, err := gitcmd.GetCurrentBranchName()
	if err != nil {
		return nil, err
	}
	return gitcmd.GetLocalCommitStack(remote, localRef, target)
}

// newCommitID returns the first 8 hex characters of a fresh random UUID —
// the same width as the teacher's commit-id footer, just sourced from
// google/uuid instead of hand-rolled bytes.
func newCommitID() (string, error) {
	return uuid.New().String()[:8], nil
}

// applyDontPushFilter drops the lowest-indexed commit whose subject matches
// the configured don't-push regex, and everything above it.
func applyDontPushFilter(cfg *config.Config, commits []gitshell.Commit) []gitshell.Commit {
	re := dontPushDefaultRe
	if cfg.Repo.DontPushRegex != "" {
		if compiled, err := regexp.Compile("(?i)" + cfg.Repo.DontPushRegex); err == nil {
			re = compiled
		}
	}
	for i, c := range commits {
		if re.MatchString(c.ShortSubject) {
			log.Debug().Str("from", commits[i].Hash).Str("to", commits[len(commits)-1].Hash).
				Msg("excluding don't-push range")
			return commits[:i]
		}
	}
	return commits
}

// reorderPrelude sets every PR whose current base_ref no longer matches its
// predecessor in the new stack ordering to target temporarily, so a force
// push can never produce a momentarily-empty base..head range (spec §4.6
// step 6).
func reorderPrelude(ctx context.Context, fc forge.Client, st stack.Stack, prsByCommitID map[string]*stack.PullRequest, target, prefix string) error {
	for i, c := range st {
		pr, ok := prsByCommitID[c.ID]
		if !ok {
			continue
		}
		desired := target
		if i > 0 {
			desired = refs.EncodeBranch(prefix, target, st[i-1].ID, 0)
		}
		if pr.BaseRef != desired && pr.BaseRef != target {
			update := *pr
			update.BaseRef = target
			if err := fc.UpdatePullRequest(ctx, &update); err != nil {
				return err
			}
			pr.BaseRef = target
		}
	}
	return nil
}

func nextRevisionNumber(remoteHashes map[string]string, prefix, target, commitID string) int {
	max := 0
	for name := range remoteHashes {
		parsed, ok := refs.ParseBranch(name, prefix)
		if !ok || parsed.Target != target || parsed.CommitID != commitID || parsed.RevNum == 0 {
			continue
		}
		if parsed.RevNum > max {
			max = parsed.RevNum
		}
	}
	return max + 1
}

// revisionChain returns the live ref followed by every existing revision
// branch for commitID, highest-to-lowest, including the one about to be
// created at nextRev.
func revisionChain(remoteHashes map[string]string, prefix, target, commitID, liveBranch string, nextRev int) []string {
	revs := []int{nextRev}
	for name := range remoteHashes {
		parsed, ok := refs.ParseBranch(name, prefix)
		if !ok || parsed.Target != target || parsed.CommitID != commitID || parsed.RevNum == 0 {
			continue
		}
		revs = append(revs, parsed.RevNum)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(revs)))

	chain := []string{liveBranch}
	seen := map[int]bool{}
	for _, r := range revs {
		if seen[r] {
			continue
		}
		seen[r] = true
		chain = append(chain, refs.EncodeBranch(prefix, target, commitID, r))
	}
	return chain
}

// resolveStackName determines the effective stack name: user-supplied,
// else the unique existing NamedStackRef owner of any id in ids, else a
// freshly generated one. It returns whether the resolved name already
// names an existing NamedStackRef.
func resolveStackName(gitcmd gitshell.Client, remote, target, namedPrefix, userSupplied string, ids []string, headSubject string) (string, bool, error) {
	remoteHashes, err := gitcmd.GetRemoteBranchesByID(remote)
	if err != nil {
		return "", false, err
	}

	named := map[string]bool{}
	for name := range remoteHashes {
		if parsed, ok := refs.ParseNamed(name, namedPrefix, target); ok {
			named[parsed.StackName] = true
		}
	}

	if userSupplied != "" {
		return userSupplied, named[userSupplied], nil
	}

	if owner, ok := findOwner(gitcmd, remote, target, namedPrefix, remoteHashes, ids); ok {
		return owner, true, nil
	}

	rng := mathrand.New(mathrand.NewSource(mathrand.Int63()))
	name, err := namegen.UniqueName(headSubject, 50, rng, func(name string) bool { return named[name] })
	if err != nil {
		return "", false, err
	}
	return name, false, nil
}

func findOwner(gitcmd gitshell.Client, remote, target, namedPrefix string, remoteHashes map[string]string, ids []string) (string, bool) {
	idSet := map[string]bool{}
	for _, id := range ids {
		idSet[id] = true
	}

	var owners []string
	for name, hash := range remoteHashes {
		parsed, ok := refs.ParseNamed(name, namedPrefix, target)
		if !ok {
			continue
		}
		commits, err := gitcmd.LogRange(remote+"/"+target, hash)
		if err != nil {
			continue
		}
		for _, c := range commits {
			if idSet[c.ID] {
				owners = append(owners, parsed.StackName)
				break
			}
		}
	}
	if len(owners) == 1 {
		return owners[0], true
	}
	return "", false
}

// droppedSinceLastPush computes ids that were reachable via the existing
// named-stack ref but are absent from the new stack (spec §4.6 step 13).
func droppedSinceLastPush(gitcmd gitshell.Client, remote, target, namedBranch string, newIDs []string) ([]string, error) {
	remoteHashes, err := gitcmd.GetRemoteBranchesByID(remote)
	if err != nil {
		return nil, err
	}
	hash, ok := remoteHashes[namedBranch]
	if !ok {
		return nil, nil
	}
	oldCommits, err := gitcmd.LogRange(remote+"/"+target, hash)
	if err != nil {
		return nil, nil
	}

	newSet := mapset.NewSet(newIDs...)
	var dropped []string
	for _, c := range oldCommits {
		if c.ID != "" && !newSet.Contains(c.ID) {
			dropped = append(dropped, c.ID)
		}
	}
	return dropped, nil
}

// reconcilePullRequests creates or updates one PR per commit, body built in
// two passes: once before creation ("(pending)" entries for PRs not yet
// created), once
// after (real PR numbers), per spec §4.6 steps 11-14.
func reconcilePullRequests(ctx context.Context, fc forge.Client, cfg *config.Config, st stack.Stack, prsByCommitID map[string]*stack.PullRequest, revisionRefs map[string][]string) ([]*stack.PullRequest, error) {
	prefix := cfg.Repo.BranchNamePrefix
	target := cfg.Repo.GitHubBranch

	entries := make([]prbody.StackEntry, len(st))
	for i, c := range st {
		number := 0
		title := ""
		if pr, ok := prsByCommitID[c.ID]; ok {
			number = pr.Number
			title = pr.Title
		}
		entries[len(st)-1-i] = prbody.StackEntry{
			CommitID:         c.ID,
			Title:            title,
			Number:           number,
			RevisionHeadRefs: revisionRefs[c.ID],
		}
	}

	result := make([]*stack.PullRequest, len(st))
	for i, c := range st {
		headRef := refs.EncodeBranch(prefix, target, c.ID, 0)
		baseRef := target
		if i > 0 {
			baseRef = refs.EncodeBranch(prefix, target, st[i-1].ID, 0)
		}
		subject, body := message.SubjectBody(c.FullMessage)

		generatedBody := prbody.Build("", prbody.Input{
			Subject:             subject,
			Body:                body,
			CurrentCommitID:     c.ID,
			ShowPRTitlesInStack: cfg.Repo.ShowPrTitlesInStack,
			Stack:               entries,
			Host:                cfg.Repo.GitHubHost,
			Owner:               cfg.Repo.GitHubRepoOwner,
			Repo:                cfg.Repo.GitHubRepoName,
		})

		draft := dontPushDefaultRe.MatchString(subject) || strings.HasPrefix(strings.ToLower(subject), "wip") || strings.HasPrefix(strings.ToLower(subject), "draft")

		if existing, ok := prsByCommitID[c.ID]; ok {
			newBody := prbody.Build(existing.Body, prbody.Input{
				Subject: subject, Body: body, CurrentCommitID: c.ID,
				ShowPRTitlesInStack: cfg.Repo.ShowPrTitlesInStack, Stack: entries,
				Host: cfg.Repo.GitHubHost, Owner: cfg.Repo.GitHubRepoOwner, Repo: cfg.Repo.GitHubRepoName,
			})
			changed := existing.BaseRef != baseRef || existing.Title != subject || existing.Body != newBody
			existing.BaseRef = baseRef
			existing.Title = subject
			existing.Body = newBody
			if changed {
				if err := fc.UpdatePullRequest(ctx, existing); err != nil {
					return nil, err
				}
			}
			result[i] = existing
			continue
		}

		created, err := fc.CreatePullRequest(ctx, &stack.PullRequest{
			CommitID: c.ID,
			HeadRef:  headRef,
			BaseRef:  baseRef,
			Title:    subject,
			Body:     generatedBody,
			IsDraft:  draft,
		})
		if err != nil {
			return nil, err
		}
		result[i] = created
	}

	// Second pass: rewrite every body now that every PR has a real number.
	entries2 := make([]prbody.StackEntry, len(result))
	for i, pr := range result {
		entries2[len(result)-1-i] = prbody.StackEntry{
			CommitID:         st[i].ID,
			Title:            pr.Title,
			Number:           pr.Number,
			RevisionHeadRefs: revisionRefs[st[i].ID],
		}
	}
	_, err := concurrent.SliceMapWithIndex(result, func(i int, pr *stack.PullRequest) (struct{}, error) {
		subject, body := message.SubjectBody(st[i].FullMessage)
		newBody := prbody.Build(pr.Body, prbody.Input{
			Subject: subject, Body: body, CurrentCommitID: st[i].ID,
			ShowPRTitlesInStack: cfg.Repo.ShowPrTitlesInStack, Stack: entries2,
			Host: cfg.Repo.GitHubHost, Owner: cfg.Repo.GitHubRepoOwner, Repo: cfg.Repo.GitHubRepoName,
		})
		if newBody == pr.Body {
			return struct{}{}, nil
		}
		pr.Body = newBody
		return struct{}{}, fc.UpdatePullRequest(ctx, pr)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
