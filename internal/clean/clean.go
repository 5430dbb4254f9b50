// Package clean implements the clean planner (spec §4.9): it finds
// per-commit branches and named-stack pointers that are no longer load
// bearing and force-deletes them in one push. Grounded on
// bl/gitapi.go's DeleteRemoteBranch, generalized from the teacher's
// single-PR-set cleanup into the three-set (orphaned/empty-named/
// abandoned) sweep the new branch scheme requires.
package clean

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/forge"
	"github.com/jaspr/jaspr/gitshell"
	"github.com/jaspr/jaspr/internal/refs"
)

// Options are the clean planner's two switches (spec §4.9).
type Options struct {
	CleanAbandonedPRs bool
	CleanAllCommits   bool
}

// Plan is the set of remote branches slated for deletion, split out by
// reason for reporting to the user.
type Plan struct {
	Orphaned   []string
	Abandoned  []string
	EmptyNamed []string
}

// All returns the full, deduplicated branch list to delete.
func (p Plan) All() []string {
	set := mapset.NewSet[string]()
	for _, group := range [][]string{p.Orphaned, p.Abandoned, p.EmptyNamed} {
		for _, b := range group {
			set.Add(b)
		}
	}
	return set.ToSlice()
}

// Ident resolves the current user's author identity the way clean filters
// Orphaned/Abandoned (spec §4.9): user.name/user.email from git config.
type Ident = gitshell.Ident

// Compute builds the deletion plan without mutating anything.
func Compute(ctx context.Context, gitcmd gitshell.Client, fc forge.Client, cfg *config.Config, opts Options, me Ident) (Plan, error) {
	remote := cfg.Repo.GitHubRemote
	target := cfg.Repo.GitHubBranch
	prefix := cfg.Repo.BranchNamePrefix
	namedPrefix := cfg.Repo.NamedStackPrefix

	remoteHashes, err := gitcmd.GetRemoteBranchesByID(remote)
	if err != nil {
		return Plan{}, err
	}

	openPRCommitIDs, err := openPRCommitIDs(ctx, fc, prefix, target)
	if err != nil {
		return Plan{}, err
	}

	namedRefs := map[string]string{} // stackName -> remote hash
	var commitBranches []string
	for name := range remoteHashes {
		if parsed, ok := refs.ParseBranch(name, prefix); ok && parsed.Target == target {
			commitBranches = append(commitBranches, name)
		}
		if parsed, ok := refs.ParseNamed(name, namedPrefix, target); ok {
			namedRefs[parsed.StackName] = remoteHashes[name]
		}
	}

	reachable := mapset.NewSet[string]() // commit-id reachable from some named stack
	for _, hash := range namedRefs {
		commits, err := gitcmd.LogRange(remote+"/"+target, hash)
		if err != nil {
			continue
		}
		for _, c := range commits {
			if c.ID != "" {
				reachable.Add(c.ID)
			}
		}
	}

	var orphaned, abandoned []string
	for _, branch := range commitBranches {
		parsed, _ := refs.ParseBranch(branch, prefix)
		hasOpenPR := openPRCommitIDs.Contains(parsed.CommitID)

		if !hasOpenPR {
			orphaned = append(orphaned, branch)
			continue
		}
		if opts.CleanAbandonedPRs && parsed.RevNum == 0 && !reachable.Contains(parsed.CommitID) {
			abandoned = append(abandoned, branch)
		}
	}

	var emptyNamed []string
	for name, hash := range namedRefs {
		commits, err := gitcmd.LogRange(remote+"/"+target, hash)
		if err == nil && len(commits) == 0 {
			emptyNamed = append(emptyNamed, refs.EncodeNamed(namedPrefix, target, name))
		}
	}

	if !opts.CleanAllCommits {
		orphaned = filterByAuthor(gitcmd, remote, orphaned, me)
		abandoned = filterByAuthor(gitcmd, remote, abandoned, me)
	}

	return Plan{Orphaned: orphaned, Abandoned: abandoned, EmptyNamed: emptyNamed}, nil
}

// Execute runs Compute's plan: if there are Abandoned branches and
// clean_abandoned_prs is set, it first closes their PRs (which may orphan
// further branches), recomputes, then force-deletes the union in a single
// push (spec §4.9).
func Execute(ctx context.Context, gitcmd gitshell.Client, fc forge.Client, cfg *config.Config, opts Options, me Ident) (Plan, error) {
	plan, err := Compute(ctx, gitcmd, fc, cfg, opts, me)
	if err != nil {
		return Plan{}, err
	}

	if opts.CleanAbandonedPRs && len(plan.Abandoned) > 0 {
		if err := closeAbandonedPRs(ctx, fc, plan.Abandoned); err != nil {
			return Plan{}, err
		}
		plan, err = Compute(ctx, gitcmd, fc, cfg, opts, me)
		if err != nil {
			return Plan{}, err
		}
	}

	all := plan.All()
	if len(all) > 0 {
		remote := cfg.Repo.GitHubRemote
		var specs []gitshell.RefSpec
		for _, b := range all {
			specs = append(specs, gitshell.RefSpec{Local: "", Remote: b, Force: true})
		}
		if err := gitcmd.Push(specs, remote); err != nil {
			return Plan{}, err
		}
	}
	return plan, nil
}

func closeAbandonedPRs(ctx context.Context, fc forge.Client, branches []string) error {
	prs, err := fc.GetPullRequestsByHeadRefs(ctx, branches)
	if err != nil {
		return err
	}
	for _, pr := range prs {
		if err := fc.ClosePullRequest(ctx, pr); err != nil {
			return err
		}
	}
	return nil
}

func openPRCommitIDs(ctx context.Context, fc forge.Client, prefix, target string) (mapset.Set[string], error) {
	prs, err := fc.GetPullRequests(ctx)
	if err != nil {
		return nil, err
	}
	out := mapset.NewSet[string]()
	for _, pr := range prs {
		if parsed, ok := refs.ParseBranch(pr.HeadRef, prefix); ok && parsed.Target == target {
			out.Add(parsed.CommitID)
		}
	}
	return out, nil
}

func filterByAuthor(gitcmd gitshell.Client, remote string, branches []string, me Ident) []string {
	if len(branches) == 0 {
		return branches
	}
	var fullRefs []string
	for _, b := range branches {
		fullRefs = append(fullRefs, remote+"/"+b)
	}
	commits, err := gitcmd.GetCommits(fullRefs)
	if err != nil {
		return nil
	}
	var out []string
	for i, c := range commits {
		if i >= len(branches) {
			break
		}
		if c.Author.Email == me.Email && me.Email != "" {
			out = append(out, branches[i])
		}
	}
	return out
}
