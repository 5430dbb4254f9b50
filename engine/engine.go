// Package engine is the facade tying the reconciliation algorithms together
// behind one object the CLI calls into, exactly the role the teacher's
// spr.Stackediff plays over bl/gitapi.go + github/githubclient. Where the
// teacher carries config/github/gitcmd/profiletimer/Printer as fields and
// exposes one method per CLI subcommand, Engine does the same, delegating
// the actual algorithm to internal/reconcile, internal/merge,
// internal/automerge, internal/clean, internal/status, internal/namedstack
// instead of inlining them the way the teacher's Stackediff methods do.
package engine

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/ejoffe/profiletimer"
	"github.com/rs/zerolog/log"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/forge"
	"github.com/jaspr/jaspr/gitshell"
	"github.com/jaspr/jaspr/gitshell/realgit"
	"github.com/jaspr/jaspr/internal/abandon"
	"github.com/jaspr/jaspr/internal/automerge"
	"github.com/jaspr/jaspr/internal/clean"
	"github.com/jaspr/jaspr/internal/merge"
	"github.com/jaspr/jaspr/internal/namedstack"
	"github.com/jaspr/jaspr/internal/reconcile"
	"github.com/jaspr/jaspr/internal/refs"
	"github.com/jaspr/jaspr/internal/stack"
	"github.com/jaspr/jaspr/internal/status"
	"github.com/jaspr/jaspr/internal/tipstate"
	"github.com/jaspr/jaspr/output"
)

// Engine bundles the collaborators every subcommand needs, the way
// spr.Stackediff bundles config/github/gitcmd.
type Engine struct {
	Config  *config.Config
	Forge   forge.Client
	Git     gitshell.Client
	Printer output.Printer

	profiletimer profiletimer.Timer
	tips         *tipstate.Store
}

// New constructs an Engine writing to os.Stdout, matching
// spr.NewStackedPR's defaults (noop profiling timer, stdout printer).
func New(cfg *config.Config, fc forge.Client, gitcmd gitshell.Client) *Engine {
	return &Engine{
		Config:       cfg,
		Forge:        fc,
		Git:          gitcmd,
		Printer:      output.New(os.Stdout),
		profiletimer: profiletimer.StartNoopTimer(),
		tips:         tipstate.Open(),
	}
}

// ProfilingEnable turns on wall-clock step timing, printed via ShowProfile.
func (e *Engine) ProfilingEnable() {
	e.profiletimer = profiletimer.StartProfileTimer()
}

// ShowProfile writes the accumulated step timings to w.
func (e *Engine) ShowProfile(w io.Writer) {
	e.profiletimer.ShowResults(w)
}

// Status computes and prints the stack's status table against the forge
// (spec §4.4).
func (e *Engine) Status(ctx context.Context) error {
	e.profiletimer.Step("Status::Start")
	cfg := e.Config
	remote, target, prefix := cfg.Repo.GitHubRemote, cfg.Repo.GitHubBranch, cfg.Repo.BranchNamePrefix

	if err := e.Git.Fetch(remote, true); err != nil {
		return err
	}
	e.profiletimer.Step("Status::Fetch")

	localRef, err := e.Git.GetCurrentBranchName()
	if err != nil {
		return err
	}
	commits, err := e.Git.GetLocalCommitStack(remote, localRef, target)
	if err != nil {
		return err
	}
	st := stack.Stack(commits)
	if len(st) == 0 {
		e.Printer.Printf("no local commits\n")
		return nil
	}
	e.profiletimer.Step("Status::GetLocalCommitStack")

	remoteHashes, err := e.Git.GetRemoteBranchesByID(remote)
	if err != nil {
		return err
	}
	allPRs, err := e.Forge.GetPullRequests(ctx)
	if err != nil {
		return err
	}
	prsByCommitID := map[string]*stack.PullRequest{}
	for _, pr := range allPRs {
		if parsed, ok := refs.ParseBranch(pr.HeadRef, prefix); ok && parsed.Target == target {
			prsByCommitID[parsed.CommitID] = pr
		}
	}
	e.profiletimer.Step("Status::GetPullRequests")

	behind, err := e.Git.LogRange(localRef, remote+"/"+target)
	if err != nil {
		return err
	}
	behindCount := len(behind)

	rows := status.Compute(status.Input{
		BranchPrefix:       prefix,
		Target:             target,
		Stack:              st,
		RemoteBranchHashes: remoteHashes,
		PRsByCommitID:      prsByCommitID,
		BehindCount:        behindCount,
	})

	ownerName, ownerAhead, ownerBehind := ownerOf(e.Git, remote, target, cfg.Repo.NamedStackPrefix, localRef, st.IDs())
	e.Printer.Print(status.Render(rows, status.Input{Target: target, BehindCount: behindCount, Stack: st}, ownerName, ownerAhead, ownerBehind))
	e.profiletimer.Step("Status::Render")
	return nil
}

// ownerOf finds the single named-stack ref whose history contains any of
// this stack's commit-ids, and how far the local branch has diverged from
// it. When no ref or more than one ref matches, it reports no owner.
func ownerOf(gitcmd gitshell.Client, remote, target, namedPrefix, localRef string, ids []string) (name string, ahead, behind int) {
	remoteHashes, err := gitcmd.GetRemoteBranchesByID(remote)
	if err != nil {
		return "", 0, 0
	}
	idSet := map[string]bool{}
	for _, id := range ids {
		idSet[id] = true
	}
	owners := 0
	var ownerName, ownerHash string
	for refName, hash := range remoteHashes {
		parsed, ok := refs.ParseNamed(refName, namedPrefix, target)
		if !ok {
			continue
		}
		commits, err := gitcmd.LogRange(remote+"/"+target, hash)
		if err != nil {
			continue
		}
		for _, c := range commits {
			if !idSet[c.ID] {
				continue
			}
			owners++
			ownerName, ownerHash = parsed.StackName, hash
			break
		}
	}
	if owners != 1 {
		return "", 0, 0
	}
	aheadCommits, _ := gitcmd.LogRange(ownerHash, localRef)
	behindCommits, _ := gitcmd.LogRange(localRef, ownerHash)
	return ownerName, len(aheadCommits), len(behindCommits)
}

// Push reconciles the local stack against the forge (spec §4.6), prompting
// for confirmation if the push would abandon PRs still open.
func (e *Engine) Push(ctx context.Context, opts reconcile.Options, confirmAbandon bool) (*reconcile.Result, error) {
	e.profiletimer.Step("Push::Start")

	abandonCheck := abandon.Confirm(e.Printer, confirmAbandon)
	result, err := reconcile.Push(ctx, e.Git, e.Forge, e.Config, opts, abandonCheck)
	if err != nil {
		return nil, err
	}
	e.profiletimer.Step("Push::Done")
	if result == nil {
		e.Printer.Printf("push aborted: stack would abandon open pull requests\n")
		return nil, nil
	}
	for _, pr := range result.PRs {
		e.Printer.Printf("  %s : %s\n", pr.CommitID[:min(8, len(pr.CommitID))], pr.Title)
	}
	return result, nil
}

// Merge runs the merge engine (spec §4.7) against the current local stack.
func (e *Engine) Merge(ctx context.Context, count *int) (*merge.Result, error) {
	e.profiletimer.Step("Merge::Start")
	cfg := e.Config
	remote, target, prefix := cfg.Repo.GitHubRemote, cfg.Repo.GitHubBranch, cfg.Repo.BranchNamePrefix

	if err := e.Git.Fetch(remote, true); err != nil {
		return nil, err
	}
	localRef, err := e.Git.GetCurrentBranchName()
	if err != nil {
		return nil, err
	}
	commits, err := e.Git.GetLocalCommitStack(remote, localRef, target)
	if err != nil {
		return nil, err
	}
	st := stack.Stack(commits)
	if count != nil {
		sliced, err := sliceStack(st, *count)
		if err != nil {
			return nil, err
		}
		st = sliced
	}

	remoteHashes, err := e.Git.GetRemoteBranchesByID(remote)
	if err != nil {
		return nil, err
	}
	allPRs, err := e.Forge.GetPullRequests(ctx)
	if err != nil {
		return nil, err
	}
	prsByCommitID := map[string]*stack.PullRequest{}
	for _, pr := range allPRs {
		if parsed, ok := refs.ParseBranch(pr.HeadRef, prefix); ok && parsed.Target == target {
			prsByCommitID[parsed.CommitID] = pr
		}
	}

	result, err := merge.Run(ctx, e.Git, e.Forge, e.Config, st, remoteHashes, prsByCommitID, localRef, nil)
	if err != nil {
		return nil, err
	}
	e.profiletimer.Step("Merge::Done")
	e.Printer.Printf("merged %d commits onto %s\n", len(result.MergedStack), result.Target)
	return result, nil
}

func sliceStack(st stack.Stack, count int) (stack.Stack, error) {
	if count == 0 || count > len(st) || -count > len(st) {
		return nil, stack.ErrCountOutOfRange
	}
	if count > 0 {
		return st[:count], nil
	}
	return st[:len(st)+count], nil
}

// AutoMerge polls until the stack merges or an exit condition fires (spec
// §4.8), printing progress between attempts. scratchRemoteURL/workDir set
// up the scratch clone per automerge.NewScratch; the caller is responsible
// for having resolved the remote's fetch URL.
func (e *Engine) AutoMerge(ctx context.Context, scratchRemoteURL, workDir, localRef string) (*automerge.Result, error) {
	e.profiletimer.Step("AutoMerge::Start")
	scratch, err := automerge.NewScratch(scratchRemoteURL, workDir, localRef)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := scratch.Close(); err != nil {
			log.Warn().Err(err).Str("dir", scratch.Dir).Msg("auto-merge: scratch cleanup failed")
		}
	}()

	cfg := e.Config
	in := automerge.Input{
		OrigWorkDir:      workDir,
		PollingInterval:  time.Duration(cfg.Repo.AutoMergePollingIntervalSeconds) * time.Second,
		MaxAttempts:      cfg.Repo.AutoMergeMaxAttempts,
		LocalRef:         localRef,
		AllowDraftMerges: false,
	}

	print := func(attempt int, st stack.Stack) {
		e.Printer.Printf("[%d/%d] waiting on %d commits\n", attempt, in.MaxAttempts, len(st))
	}

	result, err := automerge.Run(ctx, realgit.NewAt(cfg, scratch.Dir), e.Forge, cfg, in, nil, print)
	if err != nil {
		scratch.Keep()
		log.Warn().Str("dir", scratch.Dir).Msg("auto-merge failed; keeping scratch clone")
		return nil, err
	}
	e.profiletimer.Step("AutoMerge::Done")
	e.Printer.Printf("auto-merge finished: %s (%d attempts)\n", result.Outcome, result.Attempts)
	return result, nil
}

// Clean computes and executes the clean planner (spec §4.9).
func (e *Engine) Clean(ctx context.Context, opts clean.Options) (clean.Plan, error) {
	e.profiletimer.Step("Clean::Start")
	me, err := currentIdent(e.Git)
	if err != nil {
		return clean.Plan{}, err
	}
	plan, err := clean.Execute(ctx, e.Git, e.Forge, e.Config, opts, me)
	if err != nil {
		return clean.Plan{}, err
	}
	e.profiletimer.Step("Clean::Done")
	for _, b := range plan.All() {
		e.Printer.Printf("deleted %s\n", b)
	}
	return plan, nil
}

func currentIdent(gitcmd gitshell.Client) (gitshell.Ident, error) {
	name, err := gitcmd.GetConfigValue("user.name")
	if err != nil {
		return gitshell.Ident{}, err
	}
	email, err := gitcmd.GetConfigValue("user.email")
	if err != nil {
		return gitshell.Ident{}, err
	}
	return gitshell.Ident{Name: name, Email: email}, nil
}

// Stacks lists every named-stack pointer for the configured target.
func (e *Engine) Stacks() ([]stack.NamedStackRef, error) {
	return namedstack.List(e.Git, e.Config, e.Config.Repo.GitHubBranch)
}

// StackCheckout switches the working tree onto a named stack.
func (e *Engine) StackCheckout(name string) error {
	return namedstack.Checkout(e.Git, e.Config, e.Config.Repo.GitHubBranch, name)
}

// StackRename renames a named stack.
func (e *Engine) StackRename(oldName, newName string) error {
	return namedstack.Rename(e.Git, e.Config, e.Config.Repo.GitHubBranch, oldName, newName)
}

// StackDelete force-deletes a named stack pointer.
func (e *Engine) StackDelete(name string) error {
	return namedstack.Delete(e.Git, e.Config, e.Config.Repo.GitHubBranch, name)
}

// ShowTipOnce prints msg via the Printer the first time key is seen on this
// machine, and never again (spec §6.4's advisory tip cache).
func (e *Engine) ShowTipOnce(key, msg string) {
	if e.tips.Shown(key) {
		return
	}
	e.Printer.Printf("%s\n", msg)
	e.tips.MarkShown(key)
}

