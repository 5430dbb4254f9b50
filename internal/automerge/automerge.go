// Package automerge implements the auto-merge loop (spec §4.8): poll a
// scratch clone of the remote until the stack becomes mergeable, then merge
// it and return. Grounded on bl/gitapi.go's CreateRemoteBranchWithCherryPick
// (temp-dir + secondary-remote pattern via os.MkdirTemp and a second
// realgit.Client rooted at the scratch dir) and spr.go's polling-style
// check loop, generalized to the stacked-PR merge predicate.
package automerge

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/forge"
	"github.com/jaspr/jaspr/gitshell"
	"github.com/jaspr/jaspr/internal/merge"
	"github.com/jaspr/jaspr/internal/refs"
	"github.com/jaspr/jaspr/internal/stack"
)

// Outcome is why the loop stopped.
type Outcome int

const (
	OutcomeMerged Outcome = iota
	OutcomeBehindTarget
	OutcomeStackEmpty
	OutcomeChecksFailed
	OutcomeChangesRequested
	OutcomeAttemptsExceeded
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMerged:
		return "merged"
	case OutcomeBehindTarget:
		return "behind target"
	case OutcomeStackEmpty:
		return "stack empty"
	case OutcomeChecksFailed:
		return "checks failing"
	case OutcomeChangesRequested:
		return "changes requested"
	case OutcomeAttemptsExceeded:
		return "max attempts reached"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result reports the loop's final state.
type Result struct {
	Outcome  Outcome
	Attempts int
	Merged   *merge.Result
}

// Sleeper abstracts time.Sleep; StatusPrinter reports loop progress back to
// the CLI between polls.
type Sleeper func(time.Duration)
type StatusPrinter func(attempt int, st stack.Stack)

// Scratch is a clone of the remote in a fresh directory, with the original
// working directory wired in as a secondary remote so its unpushed commits
// are visible (spec §4.8 step 2).
type Scratch struct {
	Dir     string
	kept    bool
	cleanup func() error
}

// Close removes the scratch directory unless Keep was called (spec §4.8
// step 4: on exception the caller should call Keep and log Dir instead).
func (s *Scratch) Close() error {
	if s.kept {
		return nil
	}
	return s.cleanup()
}

// Keep marks the scratch directory to be retained for debugging.
func (s *Scratch) Keep() { s.kept = true }

const localWorkdirRemote = "localwd"

// NewScratch clones remoteURL into a fresh temp directory, adds origRootDir
// as a secondary remote, fetches from it, and checks out localRef.
func NewScratch(remoteURL, origRootDir, localRef string) (*Scratch, error) {
	dir, err := os.MkdirTemp("", "jaspr-automerge-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}

	run := func(args ...string) error {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("git %v: %w: %s", args, err, out)
		}
		return nil
	}

	if err := exec.Command("git", "clone", remoteURL, dir).Run(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("cloning %s: %w", remoteURL, err)
	}
	if err := run("remote", "add", localWorkdirRemote, origRootDir); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	if err := run("fetch", localWorkdirRemote); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	if err := run("checkout", localRef); err != nil {
		if err2 := run("checkout", "-b", localRef, localWorkdirRemote+"/"+localRef); err2 != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("checking out %s: %w", localRef, err)
		}
	}

	return &Scratch{
		Dir: dir,
		cleanup: func() error {
			return os.RemoveAll(dir)
		},
	}, nil
}

// Input bundles the loop's static configuration.
type Input struct {
	OrigWorkDir      string
	PollingInterval  time.Duration
	MaxAttempts      int
	LocalRef         string
	AllowDraftMerges bool
}

// Run polls gitcmd/fc (rooted at the scratch clone) until the stack is
// mergeable or an exit condition fires (spec §4.8 step 3). ctx cancellation
// is the cooperative cancellation point during Sleep.
func Run(ctx context.Context, gitcmd gitshell.Client, fc forge.Client, cfg *config.Config, in Input, sleep Sleeper, print StatusPrinter) (*Result, error) {
	if sleep == nil {
		sleep = time.Sleep
	}
	remote := cfg.Repo.GitHubRemote
	target := cfg.Repo.GitHubBranch
	prefix := cfg.Repo.BranchNamePrefix

	for attempt := 1; attempt <= in.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return &Result{Outcome: OutcomeCancelled, Attempts: attempt}, ctx.Err()
		default:
		}

		if err := gitcmd.Fetch(remote, true); err != nil {
			return nil, err
		}

		behind, err := behindCount(gitcmd, remote, target, in.LocalRef)
		if err != nil {
			return nil, err
		}
		if behind > 0 {
			log.Warn().Int("behind", behind).Msg("local branch is behind target, aborting auto-merge")
			return &Result{Outcome: OutcomeBehindTarget, Attempts: attempt}, nil
		}

		commits, err := gitcmd.GetLocalCommitStack(remote, in.LocalRef, target)
		if err != nil {
			return nil, err
		}
		st := stack.Stack(commits)
		if len(st) == 0 {
			log.Warn().Msg("stack is empty, aborting auto-merge")
			return &Result{Outcome: OutcomeStackEmpty, Attempts: attempt}, nil
		}

		remoteHashes, err := gitcmd.GetRemoteBranchesByID(remote)
		if err != nil {
			return nil, err
		}
		allPRs, err := fc.GetPullRequests(ctx)
		if err != nil {
			return nil, err
		}
		prsByCommitID := map[string]*stack.PullRequest{}
		for _, pr := range allPRs {
			parsed, ok := refs.ParseBranch(pr.HeadRef, prefix)
			if ok && parsed.Target == target {
				prsByCommitID[parsed.CommitID] = pr
			}
		}

		allMergeable := true
		anyBlocked := false
		for _, c := range st {
			branch := refs.EncodeBranch(prefix, target, c.ID, 0)
			pushedOK := remoteHashes[branch] == c.Hash
			pr := prsByCommitID[c.ID]

			if pr != nil {
				if pr.ChecksPass != nil && !*pr.ChecksPass {
					anyBlocked = true
				}
				if pr.Approved != nil && !*pr.Approved {
					anyBlocked = true
				}
			}

			strict := pr != nil && pr.IsDraft && !in.AllowDraftMerges
			if strict || !merge.Mergeable(pushedOK, pr) {
				allMergeable = false
			}
		}

		if allMergeable {
			result, err := merge.Run(ctx, gitcmd, fc, cfg, st, remoteHashes, prsByCommitID, in.LocalRef, sleep)
			if err != nil {
				return nil, err
			}
			return &Result{Outcome: OutcomeMerged, Attempts: attempt, Merged: result}, nil
		}

		if anyBlocked {
			for _, pr := range prsByCommitID {
				if pr.ChecksPass != nil && !*pr.ChecksPass {
					return &Result{Outcome: OutcomeChecksFailed, Attempts: attempt}, nil
				}
				if pr.Approved != nil && !*pr.Approved {
					return &Result{Outcome: OutcomeChangesRequested, Attempts: attempt}, nil
				}
			}
		}

		if print != nil {
			print(attempt, st)
		}

		select {
		case <-ctx.Done():
			return &Result{Outcome: OutcomeCancelled, Attempts: attempt}, ctx.Err()
		default:
			sleep(in.PollingInterval)
		}
	}

	return &Result{Outcome: OutcomeAttemptsExceeded, Attempts: in.MaxAttempts}, nil
}

func behindCount(gitcmd gitshell.Client, remote, target, localRef string) (int, error) {
	ahead, err := gitcmd.LogRange(localRef, remote+"/"+target)
	if err != nil {
		return 0, nil
	}
	return len(ahead), nil
}
