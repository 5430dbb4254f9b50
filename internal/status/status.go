// Package status computes and renders the per-commit status table (spec
// §4.4): six coloured-glyph flags per commit, derived from the local
// stack crossed with the remote branch set and the PR list. Grounded on
// bl/internal/state.go's SetStackedCheck/indexColor, generalized from the
// teacher's boolean MergeStatus fields into the six independent flags the
// spec names and the richer behind/duplicate/ownership footer.
package status

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jaspr/jaspr/internal/refs"
	"github.com/jaspr/jaspr/internal/stack"
)

// Glyph is one of the six rendered flag states.
type Glyph string

const (
	GlyphPass    Glyph = "✅"
	GlyphFail    Glyph = "❌"
	GlyphPending Glyph = "⌛"
	GlyphUnknown Glyph = "❓"
	GlyphEmpty   Glyph = "ㄧ"
	GlyphWarn    Glyph = "❗"
)

var draftSubjectRe = regexp.MustCompile(`(?i)^(draft|wip)\b`)

// IsDraftSubject reports whether subject marks its commit as a draft at
// push time (spec §4.4 flag 4).
func IsDraftSubject(subject string) bool {
	return draftSubjectRe.MatchString(subject)
}

// Flags is the six-tuple of per-commit status glyphs.
type Flags struct {
	Pushed         Glyph
	PRExists       Glyph
	Checks         Glyph
	ReadyForReview Glyph
	Approved       Glyph
	StackCheck     Glyph
}

// Row is one rendered line of the status table: a commit, its matched PR
// (nil if none), and its computed flags.
type Row struct {
	Commit stack.Commit
	PR     *stack.PullRequest
	Flags  Flags
}

// Input bundles everything Compute needs, gathered by the engine facade
// from gitshell and forge.
type Input struct {
	BranchPrefix string
	Target       string

	Stack Stack
	// RemoteBranchHashes maps remote branch names to their tip hashes
	// (gitshell.GetRemoteBranchesByID, unfiltered); Compute looks up only
	// the live per-commit branch names.
	RemoteBranchHashes map[string]string
	// PRsByCommitID maps commit-id to the PR whose head_ref encodes it,
	// already filtered by the caller to head_refs that encode Target.
	PRsByCommitID map[string]*stack.PullRequest
	// BehindCount is how many commits target_ref is ahead of local_ref.
	BehindCount int
}

type Stack = stack.Stack

// Compute returns one Row per commit in in.Stack, in stack order
// (base-first); Render reverses to head-first for display.
func Compute(in Input) []Row {
	dups := map[string]bool{}
	for _, id := range in.Stack.DuplicateIDs() {
		dups[id] = true
	}

	rows := make([]Row, len(in.Stack))
	priorAllGood := true

	for i, c := range in.Stack {
		pr := in.PRsByCommitID[c.ID]
		flags := Flags{}

		branchName := refs.EncodeBranch(in.BranchPrefix, in.Target, c.ID, 0)
		switch {
		case dups[c.ID]:
			flags.Pushed = GlyphWarn
		case in.RemoteBranchHashes[branchName] == "":
			flags.Pushed = GlyphEmpty
		case in.RemoteBranchHashes[branchName] == c.Hash:
			flags.Pushed = GlyphPass
		default:
			flags.Pushed = GlyphWarn
		}

		if pr != nil {
			flags.PRExists = GlyphPass
		} else {
			flags.PRExists = GlyphEmpty
		}

		flags.Checks = checksGlyph(pr)
		flags.ReadyForReview = readyGlyph(pr)
		flags.Approved = approvedGlyph(pr)

		allPriorGood := priorAllGood &&
			flags.Pushed == GlyphPass &&
			flags.PRExists == GlyphPass &&
			flags.Checks == GlyphPass &&
			flags.ReadyForReview == GlyphPass &&
			flags.Approved == GlyphPass

		if in.BehindCount > 0 {
			flags.StackCheck = GlyphEmpty
		} else if allPriorGood {
			flags.StackCheck = GlyphPass
		} else {
			flags.StackCheck = GlyphEmpty
		}

		// Carry the running result to the next row: stack-check at row i
		// requires rows 0..i all-green, row i itself included.
		priorAllGood = priorAllGood &&
			flags.Pushed == GlyphPass &&
			flags.PRExists == GlyphPass &&
			flags.Checks == GlyphPass &&
			flags.ReadyForReview == GlyphPass &&
			flags.Approved == GlyphPass

		rows[i] = Row{Commit: c, PR: pr, Flags: flags}
	}

	return rows
}

func checksGlyph(pr *stack.PullRequest) Glyph {
	if pr == nil || pr.ChecksPass == nil {
		return GlyphEmpty
	}
	if *pr.ChecksPass {
		return GlyphPass
	}
	return GlyphFail
}

func readyGlyph(pr *stack.PullRequest) Glyph {
	if pr == nil {
		return GlyphEmpty
	}
	if !pr.IsDraft {
		return GlyphPass
	}
	return GlyphEmpty
}

func approvedGlyph(pr *stack.PullRequest) Glyph {
	if pr == nil || pr.Approved == nil {
		return GlyphEmpty
	}
	if *pr.Approved {
		return GlyphPass
	}
	return GlyphFail
}

// keyHeader is the fixed 7-line legend (a title line and one line per
// glyph) printed above every status table.
const keyHeader = `SPR (jaspr) Status Key:
✅ - pushed/exists/passes/ready/approved/stacked
❌ - checks failing or changes requested
⌛ - checks pending
❗ - needs attention (duplicate id or diverged branch)
ㄧ - not applicable
❓ - unknown state`

// Render renders rows head-first (top of stack first) with the fixed key
// header, followed by the behind/duplicate/ownership footer.
func Render(rows []Row, in Input, ownerName string, ownerAhead, ownerBehind int) string {
	var b strings.Builder
	b.WriteString(keyHeader)
	b.WriteString("\n\n")

	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		number := ""
		if r.PR != nil && r.PR.Number != 0 {
			number = fmt.Sprintf("#%d ", r.PR.Number)
		}
		fmt.Fprintf(&b, "%s %s %s %s %s %s  %s%s\n",
			r.Flags.Pushed, r.Flags.PRExists, r.Flags.Checks,
			r.Flags.ReadyForReview, r.Flags.Approved, r.Flags.StackCheck,
			number, r.Commit.ShortSubject)
	}

	if in.BehindCount > 0 {
		fmt.Fprintf(&b, "\nwarning: local branch is %d commit(s) behind %s; run `git rebase %s`\n",
			in.BehindCount, in.Target, in.Target)
	}

	if dups := in.Stack.DuplicateIDs(); len(dups) > 0 {
		fmt.Fprintf(&b, "\nwarning: duplicate commit-id(s) %s; amend the affected commits\n", strings.Join(dups, ", "))
	}

	if ownerName != "" {
		fmt.Fprintf(&b, "\nstack %q: %d ahead, %d behind its tracking branch\n", ownerName, ownerAhead, ownerBehind)
	}

	return b.String()
}
