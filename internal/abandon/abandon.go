// Package abandon builds the interactive confirmation callback
// internal/reconcile.Push takes before dropping open pull requests off a
// stack (spec §4.6 step 9's abandonment check). Grounded on
// spr.Stackediff.AmendCommit's bufio.NewReader(os.Stdin)-driven prompt,
// generalized from a commit-index prompt into a yes/no one.
package abandon

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/jaspr/jaspr/internal/reconcile"
	"github.com/jaspr/jaspr/internal/stack"
	"github.com/jaspr/jaspr/output"
)

// Confirm returns an AbandonCheck that prints the PRs about to be
// abandoned and asks the user to confirm on stdin, unless autoConfirm is
// set (the --yes / non-interactive case), in which case it always
// proceeds.
func Confirm(printer output.Printer, autoConfirm bool) reconcile.AbandonCheck {
	return ConfirmFrom(printer, os.Stdin, autoConfirm)
}

// ConfirmFrom is Confirm with an explicit input reader, for tests.
func ConfirmFrom(printer output.Printer, in io.Reader, autoConfirm bool) reconcile.AbandonCheck {
	return func(ctx context.Context, dropped []*stack.PullRequest) bool {
		if len(dropped) == 0 {
			return true
		}
		if autoConfirm {
			return true
		}

		printer.Printf("the following pull request(s) are no longer in your local stack and would be abandoned:\n")
		for _, pr := range dropped {
			printer.Printf("  #%d : %s\n", pr.Number, pr.Title)
		}
		printer.Printf("continue and leave them open? (y/N): ")

		reader := bufio.NewReader(in)
		line, _ := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
