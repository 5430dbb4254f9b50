// Package prbody builds PR bodies (spec §4.5), generalizing
// github/githubclient/client.go's FormatBody/InsertBodyIntoPRTemplate: the
// teacher rebuilds the whole body from scratch on every push, discarding
// anything the user added to an existing PR description. jaspr instead
// keeps a start marker so hand-written text above it survives repeated
// pushes, and only the region below is ever regenerated.
package prbody

import (
	"fmt"
	"strings"
)

// StartMarker delimits the generated region. Everything above it in an
// existing PR body is preserved verbatim across pushes.
const StartMarker = "<!-- jaspr start -->"

const manualMergeWarning = "⚠️ *Part of a stack managed by jaspr. " +
	"Do not merge manually using the UI - doing so may have unexpected results.*"

// StackEntry is one row of the rendered stack list: a commit-id, its PR
// number (0 if the PR has not been created yet, first pass of §4.6 step
// 11/14), and, oldest-first reversed to newest-first, the chain of
// head refs a revision-history rewrite has produced for it (live ref
// first, then _NN branches highest-to-lowest).
type StackEntry struct {
	CommitID         string
	Title            string
	Number           int
	RevisionHeadRefs []string
}

// Input is everything Build needs to regenerate the marked region for one
// commit's PR.
type Input struct {
	Subject             string
	Body                string
	CurrentCommitID     string
	ShowPRTitlesInStack bool
	Stack               []StackEntry // HEAD-first

	Host  string
	Owner string
	Repo  string
}

// Build returns the full PR body: whatever preceded StartMarker in
// existingBody, followed by the freshly generated region. existingBody may
// be empty (PR not yet created) or lack the marker entirely, in which case
// nothing is preserved.
func Build(existingBody string, in Input) string {
	prefix := ""
	if idx := strings.Index(existingBody, StartMarker); idx >= 0 {
		prefix = existingBody[:idx]
	}
	return prefix + StartMarker + "\n" + generate(in)
}

func generate(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "### %s\n", in.Subject)

	if body := strings.TrimSpace(in.Body); body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}

	if len(in.Stack) > 0 {
		b.WriteString("\n**Stack**:\n")
		for _, entry := range in.Stack {
			marker := ""
			if entry.CommitID == in.CurrentCommitID {
				marker = " ⬅"
			}

			title := ""
			if in.ShowPRTitlesInStack && entry.Title != "" {
				title = entry.Title + " "
			}

			if entry.Number == 0 {
				fmt.Fprintf(&b, "- %s(pending)%s\n", title, marker)
			} else {
				fmt.Fprintf(&b, "- %s#%d%s\n", title, entry.Number, marker)
			}

			if links := compareLinks(in.Host, in.Owner, in.Repo, entry.RevisionHeadRefs); links != "" {
				fmt.Fprintf(&b, "  - %s\n", links)
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(manualMergeWarning)
	b.WriteString("\n")

	return b.String()
}

// compareLinks builds the comma-separated compare links between successive
// pairs of refs (live ref, then revisions highest-to-lowest).
func compareLinks(host, owner, repo string, refs []string) string {
	if len(refs) < 2 {
		return ""
	}
	var links []string
	for i := 0; i < len(refs)-1; i++ {
		a, b := refs[i], refs[i+1]
		url := fmt.Sprintf("https://%s/%s/%s/compare/%s..%s", host, owner, repo, a, b)
		links = append(links, fmt.Sprintf("[%s..%s](%s)", a, b, url))
	}
	return strings.Join(links, ", ")
}
