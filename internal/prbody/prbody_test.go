package prbody_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaspr/jaspr/internal/prbody"
)

func TestBuildSingleCommitNoStackList(t *testing.T) {
	out := prbody.Build("", prbody.Input{
		Subject:         "fix the thing",
		Body:            "explains why",
		CurrentCommitID: "aaa111",
	})
	require.True(t, strings.HasPrefix(out, prbody.StartMarker))
	assert.Contains(t, out, "### fix the thing")
	assert.Contains(t, out, "explains why")
	assert.NotContains(t, out, "**Stack**")
	assert.Contains(t, out, "Do not merge manually")
}

func TestBuildPreservesTextAboveMarker(t *testing.T) {
	existing := "hand written notes\n\n" + prbody.StartMarker + "\n### old subject\n"
	out := prbody.Build(existing, prbody.Input{
		Subject:         "new subject",
		CurrentCommitID: "aaa111",
	})
	assert.True(t, strings.HasPrefix(out, "hand written notes"))
	assert.Contains(t, out, "### new subject")
	assert.NotContains(t, out, "old subject")
}

func TestBuildNoMarkerDiscardsExisting(t *testing.T) {
	out := prbody.Build("some stale body with no marker", prbody.Input{
		Subject:         "subject",
		CurrentCommitID: "aaa111",
	})
	assert.False(t, strings.Contains(out, "stale body"))
}

func TestBuildStackListMarksCurrentCommit(t *testing.T) {
	out := prbody.Build("", prbody.Input{
		Subject:         "second",
		CurrentCommitID: "bbb222",
		Stack: []StackEntryAlias{
			{CommitID: "aaa111", Number: 10},
			{CommitID: "bbb222", Number: 11},
		}.toPrbody(),
	})
	assert.Contains(t, out, "- #10\n")
	assert.Contains(t, out, "- #11 ⬅\n")
}

func TestBuildStackListPendingBeforePRsCreated(t *testing.T) {
	out := prbody.Build("", prbody.Input{
		Subject:         "first",
		CurrentCommitID: "aaa111",
		Stack: []StackEntryAlias{
			{CommitID: "aaa111", Number: 0},
		}.toPrbody(),
	})
	assert.Contains(t, out, "- (pending) ⬅\n")
}

func TestBuildShowsTitlesWhenConfigured(t *testing.T) {
	out := prbody.Build("", prbody.Input{
		Subject:             "first",
		CurrentCommitID:     "aaa111",
		ShowPRTitlesInStack: true,
		Stack: []StackEntryAlias{
			{CommitID: "aaa111", Number: 5, Title: "Add widget"},
		}.toPrbody(),
	})
	assert.Contains(t, out, "- Add widget #5 ⬅\n")
}

func TestBuildRevisionCompareLinks(t *testing.T) {
	out := prbody.Build("", prbody.Input{
		Subject:         "first",
		CurrentCommitID: "aaa111",
		Host:            "github.com",
		Owner:           "acme",
		Repo:            "widgets",
		Stack: []StackEntryAlias{
			{
				CommitID:         "aaa111",
				Number:           5,
				RevisionHeadRefs: []string{"jaspr/main/aaa111", "jaspr/main/aaa111_02", "jaspr/main/aaa111_01"},
			},
		}.toPrbody(),
	})
	assert.Contains(t, out, "[jaspr/main/aaa111..jaspr/main/aaa111_02](https://github.com/acme/widgets/compare/jaspr/main/aaa111..jaspr/main/aaa111_02)")
	assert.Contains(t, out, "[jaspr/main/aaa111_02..jaspr/main/aaa111_01](https://github.com/acme/widgets/compare/jaspr/main/aaa111_02..jaspr/main/aaa111_01)")
}

// StackEntryAlias lets the table-style test literals above stay terse while
// converting to []prbody.StackEntry.
type StackEntryAlias []struct {
	CommitID         string
	Number           int
	Title            string
	RevisionHeadRefs []string
}

func (a StackEntryAlias) toPrbody() []prbody.StackEntry {
	out := make([]prbody.StackEntry, len(a))
	for i, e := range a {
		out[i] = prbody.StackEntry{
			CommitID:         e.CommitID,
			Number:           e.Number,
			Title:            e.Title,
			RevisionHeadRefs: e.RevisionHeadRefs,
		}
	}
	return out
}
