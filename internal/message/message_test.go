package message_test

import (
	"testing"

	"github.com/jaspr/jaspr/internal/message"
	"github.com/stretchr/testify/require"
)

func TestSubjectBodySingleLine(t *testing.T) {
	subj, body := message.SubjectBody("Fix the thing")
	require.Equal(t, "Fix the thing", subj)
	require.Equal(t, "", body)
}

func TestSubjectBodyCollapsesWrappedSubject(t *testing.T) {
	subj, _ := message.SubjectBody("Fix the\nthing that broke")
	require.Equal(t, "Fix the thing that broke", subj)
}

func TestSubjectBodyWithBodyAndFooters(t *testing.T) {
	msg := "Fix the thing\n\nThis explains why.\n\ncommit-id: abc12345\n"
	subj, body := message.SubjectBody(msg)
	require.Equal(t, "Fix the thing", subj)
	require.Equal(t, "This explains why.\n\ncommit-id: abc12345", body)
}

func TestFootersLastDuplicateWins(t *testing.T) {
	msg := "Subject\n\nBody\n\ncommit-id: aaa\ncommit-id: bbb\n"
	f := message.Footers(msg)
	require.Equal(t, "bbb", f["commit-id"])
}

func TestFootersEmptyWhenNoFooterParagraph(t *testing.T) {
	msg := "Subject\n\nJust a body with https://example.com a link\n"
	f := message.Footers(msg)
	require.Empty(t, f)
}

func TestFootersTrailingURLLineAloneIsNotAFooter(t *testing.T) {
	msg := "Subject\n\nBody explaining the change.\n\nhttps://example.com/issue/123\n"
	f := message.Footers(msg)
	require.Empty(t, f)
}

func TestFootersSubjectOnlyIsNeverAFooter(t *testing.T) {
	msg := "Market Explorer: add filters\n"
	f := message.Footers(msg)
	require.Empty(t, f)
}

func TestTrimFooters(t *testing.T) {
	msg := "Subject\n\nBody\n\ncommit-id: abc12345\n"
	require.Equal(t, "Subject\n\nBody", message.TrimFooters(msg))
}

func TestAddFootersRoundTrip(t *testing.T) {
	msg := "Subject\n\nBody\n\ncommit-id: abc12345\n"
	trimmed := message.TrimFooters(msg)
	footers := message.OrderedFooters(msg)
	require.Equal(t, msg, message.AddFooters(trimmed, footers))
}

func TestAddFootersReplacesExistingKey(t *testing.T) {
	msg := "Subject\n\ncommit-id: aaa\n"
	out := message.AddFooters(msg, []message.Footer{{Key: "commit-id", Value: "bbb"}})
	require.Equal(t, "Subject\n\ncommit-id: bbb\n", out)
}

func TestAddFootersNoExistingFooters(t *testing.T) {
	out := message.AddFooters("Subject\n\nBody", []message.Footer{{Key: "commit-id", Value: "abc12345"}})
	require.Equal(t, "Subject\n\nBody\n\ncommit-id: abc12345\n", out)
}
