package mock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpectations(t *testing.T) {
	t.Run("git", func(t *testing.T) {
		t.Run("matches single expectation", func(t *testing.T) {
			m := New(t, true)

			m.ExpectGit("git status")

			out, err := m.check(GitExpectation{command: "git status"})
			require.Nil(t, out)
			require.NoError(t, err)
		})

		t.Run("matches multiple expectations", func(t *testing.T) {
			m := New(t, true)

			m.ExpectGit("git status")
			m.ExpectGit("git log")

			out, err := m.check(GitExpectation{command: "git status"})
			require.Nil(t, out)
			require.NoError(t, err)
			out, err = m.check(GitExpectation{command: "git log"})
			require.Nil(t, out)
			require.NoError(t, err)
		})

		t.Run("fails if no expectations set", func(t *testing.T) {
			m := New(t, true)

			out, err := m.check(GitExpectation{command: "git status"})
			require.Nil(t, out)
			require.Error(t, err)
		})

		t.Run("fails if not enough expectations set", func(t *testing.T) {
			m := New(t, true)

			m.ExpectGit("git status")

			out, err := m.check(GitExpectation{command: "git status"})
			require.Nil(t, out)
			require.NoError(t, err)
			out, err = m.check(GitExpectation{command: "git status"})
			require.Nil(t, out)
			require.Error(t, err)
		})

		t.Run("fails if bad expectations set", func(t *testing.T) {
			m := New(t, true)

			m.ExpectGit("git status")

			out, err := m.check(GitExpectation{command: "git log"})
			require.Nil(t, out)
			require.Error(t, err)
		})

		t.Run("matches with output", func(t *testing.T) {
			m := New(t, true)

			m.ExpectGit("git status", StringOutputter("some output"))

			out, err := m.check(GitExpectation{command: "git status"})
			require.Equal(t, *out, "some output")
			require.NoError(t, err)
		})
	})

	t.Run("calls", func(t *testing.T) {
		t.Run("matches single expectation", func(t *testing.T) {
			m := New(t, true)

			m.ExpectCall(CallExpectation{Op: "GetPullRequests"})

			out, err := m.check(CallExpectation{Op: "GetPullRequests"})
			require.Nil(t, out)
			require.NoError(t, err)
		})

		t.Run("matches multiple expectations", func(t *testing.T) {
			m := New(t, true)

			m.ExpectCall(CallExpectation{Op: "GetPullRequests"})
			m.ExpectCall(CallExpectation{Op: "CreatePullRequest", Args: "abc12345"})

			out, err := m.check(CallExpectation{Op: "GetPullRequests"})
			require.Nil(t, out)
			require.NoError(t, err)
			out, err = m.check(CallExpectation{Op: "CreatePullRequest", Args: "abc12345"})
			require.Nil(t, out)
			require.NoError(t, err)
		})

		t.Run("fails if no expectations set", func(t *testing.T) {
			m := New(t, true)

			out, err := m.check(CallExpectation{Op: "GetPullRequests"})
			require.Nil(t, out)
			require.Error(t, err)
		})

		t.Run("fails if bad expectations set", func(t *testing.T) {
			m := New(t, true)

			m.ExpectCall(CallExpectation{Op: "GetPullRequests"})

			out, err := m.check(CallExpectation{Op: "CreatePullRequest"})
			require.Nil(t, out)
			require.Error(t, err)
		})
	})

	t.Run("mixed expectation types", func(t *testing.T) {
		m := New(t, true)

		m.ExpectCall(CallExpectation{Op: "GetPullRequests"})
		m.ExpectGit("git status")
		m.ExpectCall(CallExpectation{Op: "GetPullRequests"})

		out, err := m.check(CallExpectation{Op: "GetPullRequests"})
		require.Nil(t, out)
		require.NoError(t, err)
		out, err = m.check(GitExpectation{command: "git status"})
		require.Nil(t, out)
		require.NoError(t, err)
		out, err = m.check(GitExpectation{command: "git status"})
		require.Nil(t, out)
		require.Error(t, err)
	})

	t.Run("matches unsynchronized", func(t *testing.T) {
		m := New(t, false)

		m.ExpectGit("git log")
		m.ExpectGit("git status")

		out, err := m.check(GitExpectation{command: "git status"})
		require.Nil(t, out)
		require.NoError(t, err)
		out, err = m.check(GitExpectation{command: "git log"})
		require.Nil(t, out)
		require.NoError(t, err)
	})
}
