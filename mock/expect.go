// Package mock is a shared call-sequence expectation harness used by both
// gitshell/mockgit and forge/mockclient: tests register the calls they
// expect (in order for synchronized callers, in any order for concurrent
// callers) and assert everything expected actually happened. Grounded on
// the teacher's mock/expect.go, generalized so GitExpectation's git-log
// output formatter works against gitshell.Commit and GithubExpectation is
// replaced by a domain-neutral CallExpectation any forge.Client method can
// construct.
package mock

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/jaspr/jaspr/gitshell"
)

type Outputter interface {
	Output() *string
}

type Operation interface {
	fmt.Stringer
	Outputter
}

type NilOutputter int

func (NilOutputter) Output() *string {
	return nil
}

func (NilOutputter) String() string {
	return ""
}

type StringOutputter string

func (so StringOutputter) Output() *string {
	val := string(so)
	return &val
}

// CommitOutputter renders fake `git log` output for a slice of
// gitshell.Commit, for tests that need Client.Log/LogAll/LogRange to
// return canned commits.
type CommitOutputter []gitshell.Commit

func (co CommitOutputter) Output() *string {
	var b strings.Builder
	for _, c := range co {
		fmt.Fprintf(&b, "commit %s\n", c.Hash)
		fmt.Fprintf(&b, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
		fmt.Fprintf(&b, "Date:   Fri Jun 11 14:15:49 2021 -0700\n")
		fmt.Fprintf(&b, "\n")
		fmt.Fprintf(&b, "\t%s\n", c.ShortSubject)
		fmt.Fprintf(&b, "\n")
		fmt.Fprintf(&b, "\tcommit-id:%s\n", c.ID)
		fmt.Fprintf(&b, "\n")
	}

	val := b.String()
	return &val
}

// CallExpectation is a domain-neutral expected forge call: the operation
// name plus whatever arguments matter for matching, serialized to JSON so
// String() comparisons are structural. forge/mockclient builds one of
// these per PullRequest/Client method.
type CallExpectation struct {
	Op   string
	Args any
}

func (ce CallExpectation) String() string {
	data, err := json.Marshal(ce)
	if err != nil {
		panic(err.Error())
	}
	return string(data)
}

func (ce CallExpectation) Output() *string {
	return nil
}

type GitExpectation struct {
	command string
	output  Outputter
}

func (ge GitExpectation) String() string {
	return ge.command
}

func (ge GitExpectation) Output() *string {
	if ge.output == nil {
		return nil
	}
	return ge.output.Output()
}

// Expectations is a FIFO (synchronized) or bag (unordered) matcher of
// expected-vs-actual calls, shared by git and forge mocks.
type Expectations struct {
	t                    *testing.T
	expectations         []Operation
	realities            []Operation
	nextExpectationIndex int
	mu                   *sync.Mutex
	synchronized         bool
}

func New(t *testing.T, synchronized bool) *Expectations {
	return &Expectations{
		t:            t,
		mu:           &sync.Mutex{},
		synchronized: synchronized,
	}
}

func (e *Expectations) ExpectationsMet() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.synchronized {
		if e.nextExpectationIndex != len(e.expectations) {
			e.fail(fmt.Sprintf("expected the additional commands: %v", e.expectations[e.nextExpectationIndex:]))
		}
	} else {
		for i := 0; i != len(e.expectations); i++ {
			if _, ok := e.expectations[i].(NilOutputter); !ok {
				e.fail(fmt.Sprintf("expected the additional command: %v", e.expectations[i]))
			}
		}
	}

	e.nextExpectationIndex = 0
	e.expectations = []Operation{}
	e.realities = []Operation{}
}

func (e *Expectations) ExpectGit(cmd string, response ...Outputter) {
	e.mu.Lock()
	defer e.mu.Unlock()

	exp := GitExpectation{command: cmd}
	if len(response) > 0 {
		exp.output = response[0]
	}
	e.expectations = append(e.expectations, exp)
}

func (e *Expectations) GitCmd(cmd string, output *string) {
	out, err := e.check(GitExpectation{command: cmd})
	if err != nil {
		e.fail(err.Error())
	}
	if out != nil {
		*output = *out
	}
}

func (e *Expectations) check(cmd Operation) (*string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.realities = append(e.realities, cmd)

	if e.synchronized {
		if len(e.expectations) == 0 {
			return nil, fmt.Errorf("unexpected command when no expectations were set: %q", cmd)
		}

		if e.nextExpectationIndex >= len(e.expectations) {
			return nil, fmt.Errorf("unexpected command:\n%q\nthe previous executed command was:\n%q", cmd, e.expectations[e.nextExpectationIndex-1])
		}

		exp := e.expectations[e.nextExpectationIndex]
		if exp.String() != cmd.String() {
			msg := "Expected:\n"
			for i := 0; i < e.nextExpectationIndex; i++ {
				got := e.expectations[i]
				msg += fmt.Sprintf("%q\n", got)
			}
			msg += fmt.Sprintf("-----> %q\n", exp.String())

			msg += "Got:\n"
			for i := 0; i < len(e.realities)-1; i++ {
				got := e.realities[i]
				msg += fmt.Sprintf("%q\n", got)
			}
			msg += fmt.Sprintf("-----> %q\n", cmd.String())

			msg += "instead\n"

			return nil, errors.New(msg)
		}

		e.nextExpectationIndex++
		return exp.Output(), nil
	}

	for i := 0; i != len(e.expectations); i++ {
		if e.expectations[i].String() == cmd.String() {
			exp := e.expectations[i]
			e.expectations[i] = NilOutputter(0)
			return exp.Output(), nil
		}
	}
	return nil, fmt.Errorf("unexpected command:\n%q", cmd)
}

func (e *Expectations) ExpectCall(exp CallExpectation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.expectations = append(e.expectations, exp)
}

func (e *Expectations) Call(cmd CallExpectation) {
	_, err := e.check(cmd)
	if err != nil {
		e.fail(err.Error())
	}
}

func (e *Expectations) fail(msg string) {
	fmt.Println("-------------------------- BEGIN FAILED --------------------------")
	fmt.Printf("Test: %s failed\n", e.t.Name())
	fmt.Printf("%s\n", msg)
	fmt.Println("--------------------------  END FAILED --------------------------")
	panic("")
}
