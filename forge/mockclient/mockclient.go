// Package mockclient is a forge.Client test double driven by an in-memory
// PR table plus the shared mock.Expectations call-sequence checker.
// Grounded on github/mockclient/mockclient.go, re-targeted at the new
// forge.Client interface: instead of canning one fixed response per
// operation, it keeps a small map of PRs so reconcile/merge/status tests
// can observe the effects of Create/Update/Close across a scenario.
package mockclient

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/jaspr/jaspr/forge"
	"github.com/jaspr/jaspr/internal/stack"
	"github.com/jaspr/jaspr/mock"
)

var _ forge.Client = (*Client)(nil)

// Client is an in-memory forge.Client. Tests seed it via Seed and assert
// against it via the embedded expectations.
type Client struct {
	mu           sync.Mutex
	prs          map[string]*stack.PullRequest // keyed by ForgeID
	nextNumber   int
	closed       map[string]bool
	checks       map[string]*bool
	reviews      map[int]*bool
	expectations *mock.Expectations
	Synchronized bool
}

func New(expectations *mock.Expectations) *Client {
	return &Client{
		prs:          map[string]*stack.PullRequest{},
		closed:       map[string]bool{},
		checks:       map[string]*bool{},
		reviews:      map[int]*bool{},
		nextNumber:   1,
		expectations: expectations,
	}
}

// Seed installs pr directly into the table (for tests that want PRs to
// pre-exist, as if created by a prior push).
func (c *Client) Seed(pr *stack.PullRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pr.ForgeID == "" {
		pr.ForgeID = strconv.Itoa(c.nextNumber)
	}
	if pr.Number == 0 {
		pr.Number = c.nextNumber
	}
	c.nextNumber++
	c.prs[pr.ForgeID] = pr
}

// SetChecks/SetReview let a test drive the derived boolean states an
// internal/status computation reads back via ChecksPass/ReviewDecision.
func (c *Client) SetChecks(ref string, pass *bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[ref] = pass
}

func (c *Client) SetReview(number int, approved *bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reviews[number] = approved
}

func (c *Client) GetPullRequests(ctx context.Context) ([]*stack.PullRequest, error) {
	c.expectations.Call(mock.CallExpectation{Op: "GetPullRequests"})
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*stack.PullRequest
	for _, pr := range c.prs {
		if !c.closed[pr.ForgeID] {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (c *Client) GetPullRequestsByHeadRef(ctx context.Context, head string) ([]*stack.PullRequest, error) {
	c.expectations.Call(mock.CallExpectation{Op: "GetPullRequestsByHeadRef", Args: head})
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*stack.PullRequest
	for _, pr := range c.prs {
		if pr.HeadRef == head && !c.closed[pr.ForgeID] {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (c *Client) GetPullRequestsByHeadRefs(ctx context.Context, heads []string) ([]*stack.PullRequest, error) {
	var out []*stack.PullRequest
	for _, h := range heads {
		prs, err := c.GetPullRequestsByHeadRef(ctx, h)
		if err != nil {
			return nil, err
		}
		out = append(out, prs...)
	}
	return out, nil
}

func (c *Client) CreatePullRequest(ctx context.Context, pr *stack.PullRequest) (*stack.PullRequest, error) {
	c.expectations.Call(mock.CallExpectation{Op: "CreatePullRequest", Args: pr.HeadRef})
	c.mu.Lock()
	defer c.mu.Unlock()

	created := *pr
	created.ForgeID = strconv.Itoa(c.nextNumber)
	created.Number = c.nextNumber
	c.nextNumber++
	c.prs[created.ForgeID] = &created
	return &created, nil
}

func (c *Client) UpdatePullRequest(ctx context.Context, pr *stack.PullRequest) error {
	c.expectations.Call(mock.CallExpectation{Op: "UpdatePullRequest", Args: pr.ForgeID})
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.prs[pr.ForgeID]
	if !ok {
		return fmt.Errorf("mockclient: no such pull request %s", pr.ForgeID)
	}
	existing.BaseRef = pr.BaseRef
	existing.Title = pr.Title
	existing.Body = pr.Body
	return nil
}

func (c *Client) ClosePullRequest(ctx context.Context, pr *stack.PullRequest) error {
	c.expectations.Call(mock.CallExpectation{Op: "ClosePullRequest", Args: pr.ForgeID})
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed[pr.ForgeID] = true
	return nil
}

func (c *Client) ApprovePullRequest(ctx context.Context, pr *stack.PullRequest) error {
	c.expectations.Call(mock.CallExpectation{Op: "ApprovePullRequest", Args: pr.ForgeID})
	c.mu.Lock()
	defer c.mu.Unlock()
	approved := true
	c.reviews[pr.Number] = &approved
	return nil
}

// AutoClosePRs closes every PR whose head ref equals its base ref — the
// test affordance spec §9 requires.
func (c *Client) AutoClosePRs(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, pr := range c.prs {
		if pr.HeadRef == pr.BaseRef {
			c.closed[id] = true
		}
	}
	return nil
}

func (c *Client) ChecksPass(ctx context.Context, ref string) (*bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checks[ref], nil
}

func (c *Client) ReviewDecision(ctx context.Context, number int) (*bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reviews[number], nil
}

// ExpectationsMet asserts every registered expectation was consumed.
func (c *Client) ExpectationsMet() {
	c.expectations.ExpectationsMet()
}
