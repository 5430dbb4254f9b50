// Package forge is the ForgeClient contract consumed by the reconciliation
// engine (spec §6.2): PR CRUD plus the two derived boolean states (check
// aggregation, review decision) every other package reasons about through
// stack.PullRequest. Grounded on github/githubclient/client.go's method
// surface, re-expressed purely in terms of REST (see forge/githubclient)
// since the GraphQL codegen client it also used cannot be reproduced
// without running `go generate`.
package forge

import (
	"context"

	"github.com/jaspr/jaspr/internal/stack"
)

// Client is the ForgeClient contract the engine depends on.
type Client interface {
	// GetPullRequests returns every open PR in the repository.
	GetPullRequests(ctx context.Context) ([]*stack.PullRequest, error)
	// GetPullRequestsByHeadRef returns the (at most one, per branch
	// protection) open PR whose head ref is head.
	GetPullRequestsByHeadRef(ctx context.Context, head string) ([]*stack.PullRequest, error)
	// GetPullRequestsByHeadRefs batches GetPullRequestsByHeadRef over a set
	// of head refs (used by clean/abandon to resolve a handful of specific
	// branches without listing the whole repo).
	GetPullRequestsByHeadRefs(ctx context.Context, heads []string) ([]*stack.PullRequest, error)

	CreatePullRequest(ctx context.Context, pr *stack.PullRequest) (*stack.PullRequest, error)
	// UpdatePullRequest updates base_ref, title and body by forge_id.
	UpdatePullRequest(ctx context.Context, pr *stack.PullRequest) error
	ClosePullRequest(ctx context.Context, pr *stack.PullRequest) error
	ApprovePullRequest(ctx context.Context, pr *stack.PullRequest) error

	// ChecksPass returns the aggregate check-suite state for ref: true/
	// false for SUCCESS/FAILURE|ERROR, nil for anything else ("unknown",
	// rendered as empty per spec §6.2).
	ChecksPass(ctx context.Context, ref string) (*bool, error)
	// ReviewDecision returns the review decision for a PR number: true/
	// false for APPROVED/CHANGES_REQUESTED, nil otherwise.
	ReviewDecision(ctx context.Context, number int) (*bool, error)

	// AutoClosePRs is a no-op against a real forge; the in-process fake
	// forge used in tests implements merge-close semantics here so tests
	// stay deterministic (spec §6.2, §9 open questions).
	AutoClosePRs(ctx context.Context) error
}
