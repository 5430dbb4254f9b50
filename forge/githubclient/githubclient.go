// Package githubclient is the production forge.Client, backed entirely by
// the go-github REST API. Grounded on github/githubclient/client.go's
// authedTransport/token lookup and check-state mapping; the GraphQL half
// of the teacher's client (Khan/genqlient) is not reproduced here — see
// the module's DESIGN.md for why — so every method below goes through
// gogithub.Client's PullRequests/Checks/Repositories services instead.
package githubclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gogithub "github.com/google/go-github/v69/github"
	"github.com/rs/zerolog/log"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/internal/stack"
)

type authedTransport struct {
	key     string
	wrapped http.RoundTripper
}

func (t *authedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.key)
	return t.wrapped.RoundTrip(req)
}

const tokenHelpText = `
No GitHub token found! Set the GITHUB_TOKEN environment variable, or use
the "gh"/"hub" CLI to authenticate (~/.config/hub is read automatically).
`

// Client is the production forge.Client.
type Client struct {
	cfg  *config.Config
	gogh *gogithub.Client
}

// New builds a Client authenticated against cfg.Repo.GitHubHost, wiring
// the secondary rate-limit retry policy into the HTTP transport.
func New(cfg *config.Config) *Client {
	token := FindToken(cfg.Repo.GitHubHost)
	if token == "" {
		fmt.Print(tokenHelpText)
	}

	httpClient := &http.Client{
		Transport: &rateLimitRetryTransport{
			wrapped: &authedTransport{key: token, wrapped: http.DefaultTransport},
			sleep:   time.Sleep,
		},
	}

	gogh := gogithub.NewClient(httpClient)
	if cfg.Repo.GitHubHost != "" && cfg.Repo.GitHubHost != "github.com" {
		if withEnterprise, err := gogh.WithEnterpriseURLs(
			"https://"+cfg.Repo.GitHubHost, "https://"+cfg.Repo.GitHubHost); err == nil {
			gogh = withEnterprise
		}
	}

	return &Client{cfg: cfg, gogh: gogh}
}

func (c *Client) logCall(format string, args ...any) {
	if c.cfg.User.LogGitHubCalls {
		fmt.Printf("> github "+format+"\n", args...)
	}
	log.Debug().Msgf(format, args...)
}

func (c *Client) GetPullRequests(ctx context.Context) ([]*stack.PullRequest, error) {
	c.logCall("list pull requests")
	var out []*stack.PullRequest
	// Unfiltered by base: per-commit branches target each other, not just
	// the configured target branch, so the base filter can't narrow this
	// server-side. Callers filter the result by encoded head/base ref.
	all, err := c.listAllOpen(ctx, &gogithub.PullRequestListOptions{
		State:       "open",
		ListOptions: gogithub.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, err
	}
	for _, pr := range all {
		out = append(out, toDomain(pr))
	}
	return out, nil
}

func (c *Client) listAllOpen(ctx context.Context, opts *gogithub.PullRequestListOptions) ([]*gogithub.PullRequest, error) {
	var all []*gogithub.PullRequest
	for {
		prs, resp, err := c.gogh.PullRequests.List(ctx, c.cfg.Repo.GitHubRepoOwner, c.cfg.Repo.GitHubRepoName, opts)
		if err != nil {
			return nil, fmt.Errorf("listing pull requests: %w", err)
		}
		all = append(all, prs...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (c *Client) GetPullRequestsByHeadRef(ctx context.Context, head string) ([]*stack.PullRequest, error) {
	c.logCall("get pull requests by head %s", head)
	prs, _, err := c.gogh.PullRequests.List(ctx, c.cfg.Repo.GitHubRepoOwner, c.cfg.Repo.GitHubRepoName, &gogithub.PullRequestListOptions{
		State: "open",
		Head:  fmt.Sprintf("%s:%s", c.cfg.Repo.GitHubRepoOwner, head),
	})
	if err != nil {
		return nil, fmt.Errorf("getting pull requests by head ref %s: %w", head, err)
	}
	out := make([]*stack.PullRequest, len(prs))
	for i, pr := range prs {
		out[i] = toDomain(pr)
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
	c.logCall("create pull request %s -> %s", pr.HeadRef, pr.BaseRef)
	created, _, err := c.gogh.PullRequests.Create(ctx, c.cfg.Repo.GitHubRepoOwner, c.cfg.Repo.GitHubRepoName, &gogithub.NewPullRequest{
		Title: gogithub.Ptr(pr.Title),
		Head:  gogithub.Ptr(pr.HeadRef),
		Base:  gogithub.Ptr(pr.BaseRef),
		Body:  gogithub.Ptr(pr.Body),
		Draft: gogithub.Ptr(pr.IsDraft),
	})
	if err != nil {
		return nil, fmt.Errorf("creating pull request: %w", err)
	}
	return toDomain(created), nil
}

func (c *Client) UpdatePullRequest(ctx context.Context, pr *stack.PullRequest) error {
	c.logCall("update pull request #%d", pr.Number)
	_, _, err := c.gogh.PullRequests.Edit(ctx, c.cfg.Repo.GitHubRepoOwner, c.cfg.Repo.GitHubRepoName, pr.Number, &gogithub.PullRequest{
		Title: gogithub.Ptr(pr.Title),
		Body:  gogithub.Ptr(pr.Body),
		Base:  &gogithub.PullRequestBranch{Ref: gogithub.Ptr(pr.BaseRef)},
	})
	if err != nil {
		return fmt.Errorf("updating pull request #%d: %w", pr.Number, err)
	}
	return nil
}

func (c *Client) ClosePullRequest(ctx context.Context, pr *stack.PullRequest) error {
	c.logCall("close pull request #%d", pr.Number)
	_, _, err := c.gogh.PullRequests.Edit(ctx, c.cfg.Repo.GitHubRepoOwner, c.cfg.Repo.GitHubRepoName, pr.Number, &gogithub.PullRequest{
		State: gogithub.Ptr("closed"),
	})
	if err != nil {
		return fmt.Errorf("closing pull request #%d: %w", pr.Number, err)
	}
	return nil
}

func (c *Client) ApprovePullRequest(ctx context.Context, pr *stack.PullRequest) error {
	c.logCall("approve pull request #%d", pr.Number)
	_, _, err := c.gogh.PullRequests.CreateReview(ctx, c.cfg.Repo.GitHubRepoOwner, c.cfg.Repo.GitHubRepoName, pr.Number, &gogithub.PullRequestReviewRequest{
		Event: gogithub.Ptr("APPROVE"),
	})
	if err != nil {
		return fmt.Errorf("approving pull request #%d: %w", pr.Number, err)
	}
	return nil
}

// AutoClosePRs is a no-op against the real GitHub API: GitHub closes a PR
// implicitly once its head is merged into its base.
func (c *Client) AutoClosePRs(ctx context.Context) error { return nil }

// ChecksPass returns the aggregate check-suite state for ref, mapped per
// spec §6.2: SUCCESS -> true, FAILURE/ERROR -> false, anything else -> nil
// (unknown, rendered as empty).
func (c *Client) ChecksPass(ctx context.Context, ref string) (*bool, error) {
	status, _, err := c.gogh.Repositories.GetCombinedStatus(ctx, c.cfg.Repo.GitHubRepoOwner, c.cfg.Repo.GitHubRepoName, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("getting combined status for %s: %w", ref, err)
	}
	switch status.GetState() {
	case "success":
		return gogithub.Ptr(true), nil
	case "failure", "error":
		return gogithub.Ptr(false), nil
	default:
		return nil, nil
	}
}

// ReviewDecision returns the latest review decision for number, mapped per
// spec §6.2: APPROVED -> true, CHANGES_REQUESTED -> false, else nil.
func (c *Client) ReviewDecision(ctx context.Context, number int) (*bool, error) {
	reviews, _, err := c.gogh.PullRequests.ListReviews(ctx, c.cfg.Repo.GitHubRepoOwner, c.cfg.Repo.GitHubRepoName, number, nil)
	if err != nil {
		return nil, fmt.Errorf("listing reviews for #%d: %w", number, err)
	}
	latest := map[string]string{}
	var order []string
	for _, r := range reviews {
		login := r.GetUser().GetLogin()
		if _, ok := latest[login]; !ok {
			order = append(order, login)
		}
		latest[login] = r.GetState()
	}
	for _, login := range order {
		switch latest[login] {
		case "CHANGES_REQUESTED":
			return gogithub.Ptr(false), nil
		}
	}
	for _, login := range order {
		if latest[login] == "APPROVED" {
			return gogithub.Ptr(true), nil
		}
	}
	return nil, nil
}

func toDomain(pr *gogithub.PullRequest) *stack.PullRequest {
	return &stack.PullRequest{
		ForgeID:   fmt.Sprintf("%d", pr.GetID()),
		Number:    pr.GetNumber(),
		HeadRef:   pr.GetHead().GetRef(),
		BaseRef:   pr.GetBase().GetRef(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		IsDraft:   pr.GetDraft(),
		Permalink: pr.GetHTMLURL(),
	}
}
