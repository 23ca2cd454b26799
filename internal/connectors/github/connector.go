// Package github implements the S1 Fetch and S5 Publish stage tools'
// GitHub-facing calls: a shallow tarball fetch of the target repository and,
// for the docs-plus-comments variant with write access, a pull request
// carrying the generated changes. Adapted from the teacher's
// internal/connectors/github package, trimmed to what the pipeline needs.
package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/ternarybob/docugen/internal/errs"
)

// Connector wraps an authenticated go-github client for one job's lifetime.
type Connector struct {
	client *github.Client
}

// NewConnector builds a Connector from the caller-supplied credential
// (spec.md §4.1 Job.credential), or an unauthenticated client when token is
// empty - public repositories can still be fetched without one.
func NewConnector(ctx context.Context, token string) *Connector {
	if token == "" {
		return &Connector{client: github.NewClient(nil)}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return &Connector{client: github.NewClient(tc)}
}

// TestConnection verifies the token works, used by HasWriteAccess checks
// before attempting the docs-plus-comments publish path.
func (c *Connector) TestConnection(ctx context.Context) error {
	_, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return errs.Wrap(errs.KindAuthFailed, "github connection test failed", err)
	}
	return nil
}

// HasWriteAccess reports whether the authenticated principal can push to
// owner/repo, determining whether Publish opens a pull request or falls
// back to returning a downloadable bundle (spec.md §4.5 S5).
func (c *Connector) HasWriteAccess(ctx context.Context, owner, repo string) bool {
	r, _, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil || r == nil || r.Permissions == nil {
		return false
	}
	return r.Permissions["push"]
}
