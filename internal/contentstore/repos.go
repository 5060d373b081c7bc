package contentstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Repo is the subset of repository metadata the engine consumes.
type Repo struct {
	Name          string `json:"name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// GetRepo fetches repository metadata.
func (c *Client) GetRepo(ctx context.Context, owner, name string) (*Repo, error) {
	var out Repo
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(name))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRepo creates a repository under the authenticated account.
func (c *Client) CreateRepo(ctx context.Context, name string, private bool) (*Repo, error) {
	body := map[string]any{
		"name":      name,
		"private":   private,
		"auto_init": false,
	}
	var out Repo
	if err := c.do(ctx, http.MethodPost, "/user/repos", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnsureRepo creates the repository, absorbing the race where a prior run
// already created it: on "already exists" the existing repository is fetched
// and returned instead of failing the job.
func (c *Client) EnsureRepo(ctx context.Context, owner, name string, private bool) (*Repo, error) {
	repo, err := c.CreateRepo(ctx, name, private)
	if err == nil {
		return repo, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.AlreadyExists() {
		return c.GetRepo(ctx, owner, name)
	}
	return nil, err
}
