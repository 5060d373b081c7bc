package contentstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TreeEntry describes one path in a tree. A nil SHA expresses a deletion,
// which is how the commit assembler renders path renames (delete old path,
// add new path).
type TreeEntry struct {
	Path string  `json:"path"`
	Mode string  `json:"mode"`
	Type string  `json:"type"`
	SHA  *string `json:"sha"`
}

// BlobEntry returns an add entry for a regular file blob.
func BlobEntry(path, sha string) TreeEntry {
	return TreeEntry{Path: path, Mode: "100644", Type: "blob", SHA: &sha}
}

// DeleteEntry returns a deletion entry for a path.
func DeleteEntry(path string) TreeEntry {
	return TreeEntry{Path: path, Mode: "100644", Type: "blob", SHA: nil}
}

// Commit is the subset of commit metadata the engine consumes.
type Commit struct {
	SHA     string `json:"sha"`
	TreeSHA string
}

// CreateBlob uploads content as a base64-encoded blob and returns its object
// id. Identical bytes always hash to the same id, so re-uploading after a
// crash is harmless.
func (c *Client) CreateBlob(ctx context.Context, owner, repo string, content []byte) (string, error) {
	body := map[string]string{
		"content":  base64.StdEncoding.EncodeToString(content),
		"encoding": "base64",
	}
	var out struct {
		SHA string `json:"sha"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/blobs", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
			return "", fmt.Errorf("blob rejected by store (oversized or malformed): %w", err)
		}
		return "", err
	}
	if out.SHA == "" {
		return "", errors.New("content store: blob response missing sha")
	}
	return out.SHA, nil
}

// CreateTree builds a tree from entries. An empty baseTree starts from an
// empty tree, which only happens for brand-new repositories.
func (c *Client) CreateTree(ctx context.Context, owner, repo string, entries []TreeEntry, baseTree string) (string, error) {
	if len(entries) == 0 {
		return "", errors.New("content store: tree requires at least one entry")
	}
	body := map[string]any{"tree": entries}
	if baseTree != "" {
		body["base_tree"] = baseTree
	}
	var out struct {
		SHA string `json:"sha"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/trees", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	if out.SHA == "" {
		return "", errors.New("content store: tree response missing sha")
	}
	return out.SHA, nil
}

// CreateCommit records a commit pointing at tree. Empty parents denotes the
// first commit on an unborn branch.
func (c *Client) CreateCommit(ctx context.Context, owner, repo, message, tree string, parents []string) (string, error) {
	if parents == nil {
		parents = []string{}
	}
	body := map[string]any{
		"message": message,
		"tree":    tree,
		"parents": parents,
	}
	if c.authorName != "" {
		body["author"] = map[string]string{
			"name":  c.authorName,
			"email": c.authorEmail,
			"date":  time.Now().UTC().Format(time.RFC3339),
		}
	}
	var out struct {
		SHA string `json:"sha"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/commits", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	if out.SHA == "" {
		return "", errors.New("content store: commit response missing sha")
	}
	return out.SHA, nil
}

// GetRef resolves a branch to its tip commit id. A missing ref surfaces as
// an APIError with NotFound() true (unborn branch).
func (c *Client) GetRef(ctx context.Context, owner, repo, branch string) (string, error) {
	var out struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	if out.Object.SHA == "" {
		return "", errors.New("content store: ref response missing sha")
	}
	return out.Object.SHA, nil
}

// GetCommit fetches a commit and its tree id.
func (c *Client) GetCommit(ctx context.Context, owner, repo, sha string) (*Commit, error) {
	var out struct {
		SHA  string `json:"sha"`
		Tree struct {
			SHA string `json:"sha"`
		} `json:"tree"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/commits/%s", url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(sha))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &Commit{SHA: out.SHA, TreeSHA: out.Tree.SHA}, nil
}

// CreateRef creates a branch pointing at sha (first commit on the branch).
func (c *Client) CreateRef(ctx context.Context, owner, repo, branch, sha string) error {
	body := map[string]string{
		"ref": "refs/heads/" + branch,
		"sha": sha,
	}
	path := fmt.Sprintf("/repos/%s/%s/git/refs", url.PathEscape(owner), url.PathEscape(repo))
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// UpdateRef fast-forwards a branch to sha. Force is never set: a
// non-fast-forward update must fail so the assembler can refresh the parent
// and rebuild rather than overwrite history.
func (c *Client) UpdateRef(ctx context.Context, owner, repo, branch, sha string) error {
	body := map[string]any{
		"sha":   sha,
		"force": false,
	}
	path := fmt.Sprintf("/repos/%s/%s/git/refs/heads/%s", url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch))
	return c.do(ctx, http.MethodPatch, path, body, nil)
}
