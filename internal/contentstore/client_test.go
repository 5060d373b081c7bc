package contentstore_test

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gradevault/internal/contentstore"
	"gradevault/internal/testsupport"
)

func newClient(t *testing.T, handler http.Handler) *contentstore.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := testsupport.NewConfig(t, testsupport.WithStoreBaseURL(server.URL))
	return contentstore.NewClient(cfg)
}

func TestCreateBlobContentAddressed(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/archive-owner/repo/git/blobs" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var body struct {
			Content  string `json:"content"`
			Encoding string `json:"encoding"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		raw, err := base64.StdEncoding.DecodeString(body.Content)
		if err != nil {
			t.Fatalf("decode content: %v", err)
		}
		// Hash the bytes so identical payloads produce identical ids.
		sha := fmt.Sprintf("%x", sha1.Sum(raw))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"sha": sha})
	})
	client := newClient(t, handler)

	ctx := context.Background()
	first, err := client.CreateBlob(ctx, "archive-owner", "repo", []byte("same bytes"))
	if err != nil {
		t.Fatalf("CreateBlob failed: %v", err)
	}
	second, err := client.CreateBlob(ctx, "archive-owner", "repo", []byte("same bytes"))
	if err != nil {
		t.Fatalf("CreateBlob failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical ids for identical bytes: %q vs %q", first, second)
	}
}

func TestAPIErrorCarriesRetryAfter(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "15")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "API rate limit exceeded"})
	})
	client := newClient(t, handler)

	_, err := client.CreateBlob(context.Background(), "archive-owner", "repo", []byte("x"))
	var apiErr *contentstore.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.RateLimited() {
		t.Fatalf("expected rate limit classification: %+v", apiErr)
	}
	if apiErr.RetryAfter != 15*time.Second {
		t.Fatalf("unexpected retry delay: %v", apiErr.RetryAfter)
	}
}

func TestCreateTreeEncodesDeletions(t *testing.T) {
	var captured []map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			BaseTree string           `json:"base_tree"`
			Tree     []map[string]any `json:"tree"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.BaseTree != "base123" {
			t.Fatalf("unexpected base tree %q", body.BaseTree)
		}
		captured = body.Tree
		json.NewEncoder(w).Encode(map[string]string{"sha": "tree456"})
	})
	client := newClient(t, handler)

	entries := []contentstore.TreeEntry{
		contentstore.BlobEntry("hw1/report.pdf", "blob1"),
		contentstore.DeleteEntry("hw1/report"),
	}
	sha, err := client.CreateTree(context.Background(), "archive-owner", "repo", entries, "base123")
	if err != nil {
		t.Fatalf("CreateTree failed: %v", err)
	}
	if sha != "tree456" {
		t.Fatalf("unexpected tree sha %q", sha)
	}
	if len(captured) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(captured))
	}
	if captured[0]["sha"] != "blob1" {
		t.Fatalf("add entry lost sha: %v", captured[0])
	}
	if sha, present := captured[1]["sha"]; !present || sha != nil {
		t.Fatalf("delete entry must carry explicit null sha: %v", captured[1])
	}
}

func TestUpdateRefNeverForces(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SHA   string `json:"sha"`
			Force bool   `json:"force"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Force {
			t.Fatal("force must never be set")
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "Update is not a fast forward"})
	})
	client := newClient(t, handler)

	err := client.UpdateRef(context.Background(), "archive-owner", "repo", "main", "new-sha")
	var apiErr *contentstore.APIError
	if !errors.As(err, &apiErr) || !apiErr.FastForwardRejected() {
		t.Fatalf("expected fast-forward rejection, got %v", err)
	}
}

func TestEnsureRepoAbsorbsExistsRace(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/user/repos":
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"message": "name already exists on this account"})
		case r.Method == http.MethodGet && r.URL.Path == "/repos/archive-owner/course-archive":
			json.NewEncoder(w).Encode(map[string]any{
				"name":           "course-archive",
				"default_branch": "main",
				"private":        true,
				"owner":          map[string]string{"login": "archive-owner"},
			})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	client := newClient(t, handler)

	repo, err := client.EnsureRepo(context.Background(), "archive-owner", "course-archive", true)
	if err != nil {
		t.Fatalf("EnsureRepo failed: %v", err)
	}
	if repo.Name != "course-archive" || repo.Owner.Login != "archive-owner" {
		t.Fatalf("unexpected repo: %+v", repo)
	}
}

func TestGetRefNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
	})
	client := newClient(t, handler)

	_, err := client.GetRef(context.Background(), "archive-owner", "repo", "main")
	var apiErr *contentstore.APIError
	if !errors.As(err, &apiErr) || !apiErr.NotFound() {
		t.Fatalf("expected not-found APIError, got %v", err)
	}
}
