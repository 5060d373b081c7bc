package engine_test

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"gradevault/internal/config"
	"gradevault/internal/contentstore"
	"gradevault/internal/engine"
	"gradevault/internal/enumerator"
	"gradevault/internal/fetch"
	"gradevault/internal/jobstore"
	"gradevault/internal/logging"
	"gradevault/internal/testsupport"
)

// fakeObjects is a scripted in-memory content store.
type fakeObjects struct {
	mu sync.Mutex

	tip    string            // current branch tip, "" means unborn
	treeOf map[string]string // commit sha -> tree sha

	blobs     map[string]string // content hash -> blob sha
	blobCalls int
	blobHook  func(call int, content []byte) error

	updateRefCalls int
	refHook        func(call int) error

	lastEntries  []contentstore.TreeEntry
	lastBaseTree string
	lastParents  []string
	lastMessage  string

	createdRefs []string
	updatedRefs []string
	treeSeq     int
	commitSeq   int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{
		treeOf: make(map[string]string),
		blobs:  make(map[string]string),
	}
}

func (f *fakeObjects) EnsureRepo(ctx context.Context, owner, name string, private bool) (*contentstore.Repo, error) {
	repo := &contentstore.Repo{Name: name, DefaultBranch: "main", Private: private}
	repo.Owner.Login = owner
	return repo, nil
}

func (f *fakeObjects) GetRef(ctx context.Context, owner, repo, branch string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tip == "" {
		return "", &contentstore.APIError{StatusCode: http.StatusNotFound, Message: "Not Found"}
	}
	return f.tip, nil
}

func (f *fakeObjects) GetCommit(ctx context.Context, owner, repo, sha string) (*contentstore.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &contentstore.Commit{SHA: sha, TreeSHA: f.treeOf[sha]}, nil
}

func (f *fakeObjects) CreateBlob(ctx context.Context, owner, repo string, content []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobCalls++
	if f.blobHook != nil {
		if err := f.blobHook(f.blobCalls, content); err != nil {
			return "", err
		}
	}
	key := fmt.Sprintf("%x", sha1.Sum(content))
	if sha, ok := f.blobs[key]; ok {
		return sha, nil
	}
	sha := "blob-" + key[:12]
	f.blobs[key] = sha
	return sha, nil
}

func (f *fakeObjects) CreateTree(ctx context.Context, owner, repo string, entries []contentstore.TreeEntry, baseTree string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastEntries = append([]contentstore.TreeEntry(nil), entries...)
	f.lastBaseTree = baseTree
	f.treeSeq++
	return fmt.Sprintf("tree-%d", f.treeSeq), nil
}

func (f *fakeObjects) CreateCommit(ctx context.Context, owner, repo, message, tree string, parents []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastParents = append([]string(nil), parents...)
	f.lastMessage = message
	f.commitSeq++
	sha := fmt.Sprintf("commit-%d", f.commitSeq)
	f.treeOf[sha] = tree
	return sha, nil
}

func (f *fakeObjects) CreateRef(ctx context.Context, owner, repo, branch, sha string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tip != "" {
		return &contentstore.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "Reference already exists"}
	}
	f.tip = sha
	f.createdRefs = append(f.createdRefs, sha)
	return nil
}

func (f *fakeObjects) UpdateRef(ctx context.Context, owner, repo, branch, sha string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateRefCalls++
	if f.refHook != nil {
		if err := f.refHook(f.updateRefCalls); err != nil {
			return err
		}
	}
	f.tip = sha
	f.updatedRefs = append(f.updatedRefs, sha)
	return nil
}

// seedHistory installs an existing branch tip with a base tree, as if
// a previous archive run already committed.
func (f *fakeObjects) seedHistory() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tip = "commit-base"
	f.treeOf["commit-base"] = "tree-base"
}

// fakeProxy pops scripted responses per URL, falling back to a default.
type fakeProxy struct {
	mu        sync.Mutex
	responses map[string][]*fetch.Response
	fallback  func(req fetch.Request) *fetch.Response
	requests  []string

	// fetchHook runs while a request is in flight, before the
	// response is produced. Tests use it to mutate job state at the
	// transfer point.
	fetchHook func(req fetch.Request)
}

func newFakeProxy() *fakeProxy {
	return &fakeProxy{responses: make(map[string][]*fetch.Response)}
}

func (p *fakeProxy) queue(url string, resp *fetch.Response) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses[url] = append(p.responses[url], resp)
}

func (p *fakeProxy) Fetch(ctx context.Context, req fetch.Request) (*fetch.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req.URL)
	if p.fetchHook != nil {
		p.fetchHook(req)
	}
	if queued := p.responses[req.URL]; len(queued) > 0 {
		resp := queued[0]
		p.responses[req.URL] = queued[1:]
		return resp, nil
	}
	if p.fallback != nil {
		return p.fallback(req), nil
	}
	return pdfResult(), nil
}

func pdfResult() *fetch.Response {
	return &fetch.Response{
		Kind:        fetch.KindResult,
		Bytes:       []byte("%PDF-1.7 fake submission body"),
		ContentType: "application/pdf",
	}
}

// manualScheduler records deferred wakes instead of arming timers.
type manualScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
}

func (s *manualScheduler) ScheduleAfter(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.fns = append(s.fns, fn)
}

func (s *manualScheduler) lastDelay() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.delays) == 0 {
		return 0, false
	}
	return s.delays[len(s.delays)-1], true
}

type harness struct {
	cfg       *config.Config
	store     *jobstore.Store
	objects   *fakeObjects
	proxy     *fakeProxy
	scheduler *manualScheduler
	engine    *engine.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	objects := newFakeObjects()
	proxy := newFakeProxy()
	scheduler := &manualScheduler{}
	eng := engine.New(cfg, store, objects, proxy, logging.NewNop(),
		engine.WithScheduler(scheduler),
	)
	return &harness{cfg: cfg, store: store, objects: objects, proxy: proxy, scheduler: scheduler, engine: eng}
}

func (h *harness) startJob(t *testing.T, entries []enumerator.Entry) *jobstore.Job {
	t.Helper()
	job, err := h.engine.StartJob(context.Background(), engine.JobParams{
		CourseID:   "course-42",
		CourseName: "Systems Programming",
	}, entries)
	if err != nil {
		t.Fatalf("StartJob failed: %v", err)
	}
	return job
}

// drive calls Advance until the job reaches a terminal state or the
// step budget runs out.
func (h *harness) drive(t *testing.T, steps int) *jobstore.Job {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < steps; i++ {
		if err := h.engine.Advance(ctx); err != nil {
			// Job-level failures are persisted; keep the returned
			// error available through the job record instead.
			break
		}
		job, err := h.store.ActiveJob(ctx)
		if err != nil {
			t.Fatalf("ActiveJob failed: %v", err)
		}
		if job == nil || job.Status.Terminal() {
			return job
		}
	}
	job, err := h.store.ActiveJob(ctx)
	if err != nil {
		t.Fatalf("ActiveJob failed: %v", err)
	}
	return job
}

func manifest(n int) []enumerator.Entry {
	entries := make([]enumerator.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, enumerator.Entry{
			URL:  fmt.Sprintf("https://gs.example.com/submissions/%d", i+1),
			Path: fmt.Sprintf("hw%d/submission.pdf", i+1),
		})
	}
	return entries
}
