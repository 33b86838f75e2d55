package postsync

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/ghostmcp/internal/errors"
	"github.com/hpungsan/ghostmcp/internal/ghost"
	"github.com/hpungsan/ghostmcp/internal/logging"
)

// fakeStore is an in-memory Store. Posts hold both lexical and html; reads
// return only the content fields named in params.Formats.
type fakeStore struct {
	mu        sync.Mutex
	posts     map[string]ghost.Post
	edits     []fakeEdit
	reads     []string
	browseErr error
	readErr   map[string]error
	clock     time.Time
}

type fakeEdit struct {
	ID     string
	Post   ghost.Post
	Params ghost.Params
}

func newFakeStore(posts ...ghost.Post) *fakeStore {
	s := &fakeStore{
		posts:   make(map[string]ghost.Post),
		readErr: make(map[string]error),
		clock:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, p := range posts {
		s.posts[p.ID()] = p
	}
	return s
}

func view(p ghost.Post, formats string) ghost.Post {
	out := p.Without()
	for _, f := range []string{ghost.FieldLexical, ghost.FieldHTML} {
		if !strings.Contains(formats, f) {
			delete(out, f)
		}
	}
	return out
}

func (s *fakeStore) ReadPost(_ context.Context, id string, params ghost.Params) (ghost.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, id)
	if err := s.readErr[id]; err != nil {
		return nil, err
	}
	p, ok := s.posts[id]
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	return view(p, params.Formats), nil
}

func (s *fakeStore) BrowsePosts(_ context.Context, params ghost.Params) ([]ghost.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browseErr != nil {
		return nil, s.browseErr
	}
	ids := make([]string, 0, len(s.posts))
	for id := range s.posts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]ghost.Post, 0, len(ids))
	for _, id := range ids {
		out = append(out, view(s.posts[id], params.Formats))
	}
	return out, nil
}

func (s *fakeStore) EditPost(_ context.Context, id string, post ghost.Post, params ghost.Params) (ghost.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.posts[id]
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	if post.UpdatedAt() != current.UpdatedAt() {
		return nil, errors.NewConflict("Saving failed! Someone else is editing this post.")
	}
	s.edits = append(s.edits, fakeEdit{ID: id, Post: post, Params: params})

	next := current.Without()
	for k, v := range post {
		next[k] = v
	}
	s.clock = s.clock.Add(time.Minute)
	next["updated_at"] = s.clock.Format("2006-01-02T15:04:05.000Z")
	s.posts[id] = next
	return view(next, params.Formats), nil
}

// setRemote changes a remote post as if edited in Ghost admin.
func (s *fakeStore) setRemote(id string, changes map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.posts[id].Without()
	for k, v := range changes {
		p[k] = v
	}
	s.posts[id] = p
}

const (
	ts1 = "2024-01-01T10:00:00.000Z"
	ts2 = "2024-01-02T10:00:00.000Z"
)

func lexicalDoc(text string) string {
	return `{"root":{"children":[{"children":[{"detail":0,"format":0,"mode":"normal","style":"","text":"` +
		text + `","type":"text","version":1}],"direction":"ltr","format":"","indent":0,"type":"paragraph","version":1}],` +
		`"direction":"ltr","format":"","indent":0,"type":"root","version":1}}`
}

func testPost(id, slug, title string) ghost.Post {
	return ghost.Post{
		"id":         id,
		"uuid":       "uuid-" + id,
		"slug":       slug,
		"title":      title,
		"status":     "draft",
		"featured":   false,
		"tags":       []any{map[string]any{"id": "t1", "name": "News"}},
		"updated_at": ts1,
		"lexical":    lexicalDoc("Body of " + title),
		"html":       "<h1>" + title + "</h1>\n<p>Some <strong>bold</strong> text.</p>",
	}
}

func newTestSyncer(t *testing.T, store Store) *Syncer {
	t.Helper()
	return New(store, t.TempDir(), logging.Discard())
}
