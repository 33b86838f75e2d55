// Package ghosttest provides an in-memory Ghost Admin API for tests.
package ghosttest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// AdminKey is a valid Admin API key accepted by the server.
var AdminKey = "6489c0a7e1f2a3b4c5d6e7f8:" + hex.EncodeToString([]byte("ghosttest-secret-0123456789abcdef"))

// TimeFormat is the updated_at layout Ghost uses.
const TimeFormat = "2006-01-02T15:04:05.000Z"

const apiPrefix = "/ghost/api/admin"

// Server is a fake Ghost site holding posts in memory.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	posts  map[string]map[string]any
	clock  time.Time
	nextID int

	// Requests records "METHOD path?query" for every request served.
	Requests []string
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		posts: make(map[string]map[string]any),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// AddPost stores a post directly, bypassing the API. Missing id, slug and
// updated_at are filled in. It returns the stored id.
func (s *Server) AddPost(fields map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	post := s.newPost(fields)
	return post["id"].(string)
}

// Post returns a copy of the stored post.
func (s *Server) Post(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, false
	}
	return clone(p), true
}

// Touch edits a post as if in Ghost admin, advancing updated_at.
func (s *Server) Touch(id string, changes map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.posts[id]
	for k, v := range changes {
		p[k] = v
	}
	p["updated_at"] = s.tick()
}

func (s *Server) tick() string {
	s.clock = s.clock.Add(time.Second)
	return s.clock.Format(TimeFormat)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func (s *Server) newPost(fields map[string]any) map[string]any {
	post := clone(fields)
	if _, ok := post["id"]; !ok {
		s.nextID++
		post["id"] = fmt.Sprintf("%024x", s.nextID)
	}
	if _, ok := post["slug"]; !ok {
		title, _ := post["title"].(string)
		post["slug"] = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	}
	if _, ok := post["status"]; !ok {
		post["status"] = "draft"
	}
	if _, ok := post["html"]; !ok {
		post["html"] = ""
	}
	if _, ok := post["lexical"]; !ok {
		post["lexical"] = emptyLexical
	}
	if _, ok := post["updated_at"]; !ok {
		post["updated_at"] = s.tick()
	}
	post["uuid"] = "uuid-" + post["id"].(string)
	s.posts[post["id"].(string)] = post
	return post
}

const emptyLexical = `{"root":{"children":[],"direction":null,"format":"","indent":0,"type":"root","version":1}}`

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, r.Method+" "+r.URL.RequestURI())

	if !strings.HasPrefix(r.Header.Get("Authorization"), "Ghost ") {
		writeError(w, http.StatusUnauthorized, "UnauthorizedError", "Authorization header format is \"Authorization: Ghost [token]\"")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, apiPrefix)
	q := r.URL.Query()
	switch {
	case path == "/site/" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"site": map[string]any{
			"title": "Test Blog", "url": s.URL + "/", "version": "5.80",
		}})
	case path == "/posts/" && r.Method == http.MethodGet:
		s.browse(w, q.Get("formats"), q.Get("fields"))
	case path == "/posts/" && r.Method == http.MethodPost:
		s.create(w, r)
	case strings.HasPrefix(path, "/posts/slug/") && r.Method == http.MethodGet:
		slug := strings.Trim(strings.TrimPrefix(path, "/posts/slug/"), "/")
		for _, p := range s.posts {
			if p["slug"] == slug {
				writePosts(w, http.StatusOK, view(p, q.Get("formats"), ""))
				return
			}
		}
		writeError(w, http.StatusNotFound, "NotFoundError", "Post not found.")
	case strings.HasPrefix(path, "/posts/"):
		id := strings.Trim(strings.TrimPrefix(path, "/posts/"), "/")
		p, ok := s.posts[id]
		if !ok {
			writeError(w, http.StatusNotFound, "NotFoundError", "Post not found.")
			return
		}
		switch r.Method {
		case http.MethodGet:
			writePosts(w, http.StatusOK, view(p, q.Get("formats"), ""))
		case http.MethodPut:
			s.update(w, r, p)
		case http.MethodDelete:
			delete(s.posts, id)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		writeError(w, http.StatusNotFound, "NotFoundError", "Resource not found")
	}
}

func (s *Server) browse(w http.ResponseWriter, formats, fields string) {
	ids := make([]string, 0, len(s.posts))
	for id := range s.posts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, view(s.posts[id], formats, fields))
	}
	writePosts(w, http.StatusOK, out...)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	in, ok := readPost(w, r)
	if !ok {
		return
	}
	if title, _ := in["title"].(string); title == "" {
		writeError(w, http.StatusUnprocessableEntity, "ValidationError", "Value in [posts.title] cannot be blank.")
		return
	}
	delete(in, "updated_at")
	post := s.newPost(in)
	writePosts(w, http.StatusCreated, view(post, r.URL.Query().Get("formats"), ""))
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, current map[string]any) {
	in, ok := readPost(w, r)
	if !ok {
		return
	}
	if in["updated_at"] != current["updated_at"] {
		writeErrorContext(w, http.StatusConflict, "UpdateCollisionError", "Saving failed! Someone else is editing this post.",
			"Data has been changed since the last read.")
		return
	}
	for k, v := range in {
		if k == "id" || k == "uuid" {
			continue
		}
		current[k] = v
	}
	current["updated_at"] = s.tick()
	writePosts(w, http.StatusOK, view(current, r.URL.Query().Get("formats"), ""))
}

func readPost(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var body struct {
		Posts []map[string]any `json:"posts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Posts) != 1 {
		writeError(w, http.StatusBadRequest, "BadRequestError", "Request body must contain exactly one post.")
		return nil, false
	}
	return body.Posts[0], true
}

// view mimics Ghost's response shaping: content fields only when named in
// formats (html by default), and only the listed fields when fields is set.
func view(p map[string]any, formats, fields string) map[string]any {
	if formats == "" {
		formats = "html"
	}
	out := clone(p)
	for _, f := range []string{"html", "lexical"} {
		if !strings.Contains(formats, f) {
			delete(out, f)
		}
	}
	if fields != "" {
		keep := map[string]bool{}
		for _, f := range strings.Split(fields, ",") {
			keep[strings.TrimSpace(f)] = true
		}
		for k := range out {
			if !keep[k] {
				delete(out, k)
			}
		}
	}
	return out
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func writePosts(w http.ResponseWriter, status int, posts ...map[string]any) {
	writeJSON(w, status, map[string]any{"posts": posts})
}

func writeError(w http.ResponseWriter, status int, typ, msg string) {
	writeErrorContext(w, status, typ, msg, "")
}

func writeErrorContext(w http.ResponseWriter, status int, typ, msg, context string) {
	e := map[string]any{"type": typ, "message": msg}
	if context != "" {
		e["context"] = context
	}
	writeJSON(w, status, map[string]any{"errors": []any{e}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
