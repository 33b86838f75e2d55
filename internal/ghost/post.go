package ghost

import (
	"strconv"
)

// Content field names on a Ghost post.
const (
	FieldLexical = "lexical"
	FieldHTML    = "html"
)

// Post is a Ghost post as returned by the Admin API.
// Fields the client does not know about round-trip untouched.
type Post map[string]any

// ID returns the server-assigned post id.
func (p Post) ID() string { return p.str("id") }

// Slug returns the post slug.
func (p Post) Slug() string { return p.str("slug") }

// Title returns the post title.
func (p Post) Title() string { return p.str("title") }

// Status returns the post status (draft, published, scheduled).
func (p Post) Status() string { return p.str("status") }

// UpdatedAt returns the last-modified timestamp exactly as Ghost sent it.
func (p Post) UpdatedAt() string { return p.str("updated_at") }

func (p Post) str(key string) string {
	v, _ := p[key].(string)
	return v
}

// Has reports whether key is present, even with a null value.
func (p Post) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Content returns the string value of a content field. Null or missing is empty.
func (p Post) Content(field string) string {
	return p.str(field)
}

// Without returns a shallow copy of p with the given keys removed.
func (p Post) Without(keys ...string) Post {
	out := make(Post, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Params are the query parameters accepted by the posts endpoints.
// Zero values are omitted from the request.
type Params struct {
	Formats string // formats=lexical|html
	Source  string // source=html on add/edit
	Fields  string
	Include string
	Filter  string
	Order   string
	Limit   string // a number or "all"
	Page    int
}

func (p Params) query() map[string]string {
	q := make(map[string]string)
	set := func(k, v string) {
		if v != "" {
			q[k] = v
		}
	}
	set("formats", p.Formats)
	set("source", p.Source)
	set("fields", p.Fields)
	set("include", p.Include)
	set("filter", p.Filter)
	set("order", p.Order)
	set("limit", p.Limit)
	if p.Page > 0 {
		q["page"] = strconv.Itoa(p.Page)
	}
	return q
}

// postsEnvelope is the request and response wrapper used by the posts endpoints.
type postsEnvelope struct {
	Posts []Post `json:"posts"`
}

// Site is the subset of /site/ the server exposes as blog info.
type Site map[string]any

type siteEnvelope struct {
	Site Site `json:"site"`
}
