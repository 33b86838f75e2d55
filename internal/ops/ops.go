package ops

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hpungsan/ghostmcp/internal/errors"
	"github.com/hpungsan/ghostmcp/internal/fileref"
	"github.com/hpungsan/ghostmcp/internal/ghost"
	"github.com/hpungsan/ghostmcp/internal/postsync"
)

// Pagination limits
const (
	DefaultBrowseLimit  = 15
	MaxBrowseLimit      = 100
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// PostStore is the Ghost Admin API surface used by the post operations.
// *ghost.Client satisfies it.
type PostStore interface {
	postsync.Store
	ReadPostBySlug(ctx context.Context, slug string, params ghost.Params) (ghost.Post, error)
	AddPost(ctx context.Context, post ghost.Post, params ghost.Params) (ghost.Post, error)
	DeletePost(ctx context.Context, id string) error
	Site(ctx context.Context) (ghost.Site, error)
}

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Address represents a validated post address.
type Address struct {
	ByID bool
	ID   string
	Slug string
}

// ValidateAddress validates addressing parameters and returns a normalized Address.
// Exactly one of id or slug must be set.
func ValidateAddress(id, slug string) (*Address, error) {
	id = strings.TrimSpace(id)
	slug = strings.TrimSpace(slug)

	if id != "" && slug != "" {
		return nil, errors.NewAmbiguousAddressing()
	}
	if id == "" && slug == "" {
		return nil, errors.NewInvalidRequest("must specify either id or slug")
	}
	if id != "" {
		return &Address{ByID: true, ID: id}, nil
	}
	return &Address{Slug: slug}, nil
}

// ContentInput is the optional post body shared by Add and Edit.
// Each field may use the file:// marker. At most one may be set.
type ContentInput struct {
	HTML     *string
	Lexical  *string
	Markdown *string
}

// apply resolves file markers, converts markdown, and sets the content field
// on post. It returns the request parameters the content needs.
func (c ContentInput) apply(resolver *fileref.Resolver, post ghost.Post) (ghost.Params, error) {
	set := 0
	for _, f := range []*string{c.HTML, c.Lexical, c.Markdown} {
		if f != nil {
			set++
		}
	}
	if set > 1 {
		return ghost.Params{}, errors.NewInvalidRequest("specify at most one of html, lexical or markdown")
	}
	if set == 0 {
		return ghost.Params{}, nil
	}

	if err := resolver.ResolveFields(c.HTML, c.Lexical, c.Markdown); err != nil {
		return ghost.Params{}, err
	}

	switch {
	case c.Lexical != nil:
		if !json.Valid([]byte(*c.Lexical)) {
			return ghost.Params{}, errors.NewInvalidRequest("lexical must be a JSON document")
		}
		post[ghost.FieldLexical] = *c.Lexical
		return ghost.Params{Formats: ghost.FieldLexical}, nil
	case c.Markdown != nil:
		html, err := postsync.MarkdownToHTML(*c.Markdown)
		if err != nil {
			return ghost.Params{}, err
		}
		post[ghost.FieldHTML] = html
	default:
		post[ghost.FieldHTML] = *c.HTML
	}
	return ghost.Params{Source: "html", Formats: ghost.FieldHTML}, nil
}

// tagsValue converts tag names into the shape Ghost accepts on write.
func tagsValue(names []string) []any {
	tags := make([]any, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			tags = append(tags, map[string]any{"name": n})
		}
	}
	return tags
}

// validStatus checks a post status value.
func validStatus(s string) error {
	switch s {
	case "draft", "published", "scheduled", "sent":
		return nil
	default:
		return errors.NewInvalidRequest("status must be one of draft, published, scheduled, sent")
	}
}
