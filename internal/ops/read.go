package ops

import (
	"context"
	"strconv"

	"github.com/hpungsan/ghostmcp/internal/errors"
	"github.com/hpungsan/ghostmcp/internal/ghost"
)

// ReadInput contains parameters for the Read operation.
type ReadInput struct {
	ID      string
	Slug    string
	Formats string // "html", "lexical" or both comma-separated; default both
}

// Read retrieves one post by id or slug, with tags and authors.
func Read(ctx context.Context, store PostStore, input ReadInput) (ghost.Post, error) {
	addr, err := ValidateAddress(input.ID, input.Slug)
	if err != nil {
		return nil, err
	}
	formats, err := normalizeFormats(input.Formats)
	if err != nil {
		return nil, err
	}

	params := ghost.Params{Formats: formats, Include: "tags,authors"}
	if addr.ByID {
		return store.ReadPost(ctx, addr.ID, params)
	}
	return store.ReadPostBySlug(ctx, addr.Slug, params)
}

func normalizeFormats(s string) (string, error) {
	switch s {
	case "":
		return "html,lexical", nil
	case "html", "lexical", "html,lexical", "lexical,html":
		return s, nil
	default:
		return "", errors.NewInvalidRequest("formats must be html, lexical or html,lexical")
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
