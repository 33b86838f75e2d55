package ops

import (
	"context"

	"github.com/hpungsan/ghostmcp/internal/ghost"
)

// Fields returned by Browse. Content is left out to keep listings small.
const (
	browseFields  = "id,slug,title,url,status,visibility,featured,published_at,updated_at,excerpt,feature_image"
	browseInclude = "primary_author,primary_tag"
)

// BrowseInput contains parameters for the Browse operation.
type BrowseInput struct {
	Filter string // Ghost NQL, e.g. "status:draft+tag:news"
	Order  string // e.g. "published_at desc"
	Limit  int    // default: 15, max: 100
	Page   int    // default: 1
}

// BrowseOutput contains the result of the Browse operation.
type BrowseOutput struct {
	Posts []ghost.Post `json:"posts"`
	Limit int          `json:"limit"`
	Page  int          `json:"page"`
}

// Browse lists posts without their content.
func Browse(ctx context.Context, store PostStore, input BrowseInput) (*BrowseOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultBrowseLimit
	}
	if limit > MaxBrowseLimit {
		limit = MaxBrowseLimit
	}
	page := max(input.Page, 1)

	posts, err := store.BrowsePosts(ctx, ghost.Params{
		Fields:  browseFields,
		Include: browseInclude,
		Filter:  input.Filter,
		Order:   input.Order,
		Limit:   itoa(limit),
		Page:    page,
	})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []ghost.Post{}
	}

	return &BrowseOutput{Posts: posts, Limit: limit, Page: page}, nil
}
