package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/ghostmcp/internal/errors"
	"github.com/hpungsan/ghostmcp/internal/fileref"
	"github.com/hpungsan/ghostmcp/internal/ghost"
)

// EditInput contains parameters for the Edit operation.
// Nil fields are left unchanged.
type EditInput struct {
	ID        string // required
	UpdatedAt string // required, the updated_at last read from Ghost
	Title     *string
	ContentInput
	Status        *string
	Tags          []string
	CustomExcerpt *string
	FeatureImage  *string
	PublishedAt   *string
	Visibility    *string
	Featured      *bool
}

// Edit updates a post. Ghost rejects the update with CONFLICT when
// UpdatedAt is stale.
func Edit(ctx context.Context, store PostStore, resolver *fileref.Resolver, input EditInput) (ghost.Post, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if strings.TrimSpace(input.UpdatedAt) == "" {
		return nil, errors.NewInvalidRequest("updated_at is required; read the post first")
	}

	post := ghost.Post{"updated_at": input.UpdatedAt}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errors.NewInvalidRequest("title must not be empty")
		}
		post["title"] = title
	}
	if input.Status != nil {
		if err := validStatus(*input.Status); err != nil {
			return nil, err
		}
		post["status"] = *input.Status
	}
	if input.Tags != nil {
		post["tags"] = tagsValue(input.Tags)
	}
	setOptional(post, "custom_excerpt", input.CustomExcerpt)
	setOptional(post, "feature_image", input.FeatureImage)
	setOptional(post, "published_at", input.PublishedAt)
	setOptional(post, "visibility", input.Visibility)
	if input.Featured != nil {
		post["featured"] = *input.Featured
	}

	params, err := input.ContentInput.apply(resolver, post)
	if err != nil {
		return nil, err
	}
	return store.EditPost(ctx, id, post, params)
}
