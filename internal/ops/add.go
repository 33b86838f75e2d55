package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/ghostmcp/internal/errors"
	"github.com/hpungsan/ghostmcp/internal/fileref"
	"github.com/hpungsan/ghostmcp/internal/ghost"
)

// AddInput contains parameters for the Add operation.
type AddInput struct {
	Title string // required
	ContentInput
	Status        string // default: draft
	Tags          []string
	CustomExcerpt *string
	FeatureImage  *string
	PublishedAt   *string
	Visibility    *string
	Featured      *bool
}

// Add creates a post. Markdown is rendered to html before upload.
func Add(ctx context.Context, store PostStore, resolver *fileref.Resolver, input AddInput) (ghost.Post, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.NewInvalidRequest("title is required")
	}

	post := ghost.Post{"title": title}
	if input.Status != "" {
		if err := validStatus(input.Status); err != nil {
			return nil, err
		}
		post["status"] = input.Status
	}
	if len(input.Tags) > 0 {
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
	return store.AddPost(ctx, post, params)
}

func setOptional(post ghost.Post, key string, v *string) {
	if v != nil {
		post[key] = *v
	}
}
