package ghost

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hpungsan/ghostmcp/internal/errors"
)

const (
	postsPath      = "/posts/"
	postPath       = "/posts/%s/"
	postBySlugPath = "/posts/slug/%s/"
	sitePath       = "/site/"
)

// BrowsePosts lists posts. Pass Limit "all" to fetch every post in one call.
func (c *Client) BrowsePosts(ctx context.Context, params Params) ([]Post, error) {
	var body postsEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params.query()).
		SetSuccessResult(&body).
		Get(postsPath)

	if err := handleAPIError(resp, err, "browse posts"); err != nil {
		return nil, err
	}
	if body.Posts == nil {
		return []Post{}, nil
	}
	return body.Posts, nil
}

// ReadPost fetches one post by id. Unknown ids fail with NOT_FOUND.
func (c *Client) ReadPost(ctx context.Context, id string, params Params) (Post, error) {
	return c.readOne(ctx, fmt.Sprintf(postPath, url.PathEscape(id)), params, "read post "+id)
}

// ReadPostBySlug fetches one post by slug.
func (c *Client) ReadPostBySlug(ctx context.Context, slug string, params Params) (Post, error) {
	return c.readOne(ctx, fmt.Sprintf(postBySlugPath, url.PathEscape(slug)), params, "read post slug "+slug)
}

func (c *Client) readOne(ctx context.Context, path string, params Params, op string) (Post, error) {
	var body postsEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params.query()).
		SetSuccessResult(&body).
		Get(path)

	if err := handleAPIError(resp, err, op); err != nil {
		return nil, err
	}
	return singlePost(body, op)
}

// AddPost creates a post. Set params.Source to "html" when the post carries html.
func (c *Client) AddPost(ctx context.Context, post Post, params Params) (Post, error) {
	var body postsEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params.query()).
		SetBody(postsEnvelope{Posts: []Post{post}}).
		SetSuccessResult(&body).
		Post(postsPath)

	if err := handleAPIError(resp, err, "add post"); err != nil {
		return nil, err
	}
	return singlePost(body, "add post")
}

// EditPost updates a post. The post must carry the updated_at Ghost last returned;
// Ghost rejects stale values with an UpdateCollisionError (CONFLICT).
func (c *Client) EditPost(ctx context.Context, id string, post Post, params Params) (Post, error) {
	op := "edit post " + id
	var body postsEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params.query()).
		SetBody(postsEnvelope{Posts: []Post{post}}).
		SetSuccessResult(&body).
		Put(fmt.Sprintf(postPath, url.PathEscape(id)))

	if err := handleAPIError(resp, err, op); err != nil {
		return nil, err
	}
	return singlePost(body, op)
}

// DeletePost permanently deletes a post.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf(postPath, url.PathEscape(id)))

	return handleAPIError(resp, err, "delete post "+id)
}

// Site returns the site's public settings (title, url, version).
func (c *Client) Site(ctx context.Context) (Site, error) {
	var body siteEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&body).
		Get(sitePath)

	if err := handleAPIError(resp, err, "read site"); err != nil {
		return nil, err
	}
	return body.Site, nil
}

func singlePost(body postsEnvelope, op string) (Post, error) {
	if len(body.Posts) == 0 || body.Posts[0] == nil {
		return nil, errors.NewUpstream(op + ": response contained no post")
	}
	return body.Posts[0], nil
}
