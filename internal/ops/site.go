package ops

import (
	"context"

	"github.com/hpungsan/ghostmcp/internal/ghost"
)

// Site returns the blog's title, url and version.
func Site(ctx context.Context, store PostStore) (ghost.Site, error) {
	return store.Site(ctx)
}
