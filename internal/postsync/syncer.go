// Package postsync reconciles Ghost posts with a directory-per-post tree on disk.
//
// Layout under the sync root, one directory per post slug:
//
//	<root>/<slug>/meta.json     post fields minus the content field
//	<root>/<slug>/lexical.json  structured format
//	<root>/<slug>/html.html     html format
//	<root>/<slug>/markdown.md   markdown format
//	<root>/<slug>/.format       format the directory was last pulled in
//
// Pull writes when the remote is new or strictly newer. Push updates the
// remote only when the local updated_at matches the remote exactly.
// Per-post failures are collected in the report; only the initial listing
// can fail a whole run.
package postsync

import (
	"context"
	"log/slog"

	"github.com/hpungsan/ghostmcp/internal/ghost"
)

// AddToolName is the tool suggested for local posts that have no id yet.
const AddToolName = "posts_add"

// Store is the subset of the Ghost Admin API the reconcilers use.
// *ghost.Client satisfies it.
type Store interface {
	ReadPost(ctx context.Context, id string, params ghost.Params) (ghost.Post, error)
	BrowsePosts(ctx context.Context, params ghost.Params) ([]ghost.Post, error)
	EditPost(ctx context.Context, id string, post ghost.Post, params ghost.Params) (ghost.Post, error)
}

// Options selects which posts a run touches and in which format.
type Options struct {
	IDs    []string
	Format Format
}

// Syncer runs pulls and pushes between a Store and a local root directory.
type Syncer struct {
	store  Store
	root   string
	logger *slog.Logger
}

// New creates a Syncer. A nil logger uses slog.Default().
func New(store Store, root string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: store, root: root, logger: logger}
}

// Root returns the sync root directory.
func (s *Syncer) Root() string { return s.root }

// fetchParams are the read parameters for codec's content field.
func fetchParams(codec Codec) ghost.Params {
	return ghost.Params{Formats: codec.RemoteField()}
}

// uploadParams are the parameters for a content-bearing update.
func uploadParams(codec Codec) ghost.Params {
	if codec.UploadsHTML() {
		return ghost.Params{Source: "html", Formats: ghost.FieldHTML}
	}
	return ghost.Params{Formats: codec.RemoteField()}
}

func idSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
