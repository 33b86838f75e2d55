package postsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/hpungsan/ghostmcp/internal/ghost"
)

// Pull copies remote posts into the sync root.
//
// With opts.IDs each post is fetched on its own and a failed fetch is that
// post's error. Without IDs all posts are listed in one call; if that call
// fails Pull returns the error and no report.
func (s *Syncer) Pull(ctx context.Context, opts Options) (*PullReport, error) {
	codec := CodecFor(opts.Format)
	report := &PullReport{}
	index := indexLocalIDs(s.root)

	if len(opts.IDs) > 0 {
		for _, id := range opts.IDs {
			post, err := s.store.ReadPost(ctx, id, fetchParams(codec))
			if err != nil {
				report.Errors = append(report.Errors, docRef{id: id}.entry(kindOf(err), fmt.Sprintf("fetch failed: %v", err)))
				continue
			}
			s.pullOne(post, codec, index, report)
		}
	} else {
		params := fetchParams(codec)
		params.Limit = "all"
		posts, err := s.store.BrowsePosts(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, post := range posts {
			s.pullOne(post, codec, index, report)
		}
	}

	s.logger.Info("pull finished",
		"format", codec.Format(),
		"synced", report.Synced,
		"skipped", report.Skipped,
		"errors", len(report.Errors))
	return report, nil
}

func (s *Syncer) pullOne(post ghost.Post, codec Codec, index map[string]string, report *PullReport) {
	ref := docRef{id: post.ID(), title: post.Title(), slug: post.Slug()}
	fail := func(kind ErrorKind, msg string) {
		s.logger.Debug("pull: post failed", "id", ref.id, "slug", ref.slug, "kind", kind, "reason", msg)
		report.Errors = append(report.Errors, ref.entry(kind, msg))
	}

	field := codec.RemoteField()
	if ref.id == "" {
		fail(KindValidation, "remote post has no id")
		return
	}
	if !validSlug(ref.slug) {
		fail(KindValidation, fmt.Sprintf("remote post has an unusable slug %q", ref.slug))
		return
	}
	if !post.Has(field) {
		fail(KindValidation, fmt.Sprintf("remote post is missing the %s field", field))
		return
	}
	remoteTS, err := parseTimestamp(post.UpdatedAt())
	if err != nil {
		fail(KindValidation, "remote "+err.Error())
		return
	}

	remoteContent, err := codec.ToLocal(post.Content(field))
	if err != nil {
		fail(KindValidation, err.Error())
		return
	}
	remoteMeta, err := normalizeMeta(post.Without(field))
	if err != nil {
		fail(KindValidation, err.Error())
		return
	}

	dir := filepath.Join(s.root, ref.slug)
	localMeta, err := readMeta(dir)
	switch {
	case err == nil:
		// compared below
	case stderrors.Is(err, fs.ErrNotExist):
		s.write(dir, ref, remoteMeta, remoteContent, codec, index, report)
		return
	default:
		fail(KindValidation, err.Error())
		return
	}

	localID, _ := localMeta["id"].(string)
	localUpdated, _ := localMeta["updated_at"].(string)
	if localID == "" {
		fail(KindValidation, "local meta.json is missing id")
		return
	}
	if localUpdated == "" {
		fail(KindValidation, "local meta.json is missing updated_at")
		return
	}
	if localID != ref.id {
		fail(KindConflict, fmt.Sprintf("conflict: directory %s belongs to post %s", ref.slug, localID))
		return
	}
	localTS, err := parseTimestamp(localUpdated)
	if err != nil {
		fail(KindValidation, "local "+err.Error())
		return
	}

	switch {
	case localTS.Before(remoteTS):
		s.write(dir, ref, remoteMeta, remoteContent, codec, index, report)
		return
	case localTS.After(remoteTS):
		fail(KindConflict, fmt.Sprintf("conflict: local is newer than remote (local %s, remote %s)", localUpdated, post.UpdatedAt()))
		return
	}

	if err := checkMarker(dir, codec); err != nil {
		fail(KindValidation, err.Error())
		return
	}
	localContent, _, err := readContent(dir, codec)
	if err != nil {
		fail(KindValidation, err.Error())
		return
	}

	sameMeta := metaEqual(localMeta, remoteMeta)
	sameContent := codec.Equal(localContent, remoteContent)
	if sameMeta && sameContent {
		s.logger.Debug("pull: unchanged", "id", ref.id, "slug", ref.slug)
		report.Skipped++
		return
	}

	entry := ref.entry(KindConflict, "conflict: same timestamp, different content")
	if !sameContent {
		entry.Diff = diffSummary(describe(localContent), describe(remoteContent))
	} else {
		entry.Message = "conflict: same timestamp, different metadata"
		entry.Diff = diffSummary(describe(localMeta), describe(remoteMeta))
	}
	s.logger.Debug("pull: conflict", "id", ref.id, "slug", ref.slug)
	report.Errors = append(report.Errors, entry)
}

func (s *Syncer) write(dir string, ref docRef, meta map[string]any, content any, codec Codec, index map[string]string, report *PullReport) {
	if prev, ok := index[ref.id]; ok && prev != ref.slug {
		s.logger.Warn("post slug changed; old directory left in place",
			"id", ref.id,
			"slug", ref.slug,
			"orphan", filepath.Join(s.root, prev))
	}
	if err := writeDoc(dir, meta, content, codec); err != nil {
		report.Errors = append(report.Errors, ref.entry(KindValidation, err.Error()))
		return
	}
	index[ref.id] = ref.slug
	s.logger.Debug("pull: wrote", "id", ref.id, "slug", ref.slug)
	report.Synced++
}
