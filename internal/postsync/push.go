package postsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/hpungsan/ghostmcp/internal/errors"
	"github.com/hpungsan/ghostmcp/internal/ghost"
)

// Push sends local edits to Ghost.
//
// A post is updated only when its local updated_at equals the remote value
// exactly; any difference means the local copy missed a remote change and the
// caller must pull first. Directories without an id are reported in Info.
// Push never rewrites local files.
func (s *Syncer) Push(ctx context.Context, opts Options) (*PushReport, error) {
	codec := CodecFor(opts.Format)
	dirs, err := listPostDirs(s.root)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("sync directory does not exist: %s", s.root))
		}
		return nil, errors.NewInternal(fmt.Errorf("list sync directory: %w", err))
	}

	report := &PushReport{}
	filter := idSet(opts.IDs)
	for _, name := range dirs {
		s.pushOne(ctx, name, codec, filter, report)
	}

	s.logger.Info("push finished",
		"format", codec.Format(),
		"synced", report.Synced,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
		"info", len(report.Info))
	return report, nil
}

func (s *Syncer) pushOne(ctx context.Context, slug string, codec Codec, filter map[string]bool, report *PushReport) {
	dir := filepath.Join(s.root, slug)
	ref := docRef{slug: slug}
	fail := func(kind ErrorKind, msg string) {
		s.logger.Debug("push: post failed", "id", ref.id, "slug", slug, "kind", kind, "reason", msg)
		report.Errors = append(report.Errors, ref.entry(kind, msg))
	}

	meta, err := readMeta(dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("push: no meta.json, ignoring directory", "slug", slug)
			return
		}
		fail(KindValidation, err.Error())
		return
	}
	ref = refFromMeta(slug, meta)

	if ref.id == "" {
		report.Info = append(report.Info, InfoEntry{
			Slug:    slug,
			Title:   ref.title,
			Message: fmt.Sprintf("post has no id and was never created in Ghost; use %s to create it", AddToolName),
		})
		return
	}
	if filter != nil && !filter[ref.id] {
		return
	}

	localUpdated, _ := meta["updated_at"].(string)
	if localUpdated == "" {
		fail(KindValidation, "local meta.json is missing updated_at")
		return
	}
	if err := checkMarker(dir, codec); err != nil {
		fail(KindValidation, err.Error())
		return
	}
	localContent, hasContent, err := readContent(dir, codec)
	if err != nil {
		fail(KindValidation, err.Error())
		return
	}

	field := codec.RemoteField()
	remote, err := s.store.ReadPost(ctx, ref.id, fetchParams(codec))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			fail(KindNotFound, "post not found in Ghost; it may have been deleted remotely")
			return
		}
		fail(kindOf(err), fmt.Sprintf("fetch failed: %v", err))
		return
	}

	if localUpdated != remote.UpdatedAt() {
		fail(KindConflict, fmt.Sprintf("conflict: updated_at mismatch (local %s, remote %s); pull first",
			localUpdated, remote.UpdatedAt()))
		return
	}

	remoteMeta, err := normalizeMeta(remote.Without(field))
	if err != nil {
		fail(KindValidation, err.Error())
		return
	}
	remoteContent, err := codec.ToLocal(remote.Content(field))
	if err != nil {
		fail(KindValidation, err.Error())
		return
	}

	metaChanged := !metaEqual(meta, remoteMeta)
	contentChanged := hasContent && !codec.Equal(localContent, remoteContent)
	if !metaChanged && !contentChanged {
		if codec.Format() == FormatMarkdown && !hasContent {
			fail(KindValidation, "markdown file does not exist")
			return
		}
		s.logger.Debug("push: unchanged", "id", ref.id, "slug", slug)
		report.Skipped++
		return
	}

	payload := ghost.Post(meta).Without(field)
	params := fetchParams(codec)
	if hasContent {
		encoded, err := codec.ToRemote(localContent)
		if err != nil {
			fail(KindValidation, err.Error())
			return
		}
		// An empty lexical document is left out rather than sent as "".
		if encoded != "" || codec.UploadsHTML() {
			payload[field] = encoded
			params = uploadParams(codec)
		}
	}

	if _, err := s.store.EditPost(ctx, ref.id, payload, params); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			fail(KindConflict, fmt.Sprintf("conflict: remote rejected update (%v); pull first", err))
			return
		}
		fail(kindOf(err), fmt.Sprintf("update failed: %v", err))
		return
	}
	s.logger.Debug("push: updated", "id", ref.id, "slug", slug,
		"metadata_changed", metaChanged, "content_changed", contentChanged)
	report.Synced++
}
