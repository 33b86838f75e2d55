package postsync

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ghostmcp/internal/errors"
)

func readJSONFile(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func writeJSONFile(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestPull_NewPostByID(t *testing.T) {
	store := newFakeStore(testPost("A", "post-a", "Post A"))
	s := newTestSyncer(t, store)

	report, err := s.Pull(context.Background(), Options{IDs: []string{"A"}})
	require.NoError(t, err)
	require.Equal(t, 1, report.Synced)
	require.Equal(t, 0, report.Skipped)
	require.Empty(t, report.Errors)

	dir := filepath.Join(s.Root(), "post-a")
	require.FileExists(t, filepath.Join(dir, MetaFile))
	require.FileExists(t, filepath.Join(dir, LexicalFile))

	marker, ok, err := readMarker(dir)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, FormatStructured, marker)

	meta := readJSONFile(t, filepath.Join(dir, MetaFile))
	require.NotContains(t, meta, "lexical")
	require.Equal(t, "A", meta["id"])
	require.Equal(t, ts1, meta["updated_at"])
}

func TestPull_MetaPlusContentReconstructsPost(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		field  string
	}{
		{"structured", FormatStructured, "lexical"},
		{"html", FormatHTML, "html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := testPost("A", "post-a", "Post A")
			store := newFakeStore(post)
			s := newTestSyncer(t, store)

			_, err := s.Pull(context.Background(), Options{Format: tt.format})
			require.NoError(t, err)

			dir := filepath.Join(s.Root(), "post-a")
			meta := readJSONFile(t, filepath.Join(dir, MetaFile))
			require.NotContains(t, meta, tt.field)

			content, found, err := readContent(dir, CodecFor(tt.format))
			require.NoError(t, err)
			require.True(t, found)
			remote, err := ToRemote(content, tt.format)
			require.NoError(t, err)
			meta[tt.field] = remote

			fetched, err := normalize(view(post, tt.field))
			require.NoError(t, err)
			if tt.format == FormatStructured {
				// lexical is re-serialized compactly; compare parsed trees
				want, _ := ToLocal(post.Content("lexical"), FormatStructured)
				got, _ := ToLocal(remote, FormatStructured)
				require.Equal(t, want, got)
				meta[tt.field] = fetched.(map[string]any)[tt.field]
			}
			require.Equal(t, fetched, any(meta))
		})
	}
}

func TestPull_Idempotent(t *testing.T) {
	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			store := newFakeStore(testPost("A", "post-a", "Post A"), testPost("B", "post-b", "Post B"))
			s := newTestSyncer(t, store)

			first, err := s.Pull(context.Background(), Options{Format: format})
			require.NoError(t, err)
			require.Equal(t, 2, first.Synced)

			second, err := s.Pull(context.Background(), Options{Format: format})
			require.NoError(t, err)
			require.Equal(t, 0, second.Synced)
			require.Equal(t, 2, second.Skipped)
			require.Empty(t, second.Errors)
		})
	}
}

func TestPull_RemoteNewerOverwrites(t *testing.T) {
	store := newFakeStore(testPost("A", "post-a", "Post A"))
	s := newTestSyncer(t, store)

	_, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)

	store.setRemote("A", map[string]any{"title": "Renamed", "updated_at": ts2})
	report, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, report.Synced)

	meta := readJSONFile(t, filepath.Join(s.Root(), "post-a", MetaFile))
	require.Equal(t, "Renamed", meta["title"])
	require.Equal(t, ts2, meta["updated_at"])
}

func TestPull_LocalNewerIsConflict(t *testing.T) {
	store := newFakeStore(testPost("A", "post-a", "Post A"))
	s := newTestSyncer(t, store)

	_, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)

	metaPath := filepath.Join(s.Root(), "post-a", MetaFile)
	meta := readJSONFile(t, metaPath)
	meta["updated_at"] = "2999-01-01T00:00:00.000Z"
	meta["title"] = "Edited locally"
	writeJSONFile(t, metaPath, meta)
	before, err := os.ReadFile(metaPath)
	require.NoError(t, err)

	report, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 0, report.Synced)
	require.Len(t, report.Errors, 1)
	require.Contains(t, report.Errors[0].Message, "conflict")
	require.Equal(t, KindConflict, report.Errors[0].Kind)
	require.Equal(t, "A", report.Errors[0].ID)

	after, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestPull_SameTimestampConflicts(t *testing.T) {
	tests := []struct {
		name   string
		modify func(t *testing.T, dir string)
	}{
		{
			name: "title only",
			modify: func(t *testing.T, dir string) {
				meta := readJSONFile(t, filepath.Join(dir, MetaFile))
				meta["title"] = "Local title"
				writeJSONFile(t, filepath.Join(dir, MetaFile), meta)
			},
		},
		{
			name: "content only",
			modify: func(t *testing.T, dir string) {
				var doc any
				require.NoError(t, json.Unmarshal([]byte(lexicalDoc("changed body")), &doc))
				writeJSONFile(t, filepath.Join(dir, LexicalFile), doc)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(testPost("A", "post-a", "Post A"))
			s := newTestSyncer(t, store)
			_, err := s.Pull(context.Background(), Options{})
			require.NoError(t, err)

			dir := filepath.Join(s.Root(), "post-a")
			tt.modify(t, dir)

			report, err := s.Pull(context.Background(), Options{})
			require.NoError(t, err)
			require.Equal(t, 0, report.Synced)
			require.Equal(t, 0, report.Skipped)
			require.Len(t, report.Errors, 1)
			require.Contains(t, report.Errors[0].Message, "conflict")
			require.NotEmpty(t, report.Errors[0].Diff)
		})
	}
}

func TestPull_EqualInstantDifferentSpellingIsUnchanged(t *testing.T) {
	store := newFakeStore(testPost("A", "post-a", "Post A"))
	s := newTestSyncer(t, store)
	_, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)

	metaPath := filepath.Join(s.Root(), "post-a", MetaFile)
	meta := readJSONFile(t, metaPath)
	meta["updated_at"] = "2024-01-01T10:00:00Z"
	writeJSONFile(t, metaPath, meta)

	report, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)
	require.Empty(t, report.Errors)
	require.Equal(t, 1, report.Skipped)
}

func TestPull_FailedWriteKeepsMeta(t *testing.T) {
	store := newFakeStore(testPost("A", "post-a", "Post A"))
	s := newTestSyncer(t, store)
	_, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)

	dir := filepath.Join(s.Root(), "post-a")
	metaPath := filepath.Join(dir, MetaFile)
	before, err := os.ReadFile(metaPath)
	require.NoError(t, err)

	// A non-empty directory in place of the content file makes its rename fail.
	contentPath := filepath.Join(dir, LexicalFile)
	require.NoError(t, os.Remove(contentPath))
	require.NoError(t, os.MkdirAll(filepath.Join(contentPath, "blocker"), 0o755))

	store.setRemote("A", map[string]any{"title": "Post A v2", "updated_at": ts2})
	report, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 0, report.Synced)
	require.Len(t, report.Errors, 1)
	require.Equal(t, "A", report.Errors[0].ID)

	after, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))

	require.NoError(t, os.RemoveAll(contentPath))
	report, err = s.Pull(context.Background(), Options{})
	require.NoError(t, err)
	require.Empty(t, report.Errors)
	require.Equal(t, 1, report.Synced)
	require.Equal(t, "Post A v2", readJSONFile(t, metaPath)["title"])
}

func TestPull_PartialFailureIsolation(t *testing.T) {
	store := newFakeStore(
		testPost("A", "post-a", "Post A"),
		testPost("B", "post-b", "Post B"),
		testPost("C", "post-c", "Post C"),
	)
	s := newTestSyncer(t, store)
	_, err := s.Pull(context.Background(), Options{IDs: []string{"A"}})
	require.NoError(t, err)

	bad := filepath.Join(s.Root(), "post-b")
	require.NoError(t, os.MkdirAll(bad, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, MetaFile), []byte("{not json"), 0o644))

	report, err := s.Pull(context.Background(), Options{IDs: []string{"A", "B", "C"}})
	require.NoError(t, err)
	require.Equal(t, 1, report.Synced)
	require.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)
	require.Equal(t, "B", report.Errors[0].ID)
	require.Contains(t, report.Errors[0].Message, "invalid JSON")

	data, err := os.ReadFile(filepath.Join(bad, MetaFile))
	require.NoError(t, err)
	require.Equal(t, "{not json", string(data))
}

func TestPull_LocalMetaMissingFields(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want string
	}{
		{"no id", map[string]any{"updated_at": ts1, "title": "x"}, "missing id"},
		{"no updated_at", map[string]any{"id": "A", "title": "x"}, "missing updated_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSyncer(t, newFakeStore(testPost("A", "post-a", "Post A")))
			dir := filepath.Join(s.Root(), "post-a")
			require.NoError(t, os.MkdirAll(dir, 0o755))
			writeJSONFile(t, filepath.Join(dir, MetaFile), tt.meta)

			report, err := s.Pull(context.Background(), Options{})
			require.NoError(t, err)
			require.Equal(t, 0, report.Synced)
			require.Len(t, report.Errors, 1)
			require.Equal(t, KindValidation, report.Errors[0].Kind)
			require.Contains(t, report.Errors[0].Message, tt.want)
		})
	}
}

func TestPull_FetchErrorsArePerPost(t *testing.T) {
	store := newFakeStore(testPost("A", "post-a", "Post A"))
	s := newTestSyncer(t, store)

	report, err := s.Pull(context.Background(), Options{IDs: []string{"missing", "A"}})
	require.NoError(t, err)
	require.Equal(t, 1, report.Synced)
	require.Len(t, report.Errors, 1)
	require.Equal(t, "missing", report.Errors[0].ID)
	require.Equal(t, KindNotFound, report.Errors[0].Kind)
}

func TestPull_BrowseFailureAborts(t *testing.T) {
	store := newFakeStore(testPost("A", "post-a", "Post A"))
	store.browseErr = errors.NewUpstream("browse posts: connection refused")
	s := newTestSyncer(t, store)

	report, err := s.Pull(context.Background(), Options{})
	require.Nil(t, report)
	require.True(t, errors.Is(err, errors.ErrUpstream))

	_, statErr := os.Stat(filepath.Join(s.Root(), "post-a"))
	require.True(t, os.IsNotExist(statErr))
}

func TestPull_RemoteMissingContentField(t *testing.T) {
	post := testPost("A", "post-a", "Post A").Without("lexical")
	store := newFakeStore(post)
	s := newTestSyncer(t, store)

	report, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	require.Contains(t, report.Errors[0].Message, "missing the lexical field")
}

func TestPull_NullContentIsEmpty(t *testing.T) {
	post := testPost("A", "post-a", "Post A")
	post["lexical"] = nil
	s := newTestSyncer(t, newFakeStore(post))

	first, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, first.Synced)

	second, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, second.Skipped)
}

func TestPull_FormatMarker(t *testing.T) {
	t.Run("mismatch on unchanged post is an error", func(t *testing.T) {
		store := newFakeStore(testPost("A", "post-a", "Post A"))
		s := newTestSyncer(t, store)
		_, err := s.Pull(context.Background(), Options{Format: FormatStructured})
		require.NoError(t, err)

		report, err := s.Pull(context.Background(), Options{Format: FormatHTML})
		require.NoError(t, err)
		require.Len(t, report.Errors, 1)
		require.Contains(t, report.Errors[0].Message, "holds structured content")
		require.NoFileExists(t, filepath.Join(s.Root(), "post-a", HTMLFile))
	})

	t.Run("newer remote migrates the directory", func(t *testing.T) {
		store := newFakeStore(testPost("A", "post-a", "Post A"))
		s := newTestSyncer(t, store)
		_, err := s.Pull(context.Background(), Options{Format: FormatStructured})
		require.NoError(t, err)

		store.setRemote("A", map[string]any{"updated_at": ts2})
		report, err := s.Pull(context.Background(), Options{Format: FormatMarkdown})
		require.NoError(t, err)
		require.Equal(t, 1, report.Synced)

		dir := filepath.Join(s.Root(), "post-a")
		require.NoFileExists(t, filepath.Join(dir, LexicalFile))
		require.FileExists(t, filepath.Join(dir, MarkdownFile))
		marker, _, err := readMarker(dir)
		require.NoError(t, err)
		require.Equal(t, FormatMarkdown, marker)

		md, err := os.ReadFile(filepath.Join(dir, MarkdownFile))
		require.NoError(t, err)
		require.Contains(t, string(md), "# Post A")
		require.Contains(t, string(md), "**bold**")
	})
}

func TestPull_SlugRenameLeavesOldDirectory(t *testing.T) {
	store := newFakeStore(testPost("A", "old-slug", "Post A"))
	s := newTestSyncer(t, store)
	_, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)

	store.setRemote("A", map[string]any{"slug": "new-slug", "updated_at": ts2})
	report, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, report.Synced)

	require.DirExists(t, filepath.Join(s.Root(), "old-slug"))
	require.FileExists(t, filepath.Join(s.Root(), "new-slug", MetaFile))
}

func TestPull_DirectoryOwnedByAnotherPost(t *testing.T) {
	store := newFakeStore(testPost("A", "shared", "Post A"))
	s := newTestSyncer(t, store)

	dir := filepath.Join(s.Root(), "shared")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writeJSONFile(t, filepath.Join(dir, MetaFile), map[string]any{"id": "Z", "updated_at": ts1})

	report, err := s.Pull(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	require.Contains(t, report.Errors[0].Message, "conflict")
}

func TestPull_ReportJSON(t *testing.T) {
	data, err := json.Marshal(PullReport{Synced: 1})
	require.NoError(t, err)
	require.JSONEq(t, `{"synced":1,"skipped":0}`, string(data))

	data, err = json.Marshal(PushReport{Info: []InfoEntry{{Slug: "x", Message: "m"}}})
	require.NoError(t, err)
	require.JSONEq(t, `{"synced":0,"skipped":0,"info":[{"slug":"x","message":"m"}]}`, string(data))
}
