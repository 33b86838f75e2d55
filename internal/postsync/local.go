package postsync

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Files inside a post directory besides the content file.
const (
	MetaFile   = "meta.json"
	MarkerFile = ".format"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// errInvalidJSON marks a local file that exists but does not parse.
var errInvalidJSON = stderrors.New("invalid JSON in local file")

// readMeta reads <dir>/meta.json. A missing file returns an error matching
// fs.ErrNotExist; a malformed one wraps errInvalidJSON.
func readMeta(dir string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, err
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil || meta == nil {
		return nil, fmt.Errorf("%w %s", errInvalidJSON, MetaFile)
	}
	return meta, nil
}

// readContent reads the codec's content file. found is false when the file
// does not exist, which is not an error.
func readContent(dir string, codec Codec) (content any, found bool, err error) {
	data, err := os.ReadFile(filepath.Join(dir, codec.FileName()))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	content, err = codec.Decode(data)
	if err != nil {
		return nil, true, fmt.Errorf("%w %s", errInvalidJSON, codec.FileName())
	}
	return content, true, nil
}

// readMarker returns the format recorded in <dir>/.format, if any.
func readMarker(dir string) (Format, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", false, nil
	}
	return Format(name), true, nil
}

// checkMarker fails when dir was last synced in a format other than codec's.
func checkMarker(dir string, codec Codec) error {
	marker, ok, err := readMarker(dir)
	if err != nil {
		return err
	}
	if ok && marker != codec.Format() {
		return fmt.Errorf("directory holds %s content but format %s was requested; pull with format %s to convert it",
			marker, codec.Format(), codec.Format())
	}
	return nil
}

// writeDoc writes the content file, the format marker and meta.json, in that
// order. meta.json carries updated_at and is written last, so a failed write
// leaves the old timestamp behind and the next Pull retries. A directory
// previously synced in another format has that format's content file removed
// once the new one is in place.
func writeDoc(dir string, meta map[string]any, content any, codec Codec) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	previous, hadMarker, err := readMarker(dir)
	if err != nil {
		return err
	}

	metaData, err := marshalPretty(meta)
	if err != nil {
		return err
	}
	contentData, err := codec.Encode(content)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(filepath.Join(dir, codec.FileName()), contentData); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(dir, MarkerFile), []byte(string(codec.Format())+"\n")); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(dir, MetaFile), metaData); err != nil {
		return err
	}

	if hadMarker && previous != codec.Format() {
		old := CodecFor(previous)
		if old.Format() == previous && old.FileName() != codec.FileName() {
			if err := os.Remove(filepath.Join(dir, old.FileName())); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("remove stale %s: %w", old.FileName(), err)
			}
		}
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// marshalPretty encodes v with two-space indentation and a trailing newline,
// leaving <, > and & unescaped so html inside metadata stays readable.
func marshalPretty(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}

// listPostDirs returns the names of the subdirectories of root, skipping
// hidden entries.
func listPostDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dirs = append(dirs, e.Name())
	}
	return dirs, nil
}

// indexLocalIDs maps post id to directory name for every readable meta.json
// under root. Unreadable directories are left out.
func indexLocalIDs(root string) map[string]string {
	index := make(map[string]string)
	dirs, err := listPostDirs(root)
	if err != nil {
		return index
	}
	for _, name := range dirs {
		meta, err := readMeta(filepath.Join(root, name))
		if err != nil {
			continue
		}
		if id, _ := meta["id"].(string); id != "" {
			index[id] = name
		}
	}
	return index
}

// validSlug rejects slugs that cannot safely name a directory under root.
func validSlug(slug string) bool {
	if slug == "" || slug == "." || slug == ".." || strings.HasPrefix(slug, ".") {
		return false
	}
	return !strings.ContainsAny(slug, `/\`) && !strings.ContainsRune(slug, 0)
}
