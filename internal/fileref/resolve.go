// Package fileref resolves the file:// indirection marker used by tool inputs
// that accept large content (html, lexical, markdown).
package fileref

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/ghostmcp/internal/errors"
)

// Prefix marks a value that should be replaced by the contents of a file.
const Prefix = "file://"

// DefaultMaxBytes is used when a Resolver has no limit set.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// Resolver reads files referenced by the file:// marker.
type Resolver struct {
	MaxBytes int64
}

// New returns a Resolver limited to maxBytes per file. Zero or negative uses DefaultMaxBytes.
func New(maxBytes int64) *Resolver {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Resolver{MaxBytes: maxBytes}
}

// IsRef reports whether value carries the file:// marker.
func IsRef(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

// Resolve returns value unchanged unless it starts with file://, in which case
// it returns the contents of the referenced file.
//
// The path after the prefix must be absolute and free of ".." components.
// The final component must be a regular file, not a symlink, no larger than MaxBytes.
func (r *Resolver) Resolve(value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	path := strings.TrimPrefix(value, Prefix)
	if err := ValidatePath(path); err != nil {
		return "", err
	}

	f, err := openFileNoFollowRead(path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return "", err
		}
		return "", errors.NewInvalidRequest(fmt.Sprintf("cannot open %s: %v", path, err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("stat %s: %w", path, err))
	}
	if !info.Mode().IsRegular() {
		return "", errors.NewInvalidRequest(fmt.Sprintf("%s is not a regular file", path))
	}

	limit := r.maxBytes()
	if info.Size() > limit {
		return "", errors.NewFileTooLarge(path, limit, info.Size())
	}

	// The file can grow between Stat and Read; cap the read as well.
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("read %s: %w", path, err))
	}
	if int64(len(data)) > limit {
		return "", errors.NewFileTooLarge(path, limit, int64(len(data)))
	}
	return string(data), nil
}

// ResolveFields resolves each non-nil field in place. The first failure stops
// resolution and is returned; fields already resolved keep their new values.
func (r *Resolver) ResolveFields(fields ...*string) error {
	for _, field := range fields {
		if field == nil || !IsRef(*field) {
			continue
		}
		resolved, err := r.Resolve(*field)
		if err != nil {
			return err
		}
		*field = resolved
	}
	return nil
}

func (r *Resolver) maxBytes() int64 {
	if r == nil || r.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return r.MaxBytes
}

// ValidatePath checks a path taken from a file:// marker before it is opened.
func ValidatePath(path string) error {
	if path == "" {
		return errors.NewInvalidRequest("file path is required after " + Prefix)
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("file path must not contain directory traversal (..)")
	}
	if !filepath.IsAbs(path) {
		return errors.NewInvalidRequest(fmt.Sprintf("file path must be absolute: %s", path))
	}

	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
		return errors.NewInvalidRequest(fmt.Sprintf("cannot stat %s: %v", path, err))
	}
	// O_NOFOLLOW would reject this at open time too; checking here gives a clearer error.
	if info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("file path must not be a symlink")
	}
	return nil
}

// containsTraversal checks if path contains a ".." component.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
