package postsync

import (
	"github.com/hpungsan/ghostmcp/internal/errors"
)

// ErrorKind classifies a per-post failure.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindTransport  ErrorKind = "transport"
)

// ErrorEntry is one failed post in a report.
type ErrorEntry struct {
	ID      string    `json:"id,omitempty"`
	Title   string    `json:"title,omitempty"`
	Slug    string    `json:"slug,omitempty"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Diff    string    `json:"diff,omitempty"`
}

// InfoEntry is a note about a post that was skipped on purpose.
type InfoEntry struct {
	Slug    string `json:"slug"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// PullReport summarizes a pull run.
type PullReport struct {
	Synced  int          `json:"synced"`
	Skipped int          `json:"skipped"`
	Errors  []ErrorEntry `json:"errors,omitempty"`
}

// PushReport summarizes a push run.
type PushReport struct {
	Synced  int          `json:"synced"`
	Skipped int          `json:"skipped"`
	Errors  []ErrorEntry `json:"errors,omitempty"`
	Info    []InfoEntry  `json:"info,omitempty"`
}

// docRef identifies the post an entry is about.
type docRef struct {
	id, title, slug string
}

func refFromMeta(slug string, meta map[string]any) docRef {
	ref := docRef{slug: slug}
	if meta != nil {
		ref.id, _ = meta["id"].(string)
		ref.title, _ = meta["title"].(string)
	}
	return ref
}

func (r docRef) entry(kind ErrorKind, msg string) ErrorEntry {
	return ErrorEntry{ID: r.id, Title: r.title, Slug: r.slug, Kind: kind, Message: msg}
}

// kindOf maps a store error to a report kind. Errors without a code are
// treated as transport failures.
func kindOf(err error) ErrorKind {
	gErr, ok := errors.As(err)
	if !ok {
		return KindTransport
	}
	switch gErr.Code {
	case errors.ErrNotFound, errors.ErrFileNotFound:
		return KindNotFound
	case errors.ErrConflict:
		return KindConflict
	case errors.ErrInvalidRequest, errors.ErrAmbiguousAddressing, errors.ErrFileTooLarge:
		return KindValidation
	default:
		return KindTransport
	}
}
