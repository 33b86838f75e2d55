package postsync

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxDiffLen    = 400
	maxEqualRunes = 24
)

// parseTimestamp parses an updated_at value as RFC 3339.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid updated_at %q", s)
	}
	return t, nil
}

// normalize round-trips v through encoding/json so maps decoded by
// different JSON libraries compare equal under reflect.DeepEqual.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeMeta returns post fields as a plain JSON object.
func normalizeMeta(v map[string]any) (map[string]any, error) {
	n, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("normalize metadata: %w", err)
	}
	m, _ := n.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// metaEqual compares two metadata objects structurally, ignoring updated_at.
// Callers compare timestamps first, and one instant may be spelled
// differently on each side (10:00:00Z and 10:00:00.000Z).
func metaEqual(local, remote map[string]any) bool {
	return reflect.DeepEqual(withoutUpdatedAt(local), withoutUpdatedAt(remote))
}

func withoutUpdatedAt(m map[string]any) map[string]any {
	if _, ok := m["updated_at"]; !ok {
		return m
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != "updated_at" {
			out[k] = v
		}
	}
	return out
}

// describe renders a local-form value as text for diffing.
func describe(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := marshalPretty(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// diffSummary returns a short inline diff from local to remote: deleted text
// as [-...-], inserted text as {+...+}, long unchanged runs abbreviated.
func diffSummary(local, remote string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(local, remote, false))

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		case diffmatchpatch.DiffEqual:
			b.WriteString(abbreviate(d.Text))
		}
	}
	return truncate(b.String(), maxDiffLen)
}

func abbreviate(s string) string {
	if utf8.RuneCountInString(s) <= maxEqualRunes {
		return s
	}
	r := []rune(s)
	half := maxEqualRunes / 2
	return string(r[:half]) + "..." + string(r[len(r)-half:])
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
