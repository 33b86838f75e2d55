package postsync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/hpungsan/ghostmcp/internal/errors"
	"github.com/hpungsan/ghostmcp/internal/ghost"
)

// Format selects the on-disk encoding of post content.
type Format string

const (
	FormatStructured Format = "structured"
	FormatHTML       Format = "html"
	FormatMarkdown   Format = "markdown"
)

// Local content file names, one per format.
const (
	LexicalFile  = "lexical.json"
	HTMLFile     = "html.html"
	MarkdownFile = "markdown.md"
)

// ParseFormat maps a selector to a Format. Empty selects structured;
// "lexical" is accepted as an alias for structured.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "structured", "lexical":
		return FormatStructured, nil
	case "html":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("unknown format %q (want structured, html or markdown)", s))
	}
}

// Codec converts post content between the remote field and one local encoding.
//
// The local form is what the reconcilers compare: a parsed JSON value for
// structured content and plain text for html and markdown.
type Codec interface {
	Format() Format
	// RemoteField is the post field that carries content for this format.
	RemoteField() string
	// FileName is the content file inside a post directory.
	FileName() string
	// UploadsHTML reports whether updates send html and need source=html.
	UploadsHTML() bool

	ToLocal(remote string) (any, error)
	ToRemote(local any) (string, error)

	// Decode parses content file bytes into the local form.
	Decode(data []byte) (any, error)
	// Encode renders the local form as content file bytes.
	Encode(local any) ([]byte, error)
	Equal(a, b any) bool
}

// CodecFor returns the codec for f. Unknown formats fall back to structured.
func CodecFor(f Format) Codec {
	switch f {
	case FormatHTML:
		return htmlCodec{}
	case FormatMarkdown:
		return markdownCodec{}
	default:
		return structuredCodec{}
	}
}

// ToLocal converts remote content into the local form for f.
func ToLocal(remote string, f Format) (any, error) {
	return CodecFor(f).ToLocal(remote)
}

// ToRemote converts local content in form f into the remote field value.
func ToRemote(local any, f Format) (string, error) {
	return CodecFor(f).ToRemote(local)
}

// Formats lists every format, for marker migration.
var Formats = []Format{FormatStructured, FormatHTML, FormatMarkdown}

// structuredCodec stores Ghost's lexical document tree as pretty-printed JSON.
type structuredCodec struct{}

func (structuredCodec) Format() Format      { return FormatStructured }
func (structuredCodec) RemoteField() string { return ghost.FieldLexical }
func (structuredCodec) FileName() string    { return LexicalFile }
func (structuredCodec) UploadsHTML() bool   { return false }

func (structuredCodec) ToLocal(remote string) (any, error) {
	if strings.TrimSpace(remote) == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(remote), &v); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("remote lexical is not valid JSON: %v", err))
	}
	return v, nil
}

func (structuredCodec) ToRemote(local any) (string, error) {
	if local == nil {
		return "", nil
	}
	data, err := json.Marshal(local)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("serialize lexical: %w", err))
	}
	return string(data), nil
}

func (structuredCodec) Decode(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (structuredCodec) Encode(local any) ([]byte, error) {
	return marshalPretty(local)
}

func (structuredCodec) Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// textCodec holds the parts html and markdown share: plain text files
// compared byte for byte.
type textCodec struct{}

func (textCodec) RemoteField() string { return ghost.FieldHTML }
func (textCodec) UploadsHTML() bool   { return true }

func (textCodec) Decode(data []byte) (any, error) { return string(data), nil }

func (textCodec) Encode(local any) ([]byte, error) { return []byte(asText(local)), nil }

func (textCodec) Equal(a, b any) bool { return asText(a) == asText(b) }

func asText(v any) string {
	s, _ := v.(string)
	return s
}

type htmlCodec struct{ textCodec }

func (htmlCodec) Format() Format   { return FormatHTML }
func (htmlCodec) FileName() string { return HTMLFile }

func (htmlCodec) ToLocal(remote string) (any, error) { return remote, nil }
func (htmlCodec) ToRemote(local any) (string, error) { return asText(local), nil }

// markdownCodec derives markdown from Ghost's html and renders it back on upload.
type markdownCodec struct{ textCodec }

func (markdownCodec) Format() Format   { return FormatMarkdown }
func (markdownCodec) FileName() string { return MarkdownFile }

func (markdownCodec) ToLocal(remote string) (any, error) {
	return HTMLToMarkdown(remote)
}

func (markdownCodec) ToRemote(local any) (string, error) {
	return MarkdownToHTML(asText(local))
}

// Ghost wraps raw HTML cards in these comments. The region between them is
// kept verbatim across markdown conversion.
const (
	htmlCardBegin = "<!--kg-card-begin: html-->"
	htmlCardEnd   = "<!--kg-card-end: html-->"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

func newHTMLConverter() *md.Converter {
	conv := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		Fence:            "```",
		EmDelimiter:      "_",
		StrongDelimiter:  "**",
	})
	conv.Use(plugin.Table(), plugin.Strikethrough(""))
	return conv
}

// HTMLToMarkdown converts Ghost html to markdown. Raw HTML card regions pass
// through unchanged.
func HTMLToMarkdown(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	masked, regions := maskHTMLCards(src)

	out, err := newHTMLConverter().ConvertString(masked)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("convert html to markdown: %v", err))
	}
	for i, raw := range regions {
		out = strings.Replace(out, placeholder(i), raw, 1)
	}
	return out, nil
}

// MarkdownToHTML renders markdown for upload. Inline HTML is passed through
// unescaped and bare URLs are not auto-linked.
func MarkdownToHTML(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &buf); err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("convert markdown to html: %v", err))
	}
	return buf.String(), nil
}

// maskHTMLCards swaps each raw HTML card for a placeholder paragraph and
// returns the original regions, markers included, in order.
func maskHTMLCards(src string) (string, []string) {
	var (
		b       strings.Builder
		regions []string
	)
	rest := src
	for {
		start := strings.Index(rest, htmlCardBegin)
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], htmlCardEnd)
		if end < 0 {
			break
		}
		end += start + len(htmlCardEnd)

		b.WriteString(rest[:start])
		b.WriteString("<p>" + placeholder(len(regions)) + "</p>")
		regions = append(regions, rest[start:end])
		rest = rest[end:]
	}
	b.WriteString(rest)
	return b.String(), regions
}

// placeholder is alphanumeric so the markdown converter never escapes it.
func placeholder(i int) string {
	return fmt.Sprintf("GHOSTMCPHTMLCARD%dX", i)
}
