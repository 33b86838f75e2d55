package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/ghostmcp/internal/postsync"
)

const fileRefHint = " May be file:///absolute/path to read the value from a local file."

var syncFormats = []string{
	string(postsync.FormatStructured),
	"lexical",
	string(postsync.FormatHTML),
	string(postsync.FormatMarkdown),
}

var browseToolDef = mcp.NewTool("posts_browse",
	mcp.WithDescription("List posts without their content. Returns id, slug, title, status, updated_at and other listing fields."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("filter", mcp.Description("Ghost NQL filter, e.g. status:draft or tag:news")),
	mcp.WithString("order", mcp.Description("Sort order, e.g. published_at desc")),
	mcp.WithNumber("limit", mcp.Description("Posts per page (default 15, max 100)")),
	mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
)

var readToolDef = mcp.NewTool("posts_read",
	mcp.WithDescription("Read one post by id or by slug, including content, tags and authors. Use exactly one of id or slug."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Description("Post id")),
	mcp.WithString("slug", mcp.Description("Post slug")),
	mcp.WithString("formats", mcp.Description("Content formats to include"), mcp.Enum("html", "lexical", "html,lexical")),
)

var addToolDef = mcp.NewTool(postsync.AddToolName,
	mcp.WithDescription("Create a post. Provide at most one of html, lexical or markdown; markdown is rendered to HTML before upload."),
	mcp.WithString("title", mcp.Required(), mcp.Description("Post title")),
	mcp.WithString("html", mcp.Description("HTML content."+fileRefHint)),
	mcp.WithString("lexical", mcp.Description("Lexical JSON document."+fileRefHint)),
	mcp.WithString("markdown", mcp.Description("Markdown content."+fileRefHint)),
	mcp.WithString("status", mcp.Description("Post status (default draft)"), mcp.Enum("draft", "published", "scheduled", "sent")),
	mcp.WithArray("tags", mcp.Description("Tag names"), mcp.WithStringItems()),
	mcp.WithString("custom_excerpt", mcp.Description("Custom excerpt")),
	mcp.WithString("feature_image", mcp.Description("Feature image URL")),
	mcp.WithString("published_at", mcp.Description("Publish time (ISO 8601), required for scheduled posts")),
	mcp.WithString("visibility", mcp.Description("Who can read the post"), mcp.Enum("public", "members", "paid", "tiers")),
	mcp.WithBoolean("featured", mcp.Description("Mark the post as featured")),
)

var editToolDef = mcp.NewTool("posts_edit",
	mcp.WithDescription("Update a post. updated_at must be the value last read from Ghost; a stale value is rejected with CONFLICT. Omitted fields are left unchanged."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Post id")),
	mcp.WithString("updated_at", mcp.Required(), mcp.Description("updated_at from the last read of this post")),
	mcp.WithString("title", mcp.Description("New title")),
	mcp.WithString("html", mcp.Description("New HTML content."+fileRefHint)),
	mcp.WithString("lexical", mcp.Description("New Lexical JSON document."+fileRefHint)),
	mcp.WithString("markdown", mcp.Description("New Markdown content."+fileRefHint)),
	mcp.WithString("status", mcp.Description("New status"), mcp.Enum("draft", "published", "scheduled", "sent")),
	mcp.WithArray("tags", mcp.Description("Replacement tag names; an empty list removes all tags"), mcp.WithStringItems()),
	mcp.WithString("custom_excerpt", mcp.Description("Custom excerpt")),
	mcp.WithString("feature_image", mcp.Description("Feature image URL")),
	mcp.WithString("published_at", mcp.Description("Publish time (ISO 8601)")),
	mcp.WithString("visibility", mcp.Description("Who can read the post"), mcp.Enum("public", "members", "paid", "tiers")),
	mcp.WithBoolean("featured", mcp.Description("Mark the post as featured")),
)

var deleteToolDef = mcp.NewTool("posts_delete",
	mcp.WithDescription("Permanently delete a post in Ghost. Local sync directories are not touched."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Post id")),
)

var pullToolDef = mcp.NewTool("posts_pull",
	mcp.WithDescription("Copy posts from Ghost into the local sync directory, one subdirectory per slug holding meta.json and a content file. "+
		"Local files newer than Ghost are never overwritten; differences at the same timestamp are reported as conflicts."),
	mcp.WithArray("ids", mcp.Description("Post ids to pull (default: every post)"), mcp.WithStringItems()),
	mcp.WithString("format", mcp.Description("Local content format (default structured)"), mcp.Enum(syncFormats...)),
)

var pushToolDef = mcp.NewTool("posts_push",
	mcp.WithDescription("Upload locally edited posts to Ghost. A post is uploaded only when its local updated_at matches Ghost's and its content or metadata changed; "+
		"otherwise pull first. Directories without an id are reported for creation with "+postsync.AddToolName+"."),
	mcp.WithArray("ids", mcp.Description("Post ids to push (default: every local post)"), mcp.WithStringItems()),
	mcp.WithString("format", mcp.Description("Local content format (default structured)"), mcp.Enum(syncFormats...)),
)

var historyToolDef = mcp.NewTool("posts_sync_history",
	mcp.WithDescription("List recorded pull and push runs, newest first. Pass run_id to get one run with its full report."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("run_id", mcp.Description("Run id to fetch with its report")),
	mcp.WithString("direction", mcp.Description("Only runs of this direction"), mcp.Enum("pull", "push")),
	mcp.WithNumber("limit", mcp.Description("Runs per page (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Runs to skip")),
)

var purgeToolDef = mcp.NewTool("posts_sync_purge",
	mcp.WithDescription("Delete recorded sync runs older than the given number of days. Posts and local files are not affected."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithNumber("older_than_days", mcp.Required(), mcp.Description("Delete runs started more than this many days ago (at least 1)")),
)
