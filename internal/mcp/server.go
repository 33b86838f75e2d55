package mcp

import (
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/ghostmcp/internal/errors"
	"github.com/hpungsan/ghostmcp/internal/postsync"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"posts"}

// Resource URIs.
const (
	PostResourceTemplate = "post://{post_id}"
	BlogInfoResourceURI  = "blog://info"

	postURIScheme = "post://"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"posts_browse": {
		def:     browseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBrowse },
	},
	"posts_read": {
		def:     readToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRead },
	},
	postsync.AddToolName: {
		def:     addToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdd },
	},
	"posts_edit": {
		def:     editToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleEdit },
	},
	"posts_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"posts_pull": {
		def:     pullToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePull },
	},
	"posts_push": {
		def:     pushToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePush },
	},
	"posts_sync_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"posts_sync_purge": {
		def:     purgeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePurge },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "posts_pull" → "posts").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with the post tools and resources registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration. Resources are always registered.
func NewServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"ghostmcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
	)

	h := NewHandlers(deps)

	disabled := make(map[string]bool)
	if deps.Config != nil {
		for _, tool := range ExpandTypesToTools(deps.Config.DisabledTypes) {
			disabled[tool] = true
		}
		for _, name := range deps.Config.DisabledTools {
			disabled[name] = true
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	s.AddResourceTemplate(
		mcp.NewResourceTemplate(PostResourceTemplate, "Ghost post",
			mcp.WithTemplateDescription("A single post as JSON, including html and lexical content"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		h.HandlePostResource,
	)
	s.AddResource(
		mcp.NewResource(BlogInfoResourceURI, "Blog info",
			mcp.WithResourceDescription("Title, URL and version of the Ghost site"),
			mcp.WithMIMEType("application/json"),
		),
		h.HandleBlogInfoResource,
	)

	return s
}

// Run starts the MCP server using stdio transport.
func Run(deps Deps, version string) error {
	s := NewServer(deps, version)
	return server.ServeStdio(s)
}

// postIDFromURI extracts the id from a post://{post_id} URI.
func postIDFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, postURIScheme) {
		return "", errors.NewInvalidRequest("not a post resource URI: " + uri)
	}
	id, err := url.PathUnescape(strings.Trim(strings.TrimPrefix(uri, postURIScheme), "/"))
	if err != nil || id == "" || strings.Contains(id, "/") {
		return "", errors.NewInvalidRequest("invalid post resource URI: " + uri)
	}
	return id, nil
}
