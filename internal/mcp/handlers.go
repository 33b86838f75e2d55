package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/ghostmcp/internal/config"
	"github.com/hpungsan/ghostmcp/internal/errors"
	"github.com/hpungsan/ghostmcp/internal/fileref"
	"github.com/hpungsan/ghostmcp/internal/ops"
	"github.com/hpungsan/ghostmcp/internal/postsync"
)

// Deps are the collaborators shared by all handlers.
type Deps struct {
	DB     *sql.DB
	Config *config.Config
	// Store is nil when the Ghost connection is not configured. Network
	// tools then return StoreErr; history and purge keep working.
	Store    ops.PostStore
	StoreErr error
	SyncRoot string
	Logger   *slog.Logger
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db       *sql.DB
	store    ops.PostStore
	storeErr error
	syncer   *postsync.Syncer
	resolver *fileref.Resolver
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handlers{
		db:       deps.DB,
		store:    deps.Store,
		storeErr: deps.StoreErr,
		resolver: fileref.New(cfg.MaxFileBytes),
	}
	if h.store != nil {
		h.syncer = postsync.New(h.store, deps.SyncRoot, logger)
	} else if h.storeErr == nil {
		h.storeErr = cfg.Validate()
		if h.storeErr == nil {
			h.storeErr = errors.NewInvalidRequest("ghost connection is not configured")
		}
	}
	return h
}

// postStore returns the Ghost client or the configuration error explaining its absence.
func (h *Handlers) postStore() (ops.PostStore, error) {
	if h.store == nil {
		return nil, h.storeErr
	}
	return h.store, nil
}

// Request types for each tool

// BrowseRequest represents the arguments for posts_browse.
type BrowseRequest struct {
	Filter string `json:"filter,omitempty"`
	Order  string `json:"order,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Page   int    `json:"page,omitempty"`
}

// ReadRequest represents the arguments for posts_read.
type ReadRequest struct {
	ID      string `json:"id,omitempty"`
	Slug    string `json:"slug,omitempty"`
	Formats string `json:"formats,omitempty"`
}

// contentFields are the content arguments shared by posts_add and posts_edit.
type contentFields struct {
	HTML     *string `json:"html,omitempty"`
	Lexical  *string `json:"lexical,omitempty"`
	Markdown *string `json:"markdown,omitempty"`
}

func (c contentFields) input() ops.ContentInput {
	return ops.ContentInput{HTML: c.HTML, Lexical: c.Lexical, Markdown: c.Markdown}
}

// AddRequest represents the arguments for posts_add.
type AddRequest struct {
	Title string `json:"title"`
	contentFields
	Status        string   `json:"status,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	CustomExcerpt *string  `json:"custom_excerpt,omitempty"`
	FeatureImage  *string  `json:"feature_image,omitempty"`
	PublishedAt   *string  `json:"published_at,omitempty"`
	Visibility    *string  `json:"visibility,omitempty"`
	Featured      *bool    `json:"featured,omitempty"`
}

// EditRequest represents the arguments for posts_edit.
type EditRequest struct {
	ID        string  `json:"id"`
	UpdatedAt string  `json:"updated_at"`
	Title     *string `json:"title,omitempty"`
	contentFields
	Status        *string   `json:"status,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	CustomExcerpt *string   `json:"custom_excerpt,omitempty"`
	FeatureImage  *string   `json:"feature_image,omitempty"`
	PublishedAt   *string   `json:"published_at,omitempty"`
	Visibility    *string   `json:"visibility,omitempty"`
	Featured      *bool     `json:"featured,omitempty"`
}

// DeleteRequest represents the arguments for posts_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// SyncRequest represents the arguments for posts_pull and posts_push.
type SyncRequest struct {
	IDs    []string `json:"ids,omitempty"`
	Format string   `json:"format,omitempty"`
}

// HistoryRequest represents the arguments for posts_sync_history.
type HistoryRequest struct {
	RunID     string `json:"run_id,omitempty"`
	Direction string `json:"direction,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// PurgeRequest represents the arguments for posts_sync_purge.
type PurgeRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

// Handler implementations

// HandleBrowse handles the posts_browse tool call.
func (h *Handlers) HandleBrowse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BrowseRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	store, err := h.postStore()
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Browse(ctx, store, ops.BrowseInput{
		Filter: input.Filter,
		Order:  input.Order,
		Limit:  input.Limit,
		Page:   input.Page,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRead handles the posts_read tool call.
func (h *Handlers) HandleRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReadRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	store, err := h.postStore()
	if err != nil {
		return errorResult(err), nil
	}

	post, err := ops.Read(ctx, store, ops.ReadInput{
		ID:      input.ID,
		Slug:    input.Slug,
		Formats: input.Formats,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(post)
}

// HandleAdd handles the posts_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	store, err := h.postStore()
	if err != nil {
		return errorResult(err), nil
	}

	post, err := ops.Add(ctx, store, h.resolver, ops.AddInput{
		Title:         input.Title,
		ContentInput:  input.contentFields.input(),
		Status:        input.Status,
		Tags:          input.Tags,
		CustomExcerpt: input.CustomExcerpt,
		FeatureImage:  input.FeatureImage,
		PublishedAt:   input.PublishedAt,
		Visibility:    input.Visibility,
		Featured:      input.Featured,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(post)
}

// HandleEdit handles the posts_edit tool call.
func (h *Handlers) HandleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EditRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	store, err := h.postStore()
	if err != nil {
		return errorResult(err), nil
	}

	// nil leaves tags alone; an explicit empty list clears them
	var tags []string
	if input.Tags != nil {
		tags = append([]string{}, *input.Tags...)
	}

	post, err := ops.Edit(ctx, store, h.resolver, ops.EditInput{
		ID:            input.ID,
		UpdatedAt:     input.UpdatedAt,
		Title:         input.Title,
		ContentInput:  input.contentFields.input(),
		Status:        input.Status,
		Tags:          tags,
		CustomExcerpt: input.CustomExcerpt,
		FeatureImage:  input.FeatureImage,
		PublishedAt:   input.PublishedAt,
		Visibility:    input.Visibility,
		Featured:      input.Featured,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(post)
}

// HandleDelete handles the posts_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	store, err := h.postStore()
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Delete(ctx, store, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePull handles the posts_pull tool call.
func (h *Handlers) HandlePull(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SyncRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if h.syncer == nil {
		return errorResult(h.storeErr), nil
	}

	report, err := ops.Pull(ctx, h.syncer, h.db, ops.SyncInput{IDs: input.IDs, Format: input.Format})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(report)
}

// HandlePush handles the posts_push tool call.
func (h *Handlers) HandlePush(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SyncRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if h.syncer == nil {
		return errorResult(h.storeErr), nil
	}

	report, err := ops.Push(ctx, h.syncer, h.db, ops.SyncInput{IDs: input.IDs, Format: input.Format})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(report)
}

// HandleHistory handles the posts_sync_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.History(h.db, ops.HistoryInput{
		RunID:     input.RunID,
		Direction: input.Direction,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePurge handles the posts_sync_purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurgeRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Purge(h.db, ops.PurgeInput{OlderThanDays: input.OlderThanDays})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Resource handlers

// HandlePostResource serves post://{post_id} as the post's JSON.
func (h *Handlers) HandlePostResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, err := postIDFromURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	store, err := h.postStore()
	if err != nil {
		return nil, err
	}

	post, err := ops.Read(ctx, store, ops.ReadInput{ID: id})
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, post)
}

// HandleBlogInfoResource serves blog://info from Ghost's site endpoint.
func (h *Handlers) HandleBlogInfoResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	store, err := h.postStore()
	if err != nil {
		return nil, err
	}

	site, err := ops.Site(ctx, store)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, site)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(b)},
	}, nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if gErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    gErr.Code,
			"message": gErr.Message,
			"status":  gErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if gErr.Code != errors.ErrInternal && gErr.Details != nil {
			errorObj["details"] = gErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
