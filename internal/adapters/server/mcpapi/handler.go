// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/evanschultz/lanes/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the board tools.
func NewHandler(cfg Config, board common.BoardService) (*Handler, error) {
	if board == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerBoardTools(mcpSrv, board)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "lanes"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerBoardTools registers the lanes.* board tools.
func registerBoardTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"lanes.board",
			mcp.WithDescription("Return the board grouped into pending, in-progress, and completed lanes."),
			mcp.WithBoolean("refresh", mcp.Description("Reload from the todos API before returning")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			view, err := board.Board(ctx, req.GetBool("refresh", false))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("board", view)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lanes.add_todo",
			mcp.WithDescription("Add one todo to the end of the in-progress lane."),
			mcp.WithString("text", mcp.Required(), mcp.Description("Todo text")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			text, err := req.RequireString("text")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			res, err := board.AddTodo(ctx, common.AddTodoRequest{Text: text})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("add_todo", res)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lanes.edit_todo",
			mcp.WithDescription("Replace the text of one todo; its lane and owner are kept."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Todo id")),
			mcp.WithString("text", mcp.Required(), mcp.Description("New todo text")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireInt("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			text, err := req.RequireString("text")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			res, err := board.EditTodo(ctx, common.EditTodoRequest{ID: id, Text: text})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("edit_todo", res)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lanes.move_todo",
			mcp.WithDescription("Drop one todo into a lane; cross-lane moves update the todos API."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Todo id")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Target lane"), mcp.Enum("pending", "in-progress", "completed")),
			mcp.WithNumber("index", mcp.Description("Target index in the lane; defaults to the end")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireInt("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			status, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			move := common.MoveTodoRequest{ID: id, Status: status}
			if index, err := req.RequireInt("index"); err == nil {
				move.Index = &index
			}
			res, err := board.MoveTodo(ctx, move)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("move_todo", res)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lanes.delete_todo",
			mcp.WithDescription("Delete one todo."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Todo id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireInt("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			res, err := board.DeleteTodo(ctx, id)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_todo", res)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lanes.activity",
			mcp.WithDescription("List recent board activity, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum entries to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			entries, err := board.Activity(ctx, req.GetInt("limit", 0))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("activity", map[string]any{"events": entries})
		},
	)
}

// jsonResult encodes one structured tool result.
func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrUpstreamFailed):
		return mcp.NewToolResultError("upstream_failed: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
