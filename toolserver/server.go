// Package toolserver exposes extraction, rendering and the template store
// as Model Context Protocol tools over stdio.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/teranos/promptvars/am"
	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/logger"
	"github.com/teranos/promptvars/store"
)

// Tool names
const (
	ToolExtractVariables       = "extract_variables"
	ToolRenderTemplate         = "render_template"
	ToolSaveTemplate           = "save_template"
	ToolListTemplates          = "list_templates"
	ToolGetTemplate            = "get_template"
	ToolUpdateTemplate         = "update_template"
	ToolDeleteTemplate         = "delete_template"
	ToolSearchTemplates        = "search_templates"
	ToolListTemplateVersions   = "list_template_versions"
	ToolRestoreTemplateVersion = "restore_template_version"
)

type handlerFunc = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Server serves the promptvars tools
type Server struct {
	store  store.Store
	log    *zap.SugaredLogger
	server *server.MCPServer
}

// New registers every tool against st
func New(st store.Store, cfg am.ServerConfig, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	name := cfg.Name
	if name == "" {
		name = am.DefaultServerName
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		store:  st,
		log:    log,
		server: server.NewMCPServer(name, version, server.WithToolCapabilities(true)),
	}
	s.registerTools()
	return s
}

// MCP returns the underlying protocol server
func (s *Server) MCP() *server.MCPServer {
	return s.server
}

// Serve blocks serving tools on stdin/stdout
func (s *Server) Serve() error {
	s.log.Infow("Serving tools over stdio")
	return server.ServeStdio(s.server)
}

func (s *Server) registerTools() {
	s.add(mcp.NewTool(ToolExtractVariables,
		mcp.WithDescription("Normalize placeholders in a prompt and propose a typed variable schema"),
		mcp.WithString("template",
			mcp.Required(),
			mcp.Description("Prompt text, any placeholder syntax"),
		),
		mcp.WithArray("existing_variables",
			mcp.Description("Variable definitions already declared for this template"),
		),
	), s.handleExtract)

	s.add(mcp.NewTool(ToolRenderTemplate,
		mcp.WithDescription("Substitute values into a template and report missing required variables"),
		mcp.WithString("template_id",
			mcp.Description("Render a stored template (overrides template and variables)"),
		),
		mcp.WithString("template",
			mcp.Description("Template text with {{name}} placeholders"),
		),
		mcp.WithArray("variables",
			mcp.Description("Variable definitions for template"),
		),
		mcp.WithObject("values",
			mcp.Description("Values keyed by variable name"),
		),
	), s.handleRender)

	s.add(mcp.NewTool(ToolSaveTemplate,
		mcp.WithDescription("Create or replace a template and record a new version"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Template id")),
		mcp.WithString("name", mcp.Description("Display name")),
		mcp.WithString("template", mcp.Required(), mcp.Description("Template text")),
		mcp.WithArray("variables", mcp.Description("Variable definitions")),
		mcp.WithBoolean("extract",
			mcp.Description("Normalize the text and merge proposed variables before saving (default: false)"),
		),
	), s.handleSave)

	s.add(mcp.NewTool(ToolListTemplates,
		mcp.WithDescription("List every stored template, oldest first"),
	), s.handleList)

	s.add(mcp.NewTool(ToolGetTemplate,
		mcp.WithDescription("Fetch one stored template"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Template id")),
	), s.handleGet)

	s.add(mcp.NewTool(ToolUpdateTemplate,
		mcp.WithDescription("Change fields of a stored template; omitted fields are kept"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Template id")),
		mcp.WithString("name", mcp.Description("New display name")),
		mcp.WithString("template", mcp.Description("New template text")),
		mcp.WithArray("variables", mcp.Description("New variable definitions")),
	), s.handleUpdate)

	s.add(mcp.NewTool(ToolDeleteTemplate,
		mcp.WithDescription("Delete a template and its whole version history"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Template id")),
	), s.handleDelete)

	s.add(mcp.NewTool(ToolSearchTemplates,
		mcp.WithDescription("Case-insensitive search over names, text and variable names"),
		mcp.WithString("query", mcp.Description("Search text; empty lists everything")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum results (default: %d)", store.DefaultSearchLimit))),
	), s.handleSearch)

	s.add(mcp.NewTool(ToolListTemplateVersions,
		mcp.WithDescription("List versions of a template, newest first"),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Template id")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum versions (default: %d)", store.DefaultVersionsLimit))),
	), s.handleListVersions)

	s.add(mcp.NewTool(ToolRestoreTemplateVersion,
		mcp.WithDescription("Save the content of an earlier version as a new version"),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Template id")),
		mcp.WithString("version_id", mcp.Required(), mcp.Description("Version to restore")),
	), s.handleRestore)
}

// add registers a tool with a request id and a log line per call
func (s *Server) add(tool mcp.Tool, handler handlerFunc) {
	name := tool.Name
	s.server.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = logger.WithRequestID(ctx, uuid.NewString())
		start := time.Now()
		result, err := handler(ctx, request)

		log := logger.LoggerFromContext(ctx, s.log)
		fields := []interface{}{logger.FieldTool, name, logger.FieldDurationMS, time.Since(start).Milliseconds()}
		if err != nil || (result != nil && result.IsError) {
			log.Warnw("Tool call failed", fields...)
		} else {
			log.Debugw("Tool call", fields...)
		}
		return result, err
	})
}

// respond builds a result with a status line followed by the JSON payload
func respond(status string, payload interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(status),
			mcp.NewTextContent(string(data)),
		},
	}, nil
}

// failure turns a store or validation error into a tool error result
func failure(action string, err error) *mcp.CallToolResult {
	switch {
	case errors.IsInvalidRequestError(err):
		return mcp.NewToolResultError(fmt.Sprintf("Invalid request: %v", err))
	case errors.IsBackendError(err):
		return mcp.NewToolResultError(fmt.Sprintf("Storage error while trying to %s: %v", action, err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
	}
}

// decodeArg decodes an optional argument into dst. JSON given as a string
// is accepted too. Returns false when the argument is absent.
func decodeArg(request mcp.CallToolRequest, key string, dst interface{}) (bool, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return false, nil
	}

	var data []byte
	if text, isString := raw.(string); isString {
		if text == "" {
			return false, nil
		}
		data = []byte(text)
	} else {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return false, errors.Wrapf(err, "argument %q", key)
		}
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, errors.NewInvalidRequestError("argument %q is malformed: %v", key, err)
	}
	return true, nil
}
