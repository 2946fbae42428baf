package toolserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teranos/promptvars/extract"
	"github.com/teranos/promptvars/render"
	"github.com/teranos/promptvars/store"
	"github.com/teranos/promptvars/types"
)

func (s *Server) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var existing []types.Variable
	if _, err := decodeArg(request, "existing_variables", &existing); err != nil {
		return failure("read existing_variables", err), nil
	}

	proposal := extract.Propose(text, existing)
	status := fmt.Sprintf("Detected %d variable(s), %d new", len(proposal.Variables), len(proposal.AddedVariables))
	return respond(status, proposal)
}

func (s *Server) handleRender(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := request.GetString("template", "")
	var vars []types.Variable
	if _, err := decodeArg(request, "variables", &vars); err != nil {
		return failure("read variables", err), nil
	}
	values := map[string]any{}
	if _, err := decodeArg(request, "values", &values); err != nil {
		return failure("read values", err), nil
	}

	if id := request.GetString("template_id", ""); id != "" {
		t, found, err := s.store.Get(ctx, id)
		if err != nil {
			return failure("load template", err), nil
		}
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("Template %s not found", id)), nil
		}
		text, vars = t.Template, t.Variables
	}
	if text == "" {
		return mcp.NewToolResultError("either template or template_id is required"), nil
	}

	result := render.Render(text, vars, values)
	status := "Rendered"
	if len(result.MissingRequired) > 0 {
		status = fmt.Sprintf("Rendered with %d missing required variable(s)", len(result.MissingRequired))
	}
	return respond(status, result)
}

func (s *Server) handleSave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := request.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var vars []types.Variable
	if _, err := decodeArg(request, "variables", &vars); err != nil {
		return failure("read variables", err), nil
	}

	if request.GetBool("extract", false) {
		proposal := extract.Propose(text, vars)
		text, vars = proposal.NormalizedTemplate, proposal.Variables
	}
	saved, err := s.store.Save(ctx, &types.Template{
		ID:        id,
		Name:      request.GetString("name", ""),
		Template:  text,
		Variables: vars,
	})
	if err != nil {
		return failure("save template", err), nil
	}
	return respond(fmt.Sprintf("Saved template %s", saved.ID), saved)
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return failure("list templates", err), nil
	}
	return respond(fmt.Sprintf("Found %d template(s)", len(all)), all)
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, found, err := s.store.Get(ctx, id)
	if err != nil {
		return failure("get template", err), nil
	}
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("Template %s not found", id)), nil
	}
	return respond(fmt.Sprintf("Template %s", id), t)
}

func (s *Server) handleUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	patch := store.Patch{
		Name:     request.GetString("name", ""),
		Template: request.GetString("template", ""),
	}
	if _, err := decodeArg(request, "variables", &patch.Variables); err != nil {
		return failure("read variables", err), nil
	}
	t, found, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return failure("update template", err), nil
	}
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("Template %s not found", id)), nil
	}
	return respond(fmt.Sprintf("Updated template %s", id), t)
}

func (s *Server) handleDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return failure("delete template", err), nil
	}
	if !deleted {
		return mcp.NewToolResultError(fmt.Sprintf("Template %s not found", id)), nil
	}
	return respond(fmt.Sprintf("Deleted template %s", id), map[string]interface{}{"id": id, "deleted": true})
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	matches, err := s.store.Search(ctx, query, request.GetInt("limit", 0))
	if err != nil {
		return failure("search templates", err), nil
	}
	return respond(fmt.Sprintf("Found %d template(s) matching %q", len(matches), query), matches)
}

func (s *Server) handleListVersions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	versions, err := s.store.ListVersions(ctx, id, request.GetInt("limit", 0))
	if err != nil {
		return failure("list versions", err), nil
	}
	return respond(fmt.Sprintf("Found %d version(s) of %s", len(versions), id), versions)
}

func (s *Server) handleRestore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	versionID, err := request.RequireString("version_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t, found, err := s.store.RestoreVersion(ctx, id, versionID)
	if err != nil {
		return failure("restore version", err), nil
	}
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("Version %s of template %s not found", versionID, id)), nil
	}
	return respond(fmt.Sprintf("Restored %s to version %s", id, versionID), t)
}
