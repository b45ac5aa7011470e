// Package mcpadapter exposes batch analytics as MCP tools over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/core/ports"
	"github.com/kirillkom/pii-sentinel/internal/core/usecase"
)

// Selector is the selection state the tools operate on.
type Selector interface {
	Select(ctx context.Context, batchID string) (*usecase.Selected, error)
	Current() *usecase.Selected
	Details(change usecase.DetailChange) (domain.DetailPage, error)
	Forget(batchID string) bool
	Clear()
}

type Tools struct {
	batches   ports.BatchManager
	selection Selector
}

func NewTools(batches ports.BatchManager, selection Selector) *Tools {
	return &Tools{batches: batches, selection: selection}
}

// NewServer registers every tool on a fresh MCP server.
func NewServer(version string, tools *Tools) *server.MCPServer {
	s := server.NewMCPServer("pii-sentinel", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_batches",
		mcp.WithDescription("List uploaded batches with their PII counts."),
	), tools.ListBatches)

	s.AddTool(mcp.NewTool("delete_batch",
		mcp.WithDescription("Delete a batch. Deleting the selected batch clears the selection."),
		mcp.WithString("batch_id", mcp.Required(), mcp.Description("Batch identifier")),
	), tools.DeleteBatch)

	s.AddTool(mcp.NewTool("select_batch",
		mcp.WithDescription("Load a batch analysis and make it the current selection. Returns the overview."),
		mcp.WithString("batch_id", mcp.Required(), mcp.Description("Batch identifier")),
	), tools.SelectBatch)

	s.AddTool(mcp.NewTool("clear_selection",
		mcp.WithDescription("Drop the current selection and its detail filters."),
	), tools.ClearSelection)

	s.AddTool(mcp.NewTool("risk_report",
		mcp.WithDescription("Risk assessment of the selected batch: score, level, top risks and recommendations."),
	), tools.RiskReport)

	s.AddTool(mcp.NewTool("detections",
		mcp.WithDescription("Page through detections of the selected batch. Filters and paging persist between calls; a changed filter starts at page 1."),
		mcp.WithString("type", mcp.Description("PII type to filter on, e.g. EMAIL. Passing the active type again clears it")),
		mcp.WithArray("categories", mcp.Description("Category names to keep; empty keeps all, omitted keeps the current selection"), mcp.WithStringItems()),
		mcp.WithNumber("page", mcp.Description("1-based page number; omitted keeps the current page")),
		mcp.WithNumber("page_size", mcp.Description("Rows per page")),
	), tools.Detections)

	return s
}

func (t *Tools) ListBatches(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	batches, err := t.batches.ListBatches(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(batches)
}

func (t *Tools) DeleteBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	batchID, err := req.RequireString("batch_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.batches.DeleteBatch(ctx, batchID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"deleted":           batchID,
		"selection_cleared": t.selection.Forget(batchID),
	})
}

func (t *Tools) SelectBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	batchID, err := req.RequireString("batch_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	selected, err := t.selection.Select(ctx, batchID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(selected.Overview)
}

func (t *Tools) ClearSelection(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.selection.Clear()
	return mcp.NewToolResultText("selection cleared"), nil
}

func (t *Tools) RiskReport(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	current := t.selection.Current()
	if current == nil {
		return mcp.NewToolResultError("no batch selected; call select_batch first"), nil
	}
	return jsonResult(current.Overview.Risk)
}

func (t *Tools) Detections(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, hasCategories := req.GetArguments()["categories"]
	change := usecase.DetailChange{
		Type:          req.GetString("type", ""),
		Categories:    req.GetStringSlice("categories", nil),
		SetCategories: hasCategories,
		Page:          req.GetInt("page", 0),
		PageSize:      req.GetInt("page_size", 0),
	}
	page, err := t.selection.Details(change)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(page)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
