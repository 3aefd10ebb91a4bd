// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pulsegrid/pulsegrid/internal/contract"
)

// NewMCPServer initializes and configures the PulseGrid MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"PulseGrid Analytics Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: build_timeline ---
	s.AddTool(mcp.NewTool("build_timeline",
		mcp.WithDescription("Align wide-format rows to a continuous calendar axis and bucket them for charting."),
		mcp.WithString("input_file", mcp.Description("Path to the CSV input file."), mcp.Required()),
		mcp.WithString("columns", mcp.Description("Comma-separated column list (defaults to the CSV header).")),
		mcp.WithString("categories", mcp.Description("Comma-separated category columns (defaults to every non-axis column).")),
	), h.handleBuildTimeline)

	// --- 2. Tool: aggregate_categories ---
	s.AddTool(mcp.NewTool("aggregate_categories",
		mcp.WithDescription("Reduce input rows to one value per category using the requested aggregation."),
		mcp.WithString("input_file", mcp.Description("Path to the CSV input file."), mcp.Required()),
		mcp.WithString("agg", mcp.Description("Aggregation mode. Defaults to 'sum'."), mcp.Enum("none", "sum", "count", "distinctCount", "avg", "min", "max", "first", "last")),
		mcp.WithBoolean("advanced", mcp.Description("Use the advanced aggregation path (distinct tracking, first/last).")),
		mcp.WithString("columns", mcp.Description("Comma-separated column list.")),
		mcp.WithString("categories", mcp.Description("Comma-separated category columns.")),
	), h.handleAggregateCategories)

	// --- 3. Tool: compute_period_deltas ---
	s.AddTool(mcp.NewTool("compute_period_deltas",
		mcp.WithDescription("Compare the current period against the prior period for each legend label."),
		mcp.WithString("source", mcp.Description("Totals table or view to query."), mcp.Required()),
		mcp.WithString("date_field", mcp.Description("Date column used to bound both periods."), mcp.Required()),
		mcp.WithString("period", mcp.Description("Comparison window."), mcp.Required(), mcp.Enum("TD_YSTD", "TW_LW", "MONTH_LMONTH", "MTD_LMTD", "TY_LY", "YTD_LYTD", "TQ_LQ")),
		mcp.WithString("agg", mcp.Description("Aggregation mode for totals."), mcp.Enum("none", "sum", "count", "distinctCount", "avg", "min", "max", "first", "last")),
		mcp.WithString("week_start", mcp.Description("First day of the week for weekly periods."), mcp.Enum("sat", "sun", "mon")),
		mcp.WithNumber("tz_offset", mcp.Description("Timezone offset in minutes applied before bucketing.")),
		mcp.WithString("y", mcp.Description("Value column to aggregate.")),
		mcp.WithString("measure", mcp.Description("Named measure expression overriding the y column.")),
	), h.handleComputePeriodDeltas)

	return s
}

// StartMCPServer starts the PulseGrid MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
