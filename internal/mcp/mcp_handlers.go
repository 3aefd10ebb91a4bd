package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pulsegrid/pulsegrid/core"
	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/pulsegrid/pulsegrid/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

func (h *toolHandler) handleBuildTimeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	applyDatasetArgs(cfg, request)

	tc, err := core.GetTimelineResults(core.WithSuppressHeader(ctx), cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("timeline build failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(tc, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleAggregateCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	applyDatasetArgs(cfg, request)
	if a := request.GetString("agg", ""); a != "" {
		if _, ok := schema.ValidAggModes[schema.AggMode(a)]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid agg mode: %s", a)), nil
		}
		cfg.Agg = schema.AggMode(a)
	}
	cfg.Advanced = request.GetBool("advanced", cfg.Advanced)

	totals, categories, err := core.GetAggregateResults(core.WithSuppressHeader(ctx), cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("aggregation failed: %v", err)), nil
	}

	payload := struct {
		Totals     map[string]float64 `json:"totals"`
		Categories []string           `json:"categories"`
	}{Totals: totals, Categories: categories}
	jsonData, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleComputePeriodDeltas(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if s := request.GetString("source", ""); s != "" {
		cfg.Source = s
	}
	if d := request.GetString("date_field", ""); d != "" {
		cfg.DateField = d
	}
	if p := request.GetString("period", ""); p != "" {
		if _, ok := schema.ValidPeriodModes[schema.PeriodMode(p)]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid period mode: %s", p)), nil
		}
		cfg.PeriodMode = schema.PeriodMode(p)
	}
	if a := request.GetString("agg", ""); a != "" {
		if _, ok := schema.ValidAggModes[schema.AggMode(a)]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid agg mode: %s", a)), nil
		}
		cfg.Agg = schema.AggMode(a)
	}
	if w := request.GetString("week_start", ""); w != "" {
		if _, ok := schema.ValidWeekStarts[schema.WeekStart(w)]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid week start: %s", w)), nil
		}
		cfg.WeekStart = schema.WeekStart(w)
	}
	if tz := request.GetInt("tz_offset", cfg.TZOffsetMinutes); tz != cfg.TZOffsetMinutes {
		cfg.TZOffsetMinutes = tz
	}
	if y := request.GetString("y", ""); y != "" {
		cfg.Y = y
	}
	if m := request.GetString("measure", ""); m != "" {
		cfg.Measure = m
	}

	result, err := core.GetDeltaResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delta computation failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

// applyDatasetArgs copies the shared dataset arguments onto the cloned config.
func applyDatasetArgs(cfg *contract.Config, request mcp.CallToolRequest) {
	if f := request.GetString("input_file", ""); f != "" {
		cfg.InputFile = f
	}
	if c := request.GetString("columns", ""); c != "" {
		cfg.Columns = splitCommaList(c)
	}
	if c := request.GetString("categories", ""); c != "" {
		cfg.Categories = splitCommaList(c)
	}
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
