package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clawguard/internal/backup"
	"clawguard/internal/netctx"
	"clawguard/internal/nethealth"
	"clawguard/internal/proxy"
	"clawguard/internal/reporting"
	"clawguard/internal/status"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Deps are the components exposed as tools. Nil components leave their
// tools returning an error result.
type Deps struct {
	Status        *status.Store
	MonitorEvents *reporting.EventLog
	NetworkEvents *reporting.EventLog
	Router        *proxy.Router
	Health        *nethealth.Aggregator
	HealthPath    string
	Backups       *backup.Manager
}

// Tools provides MCP tools for clawguard's monitor and network state
type Tools struct {
	deps Deps
}

// NewTools creates the tool set.
func NewTools(deps Deps) *Tools {
	return &Tools{deps: deps}
}

// ServerTools returns every tool with its handler.
func (t *Tools) ServerTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("monitor_status",
				mcp.WithDescription("Get the latest supervisor status snapshot"),
			),
			Handler: t.HandleMonitorStatus,
		},
		{
			Tool: mcp.NewTool("monitor_events",
				mcp.WithDescription("List the most recent supervisor state transitions"),
				mcp.WithNumber("limit",
					mcp.Description("Maximum number of events to return (default 20)"),
				),
			),
			Handler: t.HandleMonitorEvents,
		},
		{
			Tool: mcp.NewTool("network_health",
				mcp.WithDescription("Get the latest network health report"),
				mcp.WithBoolean("refresh",
					mcp.Description("Run a new health check instead of returning the persisted report"),
				),
			),
			Handler: t.HandleNetworkHealth,
		},
		{
			Tool: mcp.NewTool("proxy_state",
				mcp.WithDescription("Get the current proxy state and the time of the last switch"),
			),
			Handler: t.HandleProxyState,
		},
		{
			Tool: mcp.NewTool("proxy_set",
				mcp.WithDescription("Switch the proxy on or off"),
				mcp.WithString("state",
					mcp.Required(),
					mcp.Description("Desired proxy state"),
					mcp.Enum("on", "off"),
				),
			),
			Handler: t.HandleProxySet,
		},
		{
			Tool: mcp.NewTool("route_decide",
				mcp.WithDescription("Decide whether a URL should be reached directly or through the proxy"),
				mcp.WithString("url",
					mcp.Required(),
					mcp.Description("Absolute URL to classify"),
				),
			),
			Handler: t.HandleRouteDecide,
		},
		{
			Tool: mcp.NewTool("backup_create",
				mcp.WithDescription("Back up the service configuration"),
				mcp.WithString("reason",
					mcp.Description("Reason recorded in the backup (default manual)"),
				),
			),
			Handler: t.HandleBackupCreate,
		},
		{
			Tool: mcp.NewTool("backup_list",
				mcp.WithDescription("List configuration backups, oldest first"),
			),
			Handler: t.HandleBackupList,
		},
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// HandleMonitorStatus handles the monitor_status tool call
func (t *Tools) HandleMonitorStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.Status == nil {
		return mcp.NewToolResultError("status store not configured"), nil
	}
	snap, err := t.deps.Status.Load()
	if err != nil {
		if status.IsNotExist(err) {
			return mcp.NewToolResultError("no status recorded yet; is the monitor running?"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read status: %v", err)), nil
	}
	return jsonResult(snap)
}

// HandleMonitorEvents handles the monitor_events tool call
func (t *Tools) HandleMonitorEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.MonitorEvents == nil {
		return mcp.NewToolResultError("monitor event log not configured"), nil
	}
	limit := req.GetInt("limit", 20)

	// the monitor may be appending to the shared log, so read a private copy
	source := t.deps.MonitorEvents
	if path := source.Path(); path != "" {
		source = reporting.NewEventLog(path)
		if err := source.Load(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read events: %v", err)), nil
		}
	}
	events := source.Recent(limit)
	return jsonResult(map[string]interface{}{
		"events": events,
		"total":  len(events),
	})
}

// HandleNetworkHealth handles the network_health tool call
func (t *Tools) HandleNetworkHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("refresh", false) {
		if t.deps.Health == nil {
			return mcp.NewToolResultError("health checks not configured"), nil
		}
		report, err := t.deps.Health.HealthCheck(ctx)
		if err != nil && report.Timestamp.IsZero() {
			return mcp.NewToolResultError(fmt.Sprintf("Health check failed: %v", err)), nil
		}
		rendered := nethealth.Render(report)
		if t.deps.HealthPath != "" {
			if err := nethealth.SaveReport(t.deps.HealthPath, report); err != nil {
				rendered += fmt.Sprintf("\nWarning: failed to save report: %v\n", err)
			}
		}
		return mcp.NewToolResultText(rendered), nil
	}

	if t.deps.HealthPath == "" {
		return mcp.NewToolResultError("health report path not configured"), nil
	}
	report, err := nethealth.LoadReport(t.deps.HealthPath)
	if err != nil {
		if status.IsNotExist(err) {
			return mcp.NewToolResultError("no health report recorded yet; call with refresh=true"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read health report: %v", err)), nil
	}
	return mcp.NewToolResultText(nethealth.Render(report)), nil
}

// HandleProxyState handles the proxy_state tool call
func (t *Tools) HandleProxyState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.Router == nil {
		return mcp.NewToolResultError("proxy router not configured"), nil
	}
	result := map[string]interface{}{
		"state": t.deps.Router.Detect(),
	}
	if ts, ok := t.deps.Router.LastSwitch(); ok {
		result["last_switch"] = ts.Format(time.RFC3339)
	}
	return jsonResult(result)
}

// HandleProxySet handles the proxy_set tool call
func (t *Tools) HandleProxySet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.Router == nil {
		return mcp.NewToolResultError("proxy router not configured"), nil
	}
	state, err := req.RequireString("state")
	if err != nil {
		return mcp.NewToolResultError("state is required"), nil
	}

	switch netctx.State(state) {
	case netctx.StateOn:
		err = t.deps.Router.SetOn(ctx)
	case netctx.StateOff:
		err = t.deps.Router.SetOff(ctx)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid state %q: must be on or off", state)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to switch proxy %s: %v", state, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Proxy switched %s", state)), nil
}

// HandleRouteDecide handles the route_decide tool call
func (t *Tools) HandleRouteDecide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.Router == nil {
		return mcp.NewToolResultError("proxy router not configured"), nil
	}
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url is required"), nil
	}
	return jsonResult(map[string]interface{}{
		"url":   url,
		"route": t.deps.Router.Decide(url),
	})
}

// HandleBackupCreate handles the backup_create tool call
func (t *Tools) HandleBackupCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.Backups == nil {
		return mcp.NewToolResultError("backups not configured"), nil
	}
	path, err := t.deps.Backups.Backup(req.GetString("reason", "manual"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Backup failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Backup written to %s", path)), nil
}

// HandleBackupList handles the backup_list tool call
func (t *Tools) HandleBackupList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.Backups == nil {
		return mcp.NewToolResultError("backups not configured"), nil
	}
	infos, err := t.deps.Backups.List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list backups: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"backups": infos,
		"total":   len(infos),
	})
}
