// Package api exposes clawguard's state and controls as MCP tools.
//
// The tools read the same persisted files the CLI reads, so an assistant
// connected over MCP sees exactly what `clawguard monitor status` and
// `clawguard net health` report:
//
//   - monitor_status, monitor_events: the supervisor snapshot and audit trail
//   - network_health: the latest report, or a fresh check with refresh=true
//   - proxy_state, proxy_set, route_decide: proxy inspection and control
//   - backup_create, backup_list: service config backups
//
// Tools are served over SSE when api.address is configured:
//
//	srv := api.NewServer("localhost:8090", version, api.NewTools(deps), log)
//	if err := srv.Run(ctx); err != nil {
//	    return err
//	}
package api
