// Package tui provides the live terminal dashboard for clawguard.
//
// The dashboard is read-only over the files the monitor and network loops
// persist: the status snapshot, the latest health report and the two event
// logs. It can therefore run next to `clawguard serve` or a plain
// `clawguard monitor` in another terminal without talking to either.
//
// # Layout
//
//   - Header: monitor state and the time of the last refresh.
//   - Monitor panel: running flag, failure count, heartbeat age, last error.
//   - Network panel: per-category verdicts and the composite health.
//   - Event log: recent transitions and network events, newest last.
//
// # Keys
//
//	r      refresh now
//	y      copy the status snapshot as JSON
//	L      toggle the event log
//	h      toggle help
//	q      quit
package tui
