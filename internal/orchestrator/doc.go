// Package orchestrator supervises the managed service and restarts it when
// it stays down.
//
// # State machine
//
// The orchestrator is in one of four states:
//
//   - Nominal: the last probe saw the service running.
//   - Degraded(n): the last n probes failed.
//   - Recovering: a restart sequence is in progress.
//   - RecoveredCooldown: a restart just succeeded; the recovery is being
//     announced before returning to Nominal.
//
// A failing probe alone never restarts anything. Recovery starts only when
// the service is Degraded and the heartbeat is older than the configured
// threshold, so a short outage is absorbed by the next ticks.
//
// # Heartbeat
//
// The heartbeat is refreshed on every tick that observes the service running
// and after a successful recovery. When a failing tick finds no usable
// heartbeat, a baseline record is written so staleness is measured from the
// first observed failure.
//
// # Restart sequence
//
// Restart runs a fixed, bounded sequence:
//
//  1. Back up the service config (failure is only logged).
//  2. Run the graceful stop command, unless forced.
//  3. Terminate every matching process.
//  4. Spawn a fresh, detached instance.
//  5. Poll the liveness probe under the RetryPolicy.
//
// With the default policy the sequence blocks for about 35 seconds at most,
// plus command timeouts.
//
// # Loop
//
// Run ticks immediately and then at a fixed interval. A tick that panics or
// fails is logged as an unhandled loop fault and the next tick waits the
// fallback delay. Cancellation is observed only between ticks; a tick in
// progress, including a restart, always completes.
//
// Every transition is appended to the audit event log and every tick ends
// with a status snapshot, so the monitor's health can be reconstructed from
// the files alone.
package orchestrator
