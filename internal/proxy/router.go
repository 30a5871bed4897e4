// Package proxy decides per destination whether outbound traffic should go
// direct or through the local proxy, and switches the proxy on and off.
package proxy

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"clawguard/internal/netctx"
	"clawguard/internal/reporting"
	"clawguard/pkg/logging"
)

// Route is a routing decision for one destination.
type Route string

const (
	RouteOn   Route = "on"
	RouteOff  Route = "off"
	RouteAuto Route = "auto"
)

// Router classifies destinations by domain and owns proxy switching on top
// of a netctx.Context.
type Router struct {
	net           *netctx.Context
	domestic      []string
	international []string
	events        *reporting.EventLog
	log           *logging.Logger

	mu   sync.Mutex
	last Route
}

// New creates a Router. events may be nil.
func New(nc *netctx.Context, domestic, international []string, events *reporting.EventLog, log *logging.Logger) *Router {
	return &Router{
		net:           nc,
		domestic:      lowerAll(domestic),
		international: lowerAll(international),
		events:        events,
		log:           log.Named("ProxyRouter"),
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Decide returns the route for rawURL. The domestic list is consulted
// first, so a host matching both lists goes direct.
func (r *Router) Decide(rawURL string) Route {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		r.log.Debug("Cannot route %q: not an absolute URL", rawURL)
		return RouteAuto
	}
	host := strings.ToLower(u.Hostname())

	for _, d := range r.domestic {
		if strings.Contains(host, d) {
			return RouteOff
		}
	}
	for _, d := range r.international {
		if strings.Contains(host, d) {
			return RouteOn
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last != "" {
		return r.last
	}
	return RouteAuto
}

// SetOn switches the proxy on, waiting for any running probe batch.
func (r *Router) SetOn(ctx context.Context) error {
	return r.switchTo(ctx, netctx.StateOn)
}

// SetOff switches the proxy off, waiting for any running probe batch.
func (r *Router) SetOff(ctx context.Context) error {
	return r.switchTo(ctx, netctx.StateOff)
}

func (r *Router) switchTo(ctx context.Context, state netctx.State) error {
	b, err := r.net.Acquire(ctx)
	if err != nil {
		return err
	}
	defer b.Release()
	return r.Set(b, state)
}

// Set switches the proxy within an already held batch and records the
// switch in the event log.
func (r *Router) Set(b *netctx.Batch, state netctx.State) error {
	okType, errType := reporting.EventTypeProxyOn, reporting.EventTypeProxyOnError
	details := "proxy enabled"
	if state == netctx.StateOff {
		okType, errType = reporting.EventTypeProxyOff, reporting.EventTypeProxyOffError
		details = "proxy disabled"
	}

	if err := b.Apply(state); err != nil {
		r.log.Error(err, "Failed to switch proxy %s", state)
		r.record(errType, err.Error(), b.Detect())
		return err
	}

	r.mu.Lock()
	r.last = Route(state)
	r.mu.Unlock()

	r.log.Info("Proxy switched %s", state)
	r.record(okType, details, state)
	return nil
}

func (r *Router) record(t reporting.EventType, details string, state netctx.State) {
	if r.events == nil {
		return
	}
	if _, err := r.events.Append(t, details, string(state)); err != nil {
		r.log.Warn("Failed to persist network event: %v", err)
	}
}

// Detect reports the current proxy state.
func (r *Router) Detect() netctx.State {
	return r.net.Detect()
}

// LastSwitch returns the time of the most recent successful switch as
// recorded in the event log.
func (r *Router) LastSwitch() (time.Time, bool) {
	if r.events == nil {
		return time.Time{}, false
	}
	e, ok := r.events.Last(reporting.EventTypeProxyOn, reporting.EventTypeProxyOff)
	if !ok {
		return time.Time{}, false
	}
	return e.Timestamp, true
}

// Export returns shell statements applying state in a parent shell.
func (r *Router) Export(state netctx.State) []string {
	return r.net.Export(state)
}
