// Package netctx owns the process-wide proxy configuration.
//
// The proxy variables in the process environment are a single global
// resource. Context is the only component allowed to touch them: reads go
// through Detect, writes go through a Batch obtained from Acquire, which
// gives the holder exclusive access until Release. A probe batch that
// needs "proxy off" for its whole duration holds one Batch throughout.
package netctx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"

	"golang.org/x/net/http/httpproxy"
)

// State is the observed proxy state.
type State string

const (
	StateOn      State = "on"
	StateOff     State = "off"
	StateUnknown State = "unknown"
)

// Variables mutated as one set, lower-case first.
var (
	httpVars  = []string{"http_proxy", "HTTP_PROXY"}
	httpsVars = []string{"https_proxy", "HTTPS_PROXY"}
	allVars   = []string{"all_proxy", "ALL_PROXY"}
)

// Env abstracts the process environment.
type Env interface {
	Getenv(key string) string
	Setenv(key, value string) error
	Unsetenv(key string) error
}

// OSEnv is the real process environment.
type OSEnv struct{}

func (OSEnv) Getenv(key string) string        { return os.Getenv(key) }
func (OSEnv) Setenv(key, value string) error { return os.Setenv(key, value) }
func (OSEnv) Unsetenv(key string) error      { return os.Unsetenv(key) }

// MapEnv is an in-memory Env for tests.
type MapEnv struct {
	mu   sync.Mutex
	vars map[string]string
	// FailOn makes Setenv fail for that key.
	FailOn string
}

// NewMapEnv returns an empty MapEnv.
func NewMapEnv() *MapEnv { return &MapEnv{vars: make(map[string]string)} }

func (m *MapEnv) Getenv(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vars[key]
}

func (m *MapEnv) Setenv(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key == m.FailOn {
		return fmt.Errorf("setenv %s: refused", key)
	}
	m.vars[key] = value
	return nil
}

func (m *MapEnv) Unsetenv(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vars, key)
	return nil
}

// Settings are the proxy addresses applied when the proxy is switched on.
type Settings struct {
	HTTP  string
	HTTPS string
	SOCKS string
}

// Context is the single owner of the proxy variables.
type Context struct {
	env      Env
	settings Settings
	sem      chan struct{}
	envMu    sync.RWMutex
}

// New creates a Context over env.
func New(env Env, settings Settings) *Context {
	if env == nil {
		env = OSEnv{}
	}
	return &Context{env: env, settings: settings, sem: make(chan struct{}, 1)}
}

// Settings returns the configured proxy addresses.
func (c *Context) Settings() Settings { return c.settings }

// Batch is exclusive write access to the proxy configuration.
type Batch struct {
	c        *Context
	once     sync.Once
	released bool
}

// Acquire blocks until exclusive access is available or ctx is done.
func (c *Context) Acquire(ctx context.Context) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("waiting for proxy configuration: %w", err)
	}
	select {
	case c.sem <- struct{}{}:
		return &Batch{c: c}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for proxy configuration: %w", ctx.Err())
	}
}

// Release gives up exclusive access. Calling it more than once is harmless.
func (b *Batch) Release() {
	b.once.Do(func() {
		b.released = true
		<-b.c.sem
	})
}

// Apply switches the proxy on or off. All six variables change together;
// if any write fails the previous values are restored.
func (b *Batch) Apply(state State) error {
	if b.released {
		return fmt.Errorf("apply %s: batch already released", state)
	}
	if state != StateOn && state != StateOff {
		return fmt.Errorf("apply: unsupported proxy state %q", state)
	}
	return b.c.apply(state)
}

// Detect reports the state as seen by the batch holder.
func (b *Batch) Detect() State { return b.c.Detect() }

func (c *Context) apply(state State) error {
	c.envMu.Lock()
	defer c.envMu.Unlock()

	keys := append(append(append([]string{}, httpVars...), httpsVars...), allVars...)
	previous := make(map[string]string, len(keys))
	for _, k := range keys {
		previous[k] = c.env.Getenv(k)
	}

	var err error
	if state == StateOn {
		err = c.setAll(map[string]string{
			httpVars[0]: c.settings.HTTP, httpVars[1]: c.settings.HTTP,
			httpsVars[0]: c.settings.HTTPS, httpsVars[1]: c.settings.HTTPS,
			allVars[0]: c.settings.SOCKS, allVars[1]: c.settings.SOCKS,
		}, keys)
	} else {
		for _, k := range keys {
			if err = c.env.Unsetenv(k); err != nil {
				break
			}
		}
	}

	if err != nil {
		// roll back so no partial state survives
		for _, k := range keys {
			if v := previous[k]; v != "" {
				_ = c.env.Setenv(k, v)
			} else {
				_ = c.env.Unsetenv(k)
			}
		}
		return fmt.Errorf("failed to switch proxy %s: %w", state, err)
	}
	return nil
}

func (c *Context) setAll(values map[string]string, order []string) error {
	for _, k := range order {
		v := values[k]
		if v == "" {
			if err := c.env.Unsetenv(k); err != nil {
				return err
			}
			continue
		}
		if err := c.env.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}

// lookup prefers the lower-case variable like most tools do.
func (c *Context) lookup(names []string) string {
	for _, n := range names {
		if v := c.env.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// Detect reports on only if both HTTP and HTTPS proxies are set, off only
// if neither is, unknown otherwise.
func (c *Context) Detect() State {
	c.envMu.RLock()
	defer c.envMu.RUnlock()

	hasHTTP := c.lookup(httpVars) != ""
	hasHTTPS := c.lookup(httpsVars) != ""
	switch {
	case hasHTTP && hasHTTPS:
		return StateOn
	case !hasHTTP && !hasHTTPS:
		return StateOff
	default:
		return StateUnknown
	}
}

// ProxyFunc returns an http.Transport Proxy function that resolves against
// the current variables on every request, unlike http.ProxyFromEnvironment
// which reads them once per process.
func (c *Context) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		c.envMu.RLock()
		cfg := httpproxy.Config{
			HTTPProxy:  c.lookup(httpVars),
			HTTPSProxy: c.lookup(httpsVars),
			NoProxy:    c.lookup([]string{"no_proxy", "NO_PROXY"}),
		}
		c.envMu.RUnlock()
		return cfg.ProxyFunc()(req.URL)
	}
}

// Export returns shell statements reproducing the given state, for
// `eval "$(clawguard net pon --export)"`.
func (c *Context) Export(state State) []string {
	var lines []string
	switch state {
	case StateOn:
		for _, k := range httpVars {
			lines = append(lines, fmt.Sprintf("export %s=%s", k, c.settings.HTTP))
		}
		for _, k := range httpsVars {
			lines = append(lines, fmt.Sprintf("export %s=%s", k, c.settings.HTTPS))
		}
		for _, k := range allVars {
			lines = append(lines, fmt.Sprintf("export %s=%s", k, c.settings.SOCKS))
		}
	case StateOff:
		for _, group := range [][]string{httpVars, httpsVars, allVars} {
			for _, k := range group {
				lines = append(lines, "unset "+k)
			}
		}
	}
	return lines
}

// Environ returns the proxy variables for the given state as KEY=value
// pairs, for passing to a child process.
func (c *Context) Environ(state State) []string {
	if state != StateOn {
		return nil
	}
	var env []string
	for _, k := range httpVars {
		env = append(env, k+"="+c.settings.HTTP)
	}
	for _, k := range httpsVars {
		env = append(env, k+"="+c.settings.HTTPS)
	}
	return env
}
