package netctx

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSettings = Settings{
	HTTP:  "http://127.0.0.1:4780",
	HTTPS: "http://127.0.0.1:4780",
	SOCKS: "socks5://127.0.0.1:4781",
}

func TestApplyAndDetect(t *testing.T) {
	env := NewMapEnv()
	c := New(env, testSettings)
	assert.Equal(t, StateOff, c.Detect())

	b, err := c.Acquire(context.Background())
	require.NoError(t, err)
	defer b.Release()

	require.NoError(t, b.Apply(StateOn))
	assert.Equal(t, StateOn, c.Detect())
	assert.Equal(t, "http://127.0.0.1:4780", env.Getenv("HTTPS_PROXY"))
	assert.Equal(t, "socks5://127.0.0.1:4781", env.Getenv("all_proxy"))

	require.NoError(t, b.Apply(StateOff))
	assert.Equal(t, StateOff, c.Detect())
	for _, k := range []string{"http_proxy", "HTTP_PROXY", "https_proxy", "HTTPS_PROXY", "all_proxy", "ALL_PROXY"} {
		assert.Empty(t, env.Getenv(k), k)
	}
}

func TestDetect_PartialIsUnknown(t *testing.T) {
	env := NewMapEnv()
	require.NoError(t, env.Setenv("HTTP_PROXY", "http://proxy:1"))
	c := New(env, testSettings)
	assert.Equal(t, StateUnknown, c.Detect())

	require.NoError(t, env.Setenv("https_proxy", "http://proxy:1"))
	assert.Equal(t, StateOn, c.Detect())
}

func TestApply_RollsBackOnFailure(t *testing.T) {
	env := NewMapEnv()
	env.FailOn = "all_proxy"
	c := New(env, testSettings)

	b, err := c.Acquire(context.Background())
	require.NoError(t, err)
	defer b.Release()

	err = b.Apply(StateOn)
	require.Error(t, err)
	assert.Equal(t, StateOff, c.Detect(), "no partial state survives a failed switch")
	assert.Empty(t, env.Getenv("http_proxy"))
}

func TestApply_RejectsUnknownState(t *testing.T) {
	c := New(NewMapEnv(), testSettings)
	b, err := c.Acquire(context.Background())
	require.NoError(t, err)
	defer b.Release()
	assert.Error(t, b.Apply(StateUnknown))
}

func TestAcquire_IsExclusive(t *testing.T) {
	c := New(NewMapEnv(), testSettings)

	first, err := c.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	first.Release()
	first.Release()

	second, err := c.Acquire(context.Background())
	require.NoError(t, err)
	second.Release()

	assert.Error(t, first.Apply(StateOn), "released batch can no longer write")
}

func TestProxyFunc_FollowsCurrentState(t *testing.T) {
	c := New(NewMapEnv(), testSettings)
	proxy := c.ProxyFunc()
	req, err := http.NewRequest(http.MethodGet, "https://www.google.com", nil)
	require.NoError(t, err)

	u, err := proxy(req)
	require.NoError(t, err)
	assert.Nil(t, u)

	b, err := c.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.Apply(StateOn))
	b.Release()

	u, err = proxy(req)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "127.0.0.1:4780", u.Host)

	local, err := http.NewRequest(http.MethodGet, "http://localhost:18789/status", nil)
	require.NoError(t, err)
	u, err = proxy(local)
	require.NoError(t, err)
	assert.Nil(t, u, "loopback is never proxied")
}

func TestExport(t *testing.T) {
	c := New(NewMapEnv(), testSettings)
	on := c.Export(StateOn)
	assert.Contains(t, on, "export http_proxy=http://127.0.0.1:4780")
	assert.Contains(t, on, "export ALL_PROXY=socks5://127.0.0.1:4781")
	assert.Len(t, on, 6)

	off := c.Export(StateOff)
	assert.Contains(t, off, "unset HTTPS_PROXY")
	assert.Len(t, off, 6)

	assert.Empty(t, c.Export(StateUnknown))
}
