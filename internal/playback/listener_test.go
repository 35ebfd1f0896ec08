package playback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startListener(t *testing.T, opts ...ListenerOption) (*Listener, *httptest.Server, chan int64) {
	t.Helper()
	positions := make(chan int64, 16)
	l := NewListener(func(ms int64) { positions <- ms }, opts...)
	srv := httptest.NewServer(l.Handler())
	t.Cleanup(srv.Close)
	return l, srv, positions
}

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	header := http.Header{}
	header.Set("Origin", origin)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/playback", &websocket.DialOptions{
		HTTPHeader: header,
	})
	return conn, err
}

func writeText(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestListenerRelaysPositions(t *testing.T) {
	_, srv, positions := startListener(t)
	conn, err := dial(t, srv, DefaultOrigin)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	writeText(t, conn, map[string]any{"type": "other", "payload": map[string]any{"position": 1}})
	writeText(t, conn, map[string]any{"type": "playback_update"})
	writeText(t, conn, map[string]any{"type": "playback_update", "payload": map[string]any{"position": 4321.7}})

	select {
	case got := <-positions:
		assert.Equal(t, int64(4321), got)
	case <-time.After(3 * time.Second):
		t.Fatal("no position relayed")
	}
	assert.Empty(t, positions)
}

func TestListenerRejectsForeignOrigin(t *testing.T) {
	_, srv, _ := startListener(t)
	_, err := dial(t, srv, "https://evil.example.com")
	require.Error(t, err)
}

func TestListenerCustomOrigins(t *testing.T) {
	_, srv, positions := startListener(t, WithOrigins("http://localhost:3000"))
	_, err := dial(t, srv, DefaultOrigin)
	require.Error(t, err)

	conn, err := dial(t, srv, "http://localhost:3000")
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")
	writeText(t, conn, map[string]any{"type": "playback_update", "payload": map[string]any{"position": 10}})
	select {
	case got := <-positions:
		assert.Equal(t, int64(10), got)
	case <-time.After(3 * time.Second):
		t.Fatal("no position relayed")
	}
}

func TestListenerBroadcast(t *testing.T) {
	l, srv, _ := startListener(t)
	conn, err := dial(t, srv, DefaultOrigin)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return l.Connected() == 1 }, 3*time.Second, 10*time.Millisecond)
	l.Toggle()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"toggle"}`, string(data))
}

func TestListenerHealthz(t *testing.T) {
	_, srv, _ := startListener(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDecodeUpdate(t *testing.T) {
	pos, ok := decodeUpdate([]byte(`{"type":"playback_update","payload":{"position":12}}`))
	assert.True(t, ok)
	assert.Equal(t, int64(12), pos)

	_, ok = decodeUpdate([]byte(`{"type":"playback_update","payload":{"position":-1}}`))
	assert.False(t, ok)
	_, ok = decodeUpdate([]byte(`not json`))
	assert.False(t, ok)
}

func TestDecodeUpdateRejectsOutOfRangePositions(t *testing.T) {
	_, ok := decodeUpdate([]byte(`{"type":"playback_update","payload":{"position":9.3e18}}`))
	assert.False(t, ok)
	_, ok = decodeUpdate([]byte(`{"type":"playback_update","payload":{"position":1e300}}`))
	assert.False(t, ok)

	pos, ok := decodeUpdate([]byte(`{"type":"playback_update","payload":{"position":4.5e12}}`))
	assert.True(t, ok)
	assert.Equal(t, int64(4500000000000), pos)
}
