package tokens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/team-telnyx/telnyx-meet-sub000/internal/room"
)

type fakeConn struct {
	mu     sync.Mutex
	status room.Status
	tokens []string
}

func (f *fakeConn) Status() room.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeConn) setStatus(s room.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = s
}

func (f *fakeConn) UpdateClientToken(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return nil
}

func (f *fakeConn) updates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.tokens))
	copy(out, f.tokens)
	return out
}

func tokenServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		seen = append(seen, body.RefreshToken)
		n := len(seen)
		mu.Unlock()
		resp := map[string]any{
			"success": true,
			"data": Pair{
				AccessToken:  "access-" + string(rune('0'+n)),
				RefreshToken: "refresh-" + string(rune('0'+n)),
				ExpiresInSec: 50,
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestRefresherRenewsAndRotates(t *testing.T) {
	srv, seen := tokenServer(t)
	conn := &fakeConn{status: room.StatusConnected}

	// ttl 50ms, lead 20ms -> 30ms cadence (scaled-down production 50s/20s).
	r := NewRefresher(conn, NewClient(srv.URL), "refresh-0", 50*time.Millisecond, 20*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { defer close(done); r.Run(ctx) }()

	require.Eventually(t, func() bool { return len(conn.updates()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	updates := conn.updates()
	assert.Equal(t, "access-1", updates[0])
	assert.Equal(t, "access-2", updates[1])
	// Rotation: each call presents the refresh token from the previous pair.
	assert.Equal(t, "refresh-0", (*seen)[0])
	assert.Equal(t, "refresh-1", (*seen)[1])
}

func TestRefresherStopsAfterDisconnect(t *testing.T) {
	srv, _ := tokenServer(t)
	conn := &fakeConn{status: room.StatusConnected}
	r := NewRefresher(conn, NewClient(srv.URL), "refresh-0", 50*time.Millisecond, 20*time.Millisecond, zap.NewNop())

	done := make(chan struct{})
	go func() { defer close(done); r.Run(context.Background()) }()

	require.Eventually(t, func() bool { return len(conn.updates()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	conn.setStatus(room.StatusDisconnected)

	// The loop exits within one interval of leaving connected.
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("refresher kept running after disconnect")
	}
	after := len(conn.updates())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, after, len(conn.updates()))
}

func TestRefresherToleratesEndpointFailure(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "upstream"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": Pair{AccessToken: "ok", RefreshToken: "next"}})
	}))
	t.Cleanup(srv.Close)

	conn := &fakeConn{status: room.StatusConnected}
	r := NewRefresher(conn, NewClient(srv.URL), "first", 40*time.Millisecond, 20*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { defer close(done); r.Run(ctx) }()

	// The failed pass is skipped; the next interval succeeds.
	require.Eventually(t, func() bool { return len(conn.updates()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, "ok", conn.updates()[0])
}
