package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team-telnyx/telnyx-meet-sub000/internal/room"
)

var upgrader = websocket.Upgrader{}

// fakeSignalServer upgrades one websocket, exposes received envelopes and a
// way to push envelopes back.
type fakeSignalServer struct {
	srv      *httptest.Server
	conns    chan *websocket.Conn
	received chan Envelope
}

func newFakeSignalServer(t *testing.T) *fakeSignalServer {
	t.Helper()
	f := &fakeSignalServer{
		conns:    make(chan *websocket.Conn, 1),
		received: make(chan Envelope, 32),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- conn
		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			f.received <- env
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSignalServer) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fakeSignalServer) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-f.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no websocket connection")
		return nil
	}
}

func (f *fakeSignalServer) waitEnvelope(t *testing.T, event string) Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-f.received:
			if env.Event == event {
				return env
			}
		case <-deadline:
			t.Fatalf("envelope %q never arrived", event)
		}
	}
}

func connectedTransport(t *testing.T, f *fakeSignalServer) *Transport {
	t.Helper()
	tr := NewTransport(Options{URL: f.url()})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Connect(ctx, "room-1", "tok", json.RawMessage(`{"name":"Alice"}`)))
	t.Cleanup(func() { tr.Disconnect(room.ReasonUserInitiated) })
	return tr
}

func TestConnectSendsJoin(t *testing.T) {
	f := newFakeSignalServer(t)
	connectedTransport(t, f)
	f.waitConn(t)

	env := f.waitEnvelope(t, "join")
	var body struct {
		RoomID  string          `json:"room_id"`
		Token   string          `json:"token"`
		Context json.RawMessage `json:"context"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "room-1", body.RoomID)
	assert.Equal(t, "tok", body.Token)
	assert.JSONEq(t, `{"name":"Alice"}`, string(body.Context))
}

func TestEventsAreDecodedIntoRoomEvents(t *testing.T) {
	f := newFakeSignalServer(t)
	tr := connectedTransport(t, f)
	conn := f.waitConn(t)

	payload := `{
		"participant_id": "p2",
		"state": {
			"status": "connected",
			"participants": {
				"p1": {"origin": "local", "context": {"name": "Alice"}},
				"p2": {"origin": "remote", "context": {"name": "Bob"}}
			},
			"streams": {
				"s1": {"participant_id": "p2", "key": "self", "audio_enabled": true, "video_enabled": true, "configured": true}
			}
		}
	}`
	require.NoError(t, conn.WriteJSON(Envelope{
		Event: string(room.EventParticipantJoined),
		Data:  json.RawMessage(payload),
	}))

	select {
	case ev := <-tr.Events():
		assert.Equal(t, room.EventParticipantJoined, ev.Kind)
		assert.Equal(t, "p2", ev.ParticipantID)
		assert.Equal(t, room.StatusConnected, ev.State.Status)
		require.Contains(t, ev.State.Participants, "p2")
		assert.Equal(t, "Bob", ev.State.Participants["p2"].DisplayName())
		require.Contains(t, ev.State.Streams, "p2:self")
		assert.True(t, ev.State.Streams["p2:self"].AudioEnabled)
	case <-time.After(2 * time.Second):
		t.Fatal("event never surfaced")
	}
}

func TestUnknownEnvelopesAreIgnored(t *testing.T) {
	f := newFakeSignalServer(t)
	tr := connectedTransport(t, f)
	conn := f.waitConn(t)

	require.NoError(t, conn.WriteJSON(Envelope{Event: "totally_new", Data: json.RawMessage(`{}`)}))
	require.NoError(t, conn.WriteJSON(Envelope{
		Event: string(room.EventConnected),
		Data:  json.RawMessage(`{"state":{"status":"connected"}}`),
	}))

	select {
	case ev := <-tr.Events():
		assert.Equal(t, room.EventConnected, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("event after unknown envelope never surfaced")
	}
}

func TestCommandsAreFramed(t *testing.T) {
	f := newFakeSignalServer(t)
	tr := connectedTransport(t, f)
	f.waitConn(t)

	require.NoError(t, tr.AddSubscription("p2", "self", room.SubscribeOptions{
		Audio: true, Video: true, Quality: room.QualityHigh,
	}))
	env := f.waitEnvelope(t, "add_subscription")
	var body map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "p2", body["participant_id"])
	assert.Equal(t, "high", body["quality"])

	require.NoError(t, tr.SendMessage(json.RawMessage(`{"text":"hi"}`), []string{"p2"}))
	env = f.waitEnvelope(t, "message")
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, []any{"p2"}, body["to"])

	require.NoError(t, tr.UpdateClientToken("fresh"))
	env = f.waitEnvelope(t, "update_token")
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "fresh", body["token"])
}

func TestEventsChannelClosesWhenServerDrops(t *testing.T) {
	f := newFakeSignalServer(t)
	tr := connectedTransport(t, f)
	conn := f.waitConn(t)
	conn.Close()

	select {
	case _, ok := <-waitClosed(tr.Events()):
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel never closed")
	}
}

// waitClosed drains buffered events so the close is observable.
func waitClosed(events <-chan room.Event) <-chan room.Event {
	out := make(chan room.Event)
	go func() {
		for range events {
		}
		close(out)
	}()
	return out
}

func TestCommandAfterDisconnectFails(t *testing.T) {
	f := newFakeSignalServer(t)
	tr := connectedTransport(t, f)
	f.waitConn(t)

	require.NoError(t, tr.Disconnect(room.ReasonUserInitiated))
	// The send buffer may absorb a few frames; the closed channel must win
	// eventually.
	require.Eventually(t, func() bool {
		return tr.UpdateClientToken("late") == ErrClosed
	}, 2*time.Second, 10*time.Millisecond)
}
