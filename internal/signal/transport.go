package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/team-telnyx/telnyx-meet-sub000/internal/room"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // state payloads grow with room size
)

// ErrClosed is returned by commands issued after the transport shut down.
var ErrClosed = errors.New("signal: transport closed")

// Options configures a Transport.
type Options struct {
	URL     string   // signaling websocket endpoint
	ICEUrls []string // STUN/TURN servers for the publisher peer connection
	Logger  *zap.Logger
}

// Transport drives one signaling websocket plus the publisher peer connection
// and exposes them through the room.SDK contract. One Transport serves one
// connection attempt; reconnects get a fresh Transport.
type Transport struct {
	opts   Options
	logger *zap.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	pc         *webrtc.PeerConnection
	senders    map[string][]*webrtc.RTPSender
	mixedAudio room.Track
	started    bool

	send      chan Envelope
	events    chan room.Event
	closed    chan struct{}
	closeOnce sync.Once
}

// NewTransport creates an unconnected transport.
func NewTransport(opts Options) *Transport {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Transport{
		opts:    opts,
		logger:  opts.Logger,
		senders: make(map[string][]*webrtc.RTPSender),
		send:    make(chan Envelope, 64),
		events:  make(chan room.Event, 64),
		closed:  make(chan struct{}),
	}
}

// Events yields the decoded event stream. The channel closes when the
// websocket is gone.
func (t *Transport) Events() <-chan room.Event { return t.events }

// Connect dials the signaling endpoint, announces the join and starts the
// read/write pumps.
func (t *Transport) Connect(ctx context.Context, roomID, token string, participantContext json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return errors.New("signal: transport already connected")
	}

	u, err := url.Parse(t.opts.URL)
	if err != nil {
		return fmt.Errorf("parse signal url: %w", err)
	}
	q := u.Query()
	q.Set("room_id", roomID)
	u.RawQuery = q.Encode()

	header := map[string][]string{"Authorization": {"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("dial signal endpoint: %w", err)
	}

	pc, err := t.newPeerConnection()
	if err != nil {
		conn.Close()
		return err
	}

	t.conn = conn
	t.pc = pc
	t.started = true

	join, err := json.Marshal(struct {
		RoomID  string          `json:"room_id"`
		Token   string          `json:"token"`
		Context json.RawMessage `json:"context,omitempty"`
	}{roomID, token, participantContext})
	if err != nil {
		conn.Close()
		pc.Close()
		return fmt.Errorf("marshal join: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Envelope{Event: cmdJoin, Data: join}); err != nil {
		conn.Close()
		pc.Close()
		return fmt.Errorf("send join: %w", err)
	}

	go t.readPump()
	go t.writePump()
	return nil
}

func (t *Transport) newPeerConnection() (*webrtc.PeerConnection, error) {
	iceURLs := t.opts.ICEUrls
	if len(iceURLs) == 0 {
		iceURLs = []string{"stun:stun.l.google.com:19302"}
	}

	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(m))

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: iceURLs}},
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		t.command(cmdWebRTCICE, c.ToJSON())
	})
	pc.OnTrack(func(tr *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if tr.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		// The far end sends a single server-mixed audio track.
		t.mu.Lock()
		t.mixedAudio = tr
		t.mu.Unlock()
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		t.logger.Debug("peer connection state", zap.String("state", s.String()))
	})
	return pc, nil
}

// Disconnect announces the leave and tears the transport down. Safe to call
// more than once.
func (t *Transport) Disconnect(reason room.DisconnectReason) error {
	t.closeOnce.Do(func() {
		t.command(cmdLeave, map[string]string{"reason": string(reason)})
		close(t.closed)

		t.mu.Lock()
		pc, conn := t.pc, t.conn
		t.mu.Unlock()
		if pc != nil {
			pc.Close()
		}
		if conn != nil {
			// Give the write pump a moment to flush the leave frame.
			time.AfterFunc(writeWait, func() { conn.Close() })
		}
	})
	return nil
}

// AddStream publishes the given local tracks under key and kicks off
// renegotiation.
func (t *Transport) AddStream(key string, audio, video room.Track) error {
	t.mu.Lock()
	pc := t.pc
	if pc == nil {
		t.mu.Unlock()
		return ErrClosed
	}
	var senders []*webrtc.RTPSender
	for _, tr := range []room.Track{audio, video} {
		if tr == nil {
			continue
		}
		local, ok := tr.(webrtc.TrackLocal)
		if !ok {
			t.mu.Unlock()
			return fmt.Errorf("signal: track %s is not a publishable local track", tr.ID())
		}
		sender, err := pc.AddTrack(local)
		if err != nil {
			t.mu.Unlock()
			return fmt.Errorf("add track: %w", err)
		}
		senders = append(senders, sender)
	}
	t.senders[key] = senders
	t.mu.Unlock()

	if err := t.command(cmdAddStream, map[string]any{
		"key": key, "audio": audio != nil, "video": video != nil,
	}); err != nil {
		return err
	}
	return t.renegotiate()
}

// UpdateStream swaps or toggles the tracks published under key.
func (t *Transport) UpdateStream(key string, audio, video room.Track) error {
	t.mu.Lock()
	for _, sender := range t.senders[key] {
		current := sender.Track()
		if current == nil {
			continue
		}
		var next room.Track
		switch current.Kind() {
		case webrtc.RTPCodecTypeAudio:
			next = audio
		case webrtc.RTPCodecTypeVideo:
			next = video
		}
		if local, ok := next.(webrtc.TrackLocal); ok && local.ID() != current.ID() {
			if err := sender.ReplaceTrack(local); err != nil {
				t.mu.Unlock()
				return fmt.Errorf("replace track: %w", err)
			}
		}
	}
	t.mu.Unlock()

	return t.command(cmdUpdateStream, map[string]any{
		"key": key, "audio": audio != nil, "video": video != nil,
	})
}

// RemoveStream unpublishes key and renegotiates.
func (t *Transport) RemoveStream(key string) error {
	t.mu.Lock()
	pc := t.pc
	for _, sender := range t.senders[key] {
		if pc != nil {
			if err := pc.RemoveTrack(sender); err != nil {
				t.logger.Warn("remove track", zap.String("key", key), zap.Error(err))
			}
		}
	}
	delete(t.senders, key)
	t.mu.Unlock()

	if err := t.command(cmdRemoveStream, map[string]string{"key": key}); err != nil {
		return err
	}
	return t.renegotiate()
}

// AddSubscription asks the far end to start forwarding a remote stream.
func (t *Transport) AddSubscription(participantID, key string, opts room.SubscribeOptions) error {
	return t.command(cmdAddSubscription, subscriptionBody(participantID, key, opts))
}

// UpdateSubscription changes what an existing subscription receives.
func (t *Transport) UpdateSubscription(participantID, key string, opts room.SubscribeOptions) error {
	return t.command(cmdUpdateSubscription, subscriptionBody(participantID, key, opts))
}

func subscriptionBody(participantID, key string, opts room.SubscribeOptions) map[string]any {
	return map[string]any{
		"participant_id": participantID,
		"key":            key,
		"audio":          opts.Audio,
		"video":          opts.Video,
		"quality":        string(opts.Quality),
	}
}

// SendMessage relays a chat payload; nil recipients means broadcast.
func (t *Transport) SendMessage(payload json.RawMessage, to []string) error {
	return t.command(cmdMessage, map[string]any{"payload": payload, "to": to})
}

// UpdateClientToken hands the far end a fresh access token.
func (t *Transport) UpdateClientToken(token string) error {
	return t.command(cmdUpdateToken, map[string]string{"token": token})
}

// EnableNetworkMetricsReport subscribes to quality reports for the given
// participants.
func (t *Transport) EnableNetworkMetricsReport(participantIDs []string) error {
	return t.command(cmdMetricsOn, map[string]any{"participant_ids": participantIDs})
}

// DisableNetworkMetricsReport stops quality reports for the given
// participants.
func (t *Transport) DisableNetworkMetricsReport(participantIDs []string) error {
	return t.command(cmdMetricsOff, map[string]any{"participant_ids": participantIDs})
}

func (t *Transport) renegotiate() error {
	t.mu.Lock()
	pc := t.pc
	t.mu.Unlock()
	if pc == nil {
		return ErrClosed
	}
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	return t.command(cmdWebRTCOffer, offer)
}

// command marshals data and queues it for the write pump.
func (t *Transport) command(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	select {
	case t.send <- Envelope{Event: event, Data: raw}:
		return nil
	case <-t.closed:
		return ErrClosed
	}
}

func (t *Transport) readPump() {
	defer func() {
		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		close(t.events)
	}()

	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.logger.Warn("signal read error", zap.Error(err))
			}
			return
		}
		t.handle(env)
	}
}

func (t *Transport) handle(env Envelope) {
	switch env.Event {
	case evtWebRTCAnswer:
		var answer webrtc.SessionDescription
		if err := json.Unmarshal(env.Data, &answer); err != nil {
			t.logger.Warn("malformed answer", zap.Error(err))
			return
		}
		t.mu.Lock()
		pc := t.pc
		t.mu.Unlock()
		if pc == nil {
			return
		}
		if err := pc.SetRemoteDescription(answer); err != nil {
			t.logger.Warn("set remote description", zap.Error(err))
		}
	case evtWebRTCICE:
		var candidate webrtc.ICECandidateInit
		if err := json.Unmarshal(env.Data, &candidate); err != nil {
			t.logger.Warn("malformed ice candidate", zap.Error(err))
			return
		}
		t.mu.Lock()
		pc := t.pc
		t.mu.Unlock()
		if pc == nil {
			return
		}
		if err := pc.AddICECandidate(candidate); err != nil {
			t.logger.Warn("add ice candidate", zap.Error(err))
		}
	default:
		kind, ok := roomEventKinds[env.Event]
		if !ok {
			t.logger.Debug("unknown signal event", zap.String("event", env.Event))
			return
		}
		var payload wirePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			t.logger.Warn("malformed event payload", zap.String("event", env.Event), zap.Error(err))
			return
		}
		t.mu.Lock()
		mixed := t.mixedAudio
		t.mu.Unlock()
		select {
		case t.events <- payload.toEvent(kind, mixed):
		case <-t.closed:
		}
	}
}

func (t *Transport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	for {
		select {
		case env := <-t.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				t.logger.Warn("signal write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-t.closed:
			// Flush queued frames (the leave announcement in particular)
			// before the connection is closed.
			for {
				select {
				case env := <-t.send:
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteJSON(env); err != nil {
						return
					}
				default:
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}
