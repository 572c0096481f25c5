package room

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DominantSpeakerTTL is how long a dominant speaker stays dominant after the
// most recent audio_activity event. The expiry window is shared: any speech
// from any speaker re-arms it.
const DominantSpeakerTTL = 5 * time.Second

// Session is the single authoritative owner of one room connection. All SDK
// events and state-mutating commands are funneled through one dispatcher
// goroutine, so handlers execute strictly one at a time and derived state
// needs no locking; readers get a copy-on-write Snapshot instead.
type Session struct {
	sdk      SDK
	logger   *zap.Logger
	notifier Notifier

	localID      string
	localContext json.RawMessage

	mu       sync.RWMutex
	status   Status
	stopping bool
	snapshot Snapshot

	// Dispatcher-owned derived state. Touched only by the dispatcher
	// goroutine (and by Connect before the dispatcher starts).
	state        State
	activity     *activitySet
	recon        *reconciler
	dominantID   string
	presenterID  string
	cameraActive bool
	messages     []Message
	unread       int
	metrics      map[string]Metrics

	speakerTTL    time.Duration
	speakerExpiry ResettableTimer
	joinTimeout   ResettableTimer

	ops    chan func()
	closed chan struct{}
	done   chan struct{}

	onDisconnected func(DisconnectReason)
	onJoined       func(Participant)
}

// StreamID is the canonical id for a participant's keyed stream.
func StreamID(participantID, key string) string {
	return participantID + ":" + key
}

// NewSession creates a session for the given local participant identity.
// Handlers and the notifier must be set before Connect.
func NewSession(sdk SDK, localID string, localContext json.RawMessage, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		sdk:          sdk,
		logger:       logger,
		notifier:     NopNotifier{},
		localID:      localID,
		localContext: localContext,
		status:       StatusDisconnected,
		speakerTTL:   DominantSpeakerTTL,
		activity:     newActivitySet(localID),
		metrics:      make(map[string]Metrics),
	}
}

// SetNotifier routes user-facing notices (moderation, errors) to n.
func (s *Session) SetNotifier(n Notifier) {
	if n != nil {
		s.notifier = n
	}
}

// SetDisconnectedHandler sets the callback invoked once per teardown with a
// machine-readable reason.
func (s *Session) SetDisconnectedHandler(fn func(DisconnectReason)) { s.onDisconnected = fn }

// SetParticipantJoinedHandler sets the hook invoked when a participant joins.
func (s *Session) SetParticipantJoinedHandler(fn func(Participant)) { s.onJoined = fn }

// LocalParticipantID returns the local identity this session connects as.
func (s *Session) LocalParticipantID() string { return s.localID }

// Snapshot returns the current immutable session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Connect establishes the room connection. Calling it while a connection is
// in flight or established is a no-op. On failure the disconnected handler
// fires with ReasonNetworkError and the session is safe to Connect again;
// there is no automatic retry.
func (s *Session) Connect(ctx context.Context, roomID, token string) error {
	s.mu.Lock()
	if s.status != StatusDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusConnecting
	s.stopping = false
	s.ops = make(chan func(), 16)
	s.closed = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	// Fresh per-connection state. Chat history survives reconnects; the
	// activity ordering, presenter and metrics are rebuilt from events.
	s.activity = newActivitySet(s.localID)
	s.recon = newReconciler(s.sdk, s.localID, s.logger)
	s.dominantID = ""
	s.presenterID = ""
	s.cameraActive = false
	s.metrics = make(map[string]Metrics)
	s.state = State{}
	s.publish()

	if err := s.sdk.Connect(ctx, roomID, token, s.localContext); err != nil {
		s.mu.Lock()
		s.status = StatusDisconnected
		s.mu.Unlock()
		s.publish()
		if s.onDisconnected != nil {
			s.onDisconnected(ReasonNetworkError)
		}
		return fmt.Errorf("room: connect: %w", err)
	}

	go s.run()
	return nil
}

// Disconnect tears down the connection. It always succeeds locally; the
// remote notification is best-effort.
func (s *Session) Disconnect(reason DisconnectReason) {
	s.mu.Lock()
	if s.status == StatusDisconnected || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	close(s.closed)
	s.mu.Unlock()

	if err := s.sdk.Disconnect(reason); err != nil {
		s.logger.Debug("sdk disconnect", zap.Error(err))
	}
	<-s.done
	s.finalize(reason)
}

// AddStream publishes a local stream under key.
func (s *Session) AddStream(key string, audio, video Track) error {
	if s.Status() != StatusConnected {
		return fmt.Errorf("room: add stream %q: not connected", key)
	}
	if err := s.sdk.AddStream(key, audio, video); err != nil {
		return fmt.Errorf("room: add stream %q: %w", key, err)
	}
	return nil
}

// UpdateStream replaces the tracks of a published stream.
func (s *Session) UpdateStream(key string, audio, video Track) error {
	if s.Status() != StatusConnected {
		return fmt.Errorf("room: update stream %q: not connected", key)
	}
	if err := s.sdk.UpdateStream(key, audio, video); err != nil {
		return fmt.Errorf("room: update stream %q: %w", key, err)
	}
	return nil
}

// RemoveStream retracts a published stream.
func (s *Session) RemoveStream(key string) error {
	if err := s.sdk.RemoveStream(key); err != nil {
		return fmt.Errorf("room: remove stream %q: %w", key, err)
	}
	return nil
}

// SendMessage sends a chat payload; nil recipients means broadcast. The
// local log is not touched here: it only grows when the inbound echo event
// arrives, so ordering has a single source of truth.
func (s *Session) SendMessage(payload json.RawMessage, to []string) error {
	if s.Status() != StatusConnected {
		return fmt.Errorf("room: send message: not connected")
	}
	if err := s.sdk.SendMessage(payload, to); err != nil {
		return fmt.Errorf("room: send message: %w", err)
	}
	return nil
}

// UpdateClientToken pushes a renewed credential into the live connection.
func (s *Session) UpdateClientToken(token string) error {
	return s.sdk.UpdateClientToken(token)
}

// MarkChatOpened clears the unread counter. Invoked when the user opens the
// chat panel; nothing clears it implicitly.
func (s *Session) MarkChatOpened() {
	s.post(func() {
		s.unread = 0
		s.publish()
	})
}

// SetSubscriptionQuality changes the received quality for one remote stream.
func (s *Session) SetSubscriptionQuality(participantID, key string, q Quality) {
	s.post(func() {
		if err := s.recon.setQuality(participantID, key, q); err != nil {
			s.logger.Warn("subscription quality change failed",
				zap.String("participant_id", participantID),
				zap.String("key", key),
				zap.Error(err))
		}
	})
}

// ExpectTelephonyJoin arms a join timeout for a dial-out invite. The timer
// is debounced: a newer invite supersedes a pending one. It cancels when a
// telephony participant joins; on expiry the user is notified.
func (s *Session) ExpectTelephonyJoin(number string, timeout time.Duration) {
	s.joinTimeout.Arm(timeout, func() {
		s.notifier.Notify(Notice{
			Level: NoticeWarn,
			Title: "No answer",
			Body:  fmt.Sprintf("%s did not pick up. You can try dialing out again.", number),
		})
	})
}

// post hands an op to the dispatcher; dropped if the session is torn down.
func (s *Session) post(op func()) {
	s.mu.RLock()
	ops, closed := s.ops, s.closed
	s.mu.RUnlock()
	if closed == nil {
		return
	}
	select {
	case ops <- op:
	case <-closed:
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.closed:
			return
		case op := <-s.ops:
			op()
		case ev, ok := <-s.sdk.Events():
			if !ok {
				s.finalize(ReasonNetworkError)
				return
			}
			s.handle(ev)
			if ev.Kind == EventDisconnected {
				reason := ReasonNetworkError
				if ev.Reason != "" {
					reason = DisconnectReason(ev.Reason)
				}
				s.finalize(reason)
				return
			}
		}
	}
}

// finalize performs teardown exactly once per connection.
func (s *Session) finalize(reason DisconnectReason) {
	s.mu.Lock()
	if s.status == StatusDisconnected {
		s.mu.Unlock()
		return
	}
	s.status = StatusDisconnected
	if !s.stopping {
		// SDK-initiated teardown: unblock any pending posts.
		s.stopping = true
		close(s.closed)
	}
	s.mu.Unlock()

	s.speakerExpiry.Stop()
	s.joinTimeout.Stop()
	s.publish()
	if s.onDisconnected != nil {
		s.onDisconnected(reason)
	}
}

// handle folds one event into the derived state and publishes a fresh
// snapshot. Handlers must not throw for expected conditions: optional fields
// are guarded, never assumed.
func (s *Session) handle(ev Event) {
	s.state = ev.State
	switch ev.Kind {
	case EventConnected:
		s.handleConnected(ev)
	case EventParticipantJoined:
		s.handleParticipantJoined(ev)
	case EventParticipantLeaving:
		s.handleParticipantLeaving(ev)
	case EventParticipantLeft:
		s.handleParticipantLeft(ev)
	case EventStreamPublished:
		s.handleStreamPublished(ev)
	case EventStreamUnpublished:
		s.handleStreamUnpublished(ev)
	case EventTrackEnabled, EventTrackDisabled:
		s.handleTrackToggle(ev)
	case EventTrackCensored, EventTrackUncensored:
		s.handleCensorship(ev)
	case EventAudioActivity:
		s.handleAudioActivity(ev)
	case EventMessageReceived:
		s.handleMessageReceived(ev)
	case EventMetricsReport:
		s.metrics = ev.Metrics
	case EventDisconnected:
		// Teardown happens in run after this handler returns.
		return
	default:
		s.logger.Debug("unhandled event", zap.String("kind", string(ev.Kind)))
	}
	s.publish()
}

func (s *Session) handleConnected(ev Event) {
	s.mu.Lock()
	s.status = StatusConnected
	s.mu.Unlock()

	s.activity = newActivitySet(s.localID)
	ids := make([]string, 0, len(ev.State.Participants))
	for id := range ev.State.Participants {
		if id != s.localID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		s.activity.Add(id)
	}

	// A reconnect must resubscribe to everything.
	s.recon.reset()
	s.recon.reconcile(ev.State)

	s.presenterID = ""
	for _, st := range ev.State.Streams {
		if st.Key == StreamKeyPresentation {
			s.presenterID = st.ParticipantID
		}
	}

	if len(ids) > 0 {
		if err := s.sdk.EnableNetworkMetricsReport(ids); err != nil {
			s.logger.Debug("enable metrics report", zap.Error(err))
		}
	}
	s.logger.Info("room connected",
		zap.String("participant_id", s.localID),
		zap.Int("participants", len(ev.State.Participants)))
}

func (s *Session) handleParticipantJoined(ev Event) {
	s.activity.Add(ev.ParticipantID)
	p, ok := ev.State.Participants[ev.ParticipantID]
	if ok && p.Origin == OriginTelephony {
		s.joinTimeout.Stop()
	}
	s.recon.reconcile(ev.State)
	if ok && s.onJoined != nil {
		s.onJoined(p)
	}
}

func (s *Session) handleParticipantLeaving(ev Event) {
	if ev.Reason != LeavingReasonKicked {
		return
	}
	if ev.ParticipantID == s.localID {
		s.notifier.Notify(Notice{
			Level: NoticeWarn,
			Title: "Removed from room",
			Body:  "The host has removed you from this room.",
		})
		return
	}
	s.notifier.Notify(Notice{
		Level: NoticeInfo,
		Title: "Participant removed",
		Body:  fmt.Sprintf("%s was removed from the room by the host.", s.displayName(ev.ParticipantID)),
	})
}

func (s *Session) handleParticipantLeft(ev Event) {
	s.activity.Remove(ev.ParticipantID)
	if s.presenterID == ev.ParticipantID {
		s.presenterID = ""
	}
	if s.dominantID == ev.ParticipantID {
		s.dominantID = ""
		s.speakerExpiry.Stop()
	}
}

func (s *Session) handleStreamPublished(ev Event) {
	if ev.StreamKey == StreamKeyPresentation {
		s.presenterID = ev.ParticipantID
	}
	if ev.ParticipantID != s.localID {
		s.recon.reconcile(ev.State)
	}
}

func (s *Session) handleStreamUnpublished(ev Event) {
	// No unsubscribe command: the publish lifecycle retires the
	// subscription on the SDK side.
	s.recon.forget(StreamID(ev.ParticipantID, ev.StreamKey))
	if ev.StreamKey == StreamKeyPresentation {
		s.presenterID = ""
	}
}

func (s *Session) handleTrackToggle(ev Event) {
	if ev.TrackKind != TrackKindVideo || ev.ParticipantID != s.localID {
		return
	}
	// Last-write-wins; downstream features (virtual background etc.) key
	// off whether the local camera is live right now.
	s.cameraActive = ev.Kind == EventTrackEnabled
}

func (s *Session) handleCensorship(ev Event) {
	if ev.TrackKind != TrackKindAudio {
		return
	}
	censored := ev.Kind == EventTrackCensored
	if ev.ParticipantID == s.localID {
		title, body := "You were unmuted", "The moderator has unmuted your microphone."
		if censored {
			title, body = "You were muted", "The moderator has muted your microphone."
		}
		s.notifier.Notify(Notice{Level: NoticeWarn, Title: title, Body: body})
		return
	}
	name := s.displayName(ev.ParticipantID)
	title, body := "Participant unmuted", fmt.Sprintf("%s was unmuted by the moderator.", name)
	if censored {
		title, body = "Participant muted", fmt.Sprintf("%s was muted by the moderator.", name)
	}
	s.notifier.Notify(Notice{Level: NoticeInfo, Title: title, Body: body})
}

func (s *Session) handleAudioActivity(ev Event) {
	if ev.ParticipantID == s.localID {
		return
	}
	if ev.StreamKey != "" && ev.StreamKey != StreamKeySelf {
		return
	}
	s.dominantID = ev.ParticipantID
	s.activity.Promote(ev.ParticipantID)
	// One shared expiry window for all speakers: every activity event
	// re-arms it, so silence from everyone is what clears dominance.
	s.speakerExpiry.Arm(s.speakerTTL, func() {
		s.post(func() {
			s.dominantID = ""
			s.publish()
		})
	})
}

func (s *Session) handleMessageReceived(ev Event) {
	if ev.Message == nil {
		return
	}
	m := Message{
		SenderID:   ev.Message.SenderID,
		SenderName: s.displayName(ev.Message.SenderID),
		Payload:    ev.Message.Payload,
		To:         ev.Message.To,
		ReceivedAt: time.Now(),
	}
	s.messages = append(s.messages, m)
	// The local participant's own echoes don't count as unread: the badge
	// exists to pull the user toward words they haven't seen.
	if m.SenderID != s.localID {
		s.unread++
	}
}

func (s *Session) displayName(participantID string) string {
	if p, ok := s.state.Participants[participantID]; ok {
		return p.DisplayName()
	}
	return participantID
}

// publish swaps in a fresh snapshot built from the dispatcher-owned state.
func (s *Session) publish() {
	participants := make(map[string]Participant, len(s.state.Participants))
	for id, p := range s.state.Participants {
		participants[id] = p
	}
	streams := make(map[string]Stream, len(s.state.Streams))
	for id, st := range s.state.Streams {
		streams[id] = st
	}
	metrics := make(map[string]Metrics, len(s.metrics))
	for id, m := range s.metrics {
		metrics[id] = m
	}
	messages := make([]Message, len(s.messages))
	copy(messages, s.messages)

	snap := Snapshot{
		LocalParticipantID: s.localID,
		Participants:       participants,
		Streams:            streams,
		MixedAudio:         s.state.MixedAudio,
		ActivityOrder:      s.activity.Order(),
		DominantSpeakerID:  s.dominantID,
		PresenterID:        s.presenterID,
		CameraActive:       s.cameraActive,
		Messages:           messages,
		UnreadCount:        s.unread,
		Metrics:            metrics,
	}

	s.mu.Lock()
	snap.Status = s.status
	s.snapshot = snap
	s.mu.Unlock()
}
