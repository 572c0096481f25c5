// Package room owns the lifecycle of one room connection: it consumes the
// media SDK's event stream, folds it into an immutable session snapshot, and
// decides which remote streams are worth subscribing to. Everything else in
// the application reads from the snapshot; nothing else writes session state.
package room

import (
	"encoding/json"
	"time"

	"github.com/pion/webrtc/v3"
)

// Track is an opaque media track handle. Both pion local and remote tracks
// satisfy it; the session never inspects media, it only carries handles.
type Track interface {
	ID() string
	Kind() webrtc.RTPCodecType
}

// Origin says where a participant connects from.
type Origin string

const (
	OriginLocal     Origin = "local"
	OriginRemote    Origin = "remote"
	OriginTelephony Origin = "telephony_engine"
)

// Status is the connection lifecycle state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// DisconnectReason is the machine-readable reason passed to the disconnected
// callback.
type DisconnectReason string

const (
	ReasonNetworkError  DisconnectReason = "network_error"
	ReasonUserInitiated DisconnectReason = "user_initiated"
	ReasonTimedOut      DisconnectReason = "timed_out"
	ReasonKicked        DisconnectReason = "kicked"
)

// Quality is a subscription quality level.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Well-known stream keys.
const (
	StreamKeySelf         = "self"
	StreamKeyPresentation = "presentation"
)

// Participant is one identity in the room. Participants are replaced
// wholesale on every SDK state update, never mutated in place.
type Participant struct {
	ID      string
	Origin  Origin
	Context json.RawMessage // opaque app context; carries at least a display name
}

type participantContext struct {
	Name               string `json:"name"`
	CanReceiveMessages bool   `json:"can_receive_messages"`
}

// DisplayName extracts the display name from the participant context, falling
// back to the participant id when the blob is missing or malformed.
func (p Participant) DisplayName() string {
	var pc participantContext
	if err := json.Unmarshal(p.Context, &pc); err == nil && pc.Name != "" {
		return pc.Name
	}
	return p.ID
}

// CanReceiveMessages reports whether the participant accepts chat messages.
func (p Participant) CanReceiveMessages() bool {
	var pc participantContext
	if err := json.Unmarshal(p.Context, &pc); err != nil {
		return false
	}
	return pc.CanReceiveMessages
}

// Stream is a keyed media publication belonging to one participant.
type Stream struct {
	ID            string
	ParticipantID string
	Key           string
	AudioTrack    Track
	VideoTrack    Track
	AudioEnabled  bool
	VideoEnabled  bool
	Configured    bool // publish/subscribe handshake completed
	AudioCensored bool // muted by moderator
}

// State is the SDK-level room state accompanying each event: who is in the
// room and what they publish. The session machine layers its derived view
// (activity order, presenter, chat, metrics) on top of it in Snapshot.
type State struct {
	Status       Status
	Participants map[string]Participant
	Streams      map[string]Stream
	MixedAudio   Track
}

// Message is one chat entry. The sender name is denormalized at receipt time
// so the log stays readable after the sender leaves.
type Message struct {
	SenderID   string
	SenderName string
	Payload    json.RawMessage
	To         []string // nil = broadcast
	ReceivedAt time.Time
}

// Snapshot is the immutable session view published after every event. It is
// replaced atomically; readers never observe a partially-updated snapshot.
type Snapshot struct {
	Status             Status
	LocalParticipantID string
	Participants       map[string]Participant
	Streams            map[string]Stream
	MixedAudio         Track

	ActivityOrder     []string // local participant always first
	DominantSpeakerID string   // empty when nobody is speaking
	PresenterID       string   // empty when nobody is screen-sharing
	CameraActive      bool     // local video track currently enabled

	Messages    []Message
	UnreadCount int

	Metrics map[string]Metrics
}

// SubscribeOptions selects which track kinds to receive and at what quality.
type SubscribeOptions struct {
	Audio   bool
	Video   bool
	Quality Quality
}
