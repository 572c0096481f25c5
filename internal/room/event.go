package room

import "encoding/json"

// EventKind identifies one kind of session event emitted by the media SDK.
type EventKind string

const (
	EventConnected          EventKind = "connected"
	EventDisconnected       EventKind = "disconnected"
	EventParticipantJoined  EventKind = "participant_joined"
	EventParticipantLeaving EventKind = "participant_leaving"
	EventParticipantLeft    EventKind = "participant_left"
	EventStreamPublished    EventKind = "stream_published"
	EventStreamUnpublished  EventKind = "stream_unpublished"
	EventTrackEnabled       EventKind = "track_enabled"
	EventTrackDisabled      EventKind = "track_disabled"
	EventTrackCensored      EventKind = "track_censored"
	EventTrackUncensored    EventKind = "track_uncensored"
	EventAudioActivity      EventKind = "audio_activity"
	EventMessageReceived    EventKind = "message_received"
	EventMetricsReport      EventKind = "network_metrics_report"
)

// LeavingReasonKicked marks a participant_leaving event caused by moderation.
const LeavingReasonKicked = "kicked"

// Track kinds as carried on track_* events.
const (
	TrackKindAudio = "audio"
	TrackKindVideo = "video"
)

// Event is one entry of the SDK's event stream. Only the fields relevant to
// its Kind are set; State carries the SDK's own snapshot accompanying every
// event.
type Event struct {
	Kind          EventKind
	ParticipantID string
	StreamKey     string
	TrackKind     string
	Reason        string
	Message       *InboundMessage
	Metrics       map[string]Metrics
	State         State
}

// InboundMessage is the wire form of a received chat message.
type InboundMessage struct {
	SenderID string          `json:"sender_id"`
	Payload  json.RawMessage `json:"payload"`
	To       []string        `json:"to,omitempty"` // nil = broadcast
}

// Metrics is one participant's network quality sample.
type Metrics struct {
	AudioQuality float64 `json:"audio_quality"`
	VideoQuality float64 `json:"video_quality"`
	PacketLoss   float64 `json:"packet_loss"`
	JitterMs     float64 `json:"jitter_ms"`
}
