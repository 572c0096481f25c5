// Package signal implements the room.SDK contract over the signaling
// websocket: JSON envelopes for commands and events, plus a pion peer
// connection for publishing local media. SDP and media semantics stay
// between this driver and the far end; the session layer only sees
// room.Event values.
package signal

import (
	"encoding/json"

	"github.com/team-telnyx/telnyx-meet-sub000/internal/room"
)

// Envelope is the websocket message envelope.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Command envelope names (client -> server).
const (
	cmdJoin               = "join"
	cmdLeave              = "leave"
	cmdAddStream          = "add_stream"
	cmdUpdateStream       = "update_stream"
	cmdRemoveStream       = "remove_stream"
	cmdAddSubscription    = "add_subscription"
	cmdUpdateSubscription = "update_subscription"
	cmdMessage            = "message"
	cmdUpdateToken        = "update_token"
	cmdMetricsOn          = "metrics_on"
	cmdMetricsOff         = "metrics_off"
	cmdWebRTCOffer        = "webrtc_offer"
	cmdWebRTCICE          = "webrtc_ice"
)

// Negotiation envelope names (server -> client, handled inside the driver).
const (
	evtWebRTCAnswer = "webrtc_answer"
	evtWebRTCICE    = "webrtc_ice"
)

type wireParticipant struct {
	Origin  string          `json:"origin"`
	Context json.RawMessage `json:"context"`
}

type wireStream struct {
	ParticipantID string `json:"participant_id"`
	Key           string `json:"key"`
	AudioEnabled  bool   `json:"audio_enabled"`
	VideoEnabled  bool   `json:"video_enabled"`
	Configured    bool   `json:"configured"`
	AudioCensored bool   `json:"audio_censored"`
}

type wireState struct {
	Status       string                     `json:"status"`
	Participants map[string]wireParticipant `json:"participants"`
	Streams      map[string]wireStream      `json:"streams"`
}

// wirePayload is the data carried by every room event envelope.
type wirePayload struct {
	ParticipantID string                  `json:"participant_id,omitempty"`
	StreamKey     string                  `json:"stream_key,omitempty"`
	TrackKind     string                  `json:"track_kind,omitempty"`
	Reason        string                  `json:"reason,omitempty"`
	Message       *room.InboundMessage    `json:"message,omitempty"`
	Metrics       map[string]room.Metrics `json:"metrics,omitempty"`
	State         wireState               `json:"state"`
}

func (p wirePayload) toEvent(kind room.EventKind, mixedAudio room.Track) room.Event {
	st := room.State{
		Status:       room.Status(p.State.Status),
		Participants: make(map[string]room.Participant, len(p.State.Participants)),
		Streams:      make(map[string]room.Stream, len(p.State.Streams)),
		MixedAudio:   mixedAudio,
	}
	for id, wp := range p.State.Participants {
		st.Participants[id] = room.Participant{
			ID:      id,
			Origin:  room.Origin(wp.Origin),
			Context: wp.Context,
		}
	}
	for _, ws := range p.State.Streams {
		id := room.StreamID(ws.ParticipantID, ws.Key)
		st.Streams[id] = room.Stream{
			ID:            id,
			ParticipantID: ws.ParticipantID,
			Key:           ws.Key,
			AudioEnabled:  ws.AudioEnabled,
			VideoEnabled:  ws.VideoEnabled,
			Configured:    ws.Configured,
			AudioCensored: ws.AudioCensored,
		}
	}
	return room.Event{
		Kind:          kind,
		ParticipantID: p.ParticipantID,
		StreamKey:     p.StreamKey,
		TrackKind:     p.TrackKind,
		Reason:        p.Reason,
		Message:       p.Message,
		Metrics:       p.Metrics,
		State:         st,
	}
}

var roomEventKinds = map[string]room.EventKind{
	string(room.EventConnected):          room.EventConnected,
	string(room.EventDisconnected):       room.EventDisconnected,
	string(room.EventParticipantJoined):  room.EventParticipantJoined,
	string(room.EventParticipantLeaving): room.EventParticipantLeaving,
	string(room.EventParticipantLeft):    room.EventParticipantLeft,
	string(room.EventStreamPublished):    room.EventStreamPublished,
	string(room.EventStreamUnpublished):  room.EventStreamUnpublished,
	string(room.EventTrackEnabled):       room.EventTrackEnabled,
	string(room.EventTrackDisabled):      room.EventTrackDisabled,
	string(room.EventTrackCensored):      room.EventTrackCensored,
	string(room.EventTrackUncensored):    room.EventTrackUncensored,
	string(room.EventAudioActivity):      room.EventAudioActivity,
	string(room.EventMessageReceived):    room.EventMessageReceived,
	string(room.EventMetricsReport):      room.EventMetricsReport,
}
