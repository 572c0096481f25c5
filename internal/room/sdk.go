package room

import (
	"context"
	"encoding/json"
)

// SDK is the contract the session machine requires from the media transport.
// Commands are fire-and-validate: the SDK owns signaling, codec negotiation
// and delivery; the session only decides when to issue them. Events() yields
// the event stream consumed by the session's dispatcher; the channel closes
// when the underlying connection is gone.
type SDK interface {
	Connect(ctx context.Context, roomID, token string, participantContext json.RawMessage) error
	Disconnect(reason DisconnectReason) error

	AddStream(key string, audio, video Track) error
	UpdateStream(key string, audio, video Track) error
	RemoveStream(key string) error

	AddSubscription(participantID, key string, opts SubscribeOptions) error
	UpdateSubscription(participantID, key string, opts SubscribeOptions) error

	SendMessage(payload json.RawMessage, to []string) error
	UpdateClientToken(token string) error

	EnableNetworkMetricsReport(participantIDs []string) error
	DisableNetworkMetricsReport(participantIDs []string) error

	Events() <-chan Event
}
