package room

import "go.uber.org/zap"

// reconciler decides which remote streams to receive. It runs inside the
// session dispatcher, so it needs no locking. Invariants: never subscribe to
// a stream owned by the local participant; subscribe audio+video on first
// sight of a remote stream; after a reconnect, everything is requested again.
type reconciler struct {
	sdk        SDK
	localID    string
	logger     *zap.Logger
	subscribed map[string]bool // stream id -> subscription requested
}

func newReconciler(sdk SDK, localID string, logger *zap.Logger) *reconciler {
	return &reconciler{
		sdk:        sdk,
		localID:    localID,
		logger:     logger,
		subscribed: make(map[string]bool),
	}
}

// reset clears subscription memory so the next reconcile resubscribes to
// every remote stream. Called on the connected event.
func (r *reconciler) reset() {
	r.subscribed = make(map[string]bool)
}

// reconcile requests subscriptions for remote streams not yet requested.
func (r *reconciler) reconcile(state State) {
	for id, st := range state.Streams {
		if st.ParticipantID == r.localID {
			continue
		}
		if r.subscribed[id] {
			continue
		}
		opts := SubscribeOptions{Audio: true, Video: true}
		if err := r.sdk.AddSubscription(st.ParticipantID, st.Key, opts); err != nil {
			r.logger.Warn("subscribe failed",
				zap.String("participant_id", st.ParticipantID),
				zap.String("key", st.Key),
				zap.Error(err))
			continue
		}
		r.subscribed[id] = true
	}
}

// forget drops subscription memory for a stream that was unpublished. No
// unsubscribe command is sent; the publish lifecycle retires the
// subscription on the SDK side.
func (r *reconciler) forget(streamID string) {
	delete(r.subscribed, streamID)
}

// setQuality issues a quality change for an existing subscription. Quality
// only ever changes on explicit user selection; the SDK owns automatic
// bitrate adaptation.
func (r *reconciler) setQuality(participantID, key string, q Quality) error {
	if participantID == r.localID {
		return nil
	}
	return r.sdk.UpdateSubscription(participantID, key, SubscribeOptions{
		Audio:   true,
		Video:   true,
		Quality: q,
	})
}
