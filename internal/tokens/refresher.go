package tokens

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/team-telnyx/telnyx-meet-sub000/internal/room"
)

// Connection is the slice of the session the refresher needs: whether it is
// still connected, and a way to push a renewed credential into the live
// connection without interrupting it.
type Connection interface {
	Status() room.Status
	UpdateClientToken(token string) error
}

// Refresher renews the session credential on a fixed cadence while the
// session is connected. Refresh failures are logged and skipped; the TTL
// margin tolerates routine flakiness, so the next interval simply tries
// again. The loop exits when the context is cancelled or the session leaves
// the connected state.
type Refresher struct {
	conn         Connection
	client       *Client
	interval     time.Duration
	refreshToken string
	logger       *zap.Logger
}

// NewRefresher creates a refresher firing every ttl-lead. The first refresh
// token comes from the initial mint; rotation keeps it current.
func NewRefresher(conn Connection, client *Client, refreshToken string, ttl, lead time.Duration, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := ttl - lead
	if interval <= 0 {
		interval = ttl
	}
	return &Refresher{
		conn:         conn,
		client:       client,
		interval:     interval,
		refreshToken: refreshToken,
		logger:       logger,
	}
}

// Run blocks until ctx is cancelled or the session disconnects. Start it in
// a goroutine once the session reaches connected.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.conn.Status() != room.StatusConnected {
				return
			}
			r.refreshOnce(ctx)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	pair, err := r.client.Refresh(ctx, r.refreshToken)
	if err != nil {
		// Best-effort: no corrective action on this pass.
		r.logger.Warn("token refresh failed", zap.Error(err))
		return
	}
	if pair.RefreshToken != "" {
		r.refreshToken = pair.RefreshToken
	}
	if err := r.conn.UpdateClientToken(pair.AccessToken); err != nil {
		r.logger.Warn("token update failed", zap.Error(err))
	}
}
