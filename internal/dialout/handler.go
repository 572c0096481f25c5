package dialout

import (
	"context"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/team-telnyx/telnyx-meet-sub000/internal/middleware"
	"github.com/team-telnyx/telnyx-meet-sub000/pkg/response"
)

var phoneNumberRe = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// Recorder is the audit-trail slice of the repository the handler needs.
type Recorder interface {
	Record(ctx context.Context, roomID, phoneNumber, requestedBy, status string) (uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByRoom(ctx context.Context, roomID string, limit int) ([]Attempt, error)
}

// Handler serves the dial-out endpoints.
type Handler struct {
	repo    Recorder
	carrier *Carrier
	logger  *zap.Logger
}

// NewHandler creates the dial-out handler.
func NewHandler(repo Recorder, carrier *Carrier, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, carrier: carrier, logger: logger}
}

// Invite handles POST /rooms/:id/dialout — proxies the invite to the carrier
// and records the attempt.
func (h *Handler) Invite(c *gin.Context) {
	roomID := c.Param("id")
	claims := middleware.ClaimsFrom(c)
	if claims == nil || claims.RoomID != roomID {
		response.Unauthorized(c, "token not valid for this room")
		return
	}

	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !phoneNumberRe.MatchString(req.PhoneNumber) {
		response.BadRequest(c, "phone_number must be E.164, e.g. +15550100123")
		return
	}
	if !h.carrier.Enabled() {
		response.BadGateway(c, "dial-out is not configured")
		return
	}

	id, err := h.repo.Record(c, roomID, req.PhoneNumber, claims.Identity, "requested")
	if err != nil {
		h.logger.Error("record dialout", zap.String("room_id", roomID), zap.Error(err))
		response.Internal(c, "could not record dial-out attempt")
		return
	}

	if err := h.carrier.Dial(c, roomID, req.PhoneNumber); err != nil {
		h.logger.Warn("carrier dial failed", zap.String("room_id", roomID), zap.Error(err))
		_ = h.repo.UpdateStatus(c, id, "failed")
		response.BadGateway(c, "carrier rejected the dial-out request")
		return
	}
	if err := h.repo.UpdateStatus(c, id, "accepted"); err != nil {
		h.logger.Warn("update dialout status", zap.Error(err))
	}
	response.Created(c, gin.H{"id": id, "status": "accepted"})
}

// List handles GET /rooms/:id/dialout — recent attempts for a room.
func (h *Handler) List(c *gin.Context) {
	roomID := c.Param("id")
	claims := middleware.ClaimsFrom(c)
	if claims == nil || claims.RoomID != roomID {
		response.Unauthorized(c, "token not valid for this room")
		return
	}
	attempts, err := h.repo.ListByRoom(c, roomID, 50)
	if err != nil {
		h.logger.Error("list dialout", zap.String("room_id", roomID), zap.Error(err))
		response.Internal(c, "could not list dial-out attempts")
		return
	}
	response.OK(c, attempts)
}
