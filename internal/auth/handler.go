package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/team-telnyx/telnyx-meet-sub000/pkg/response"
)

// Handler serves the token endpoints.
type Handler struct {
	tokens  *TokenService
	refresh *RefreshStore
	logger  *zap.Logger
}

// NewHandler creates the token handler.
func NewHandler(tokens *TokenService, refresh *RefreshStore, logger *zap.Logger) *Handler {
	return &Handler{tokens: tokens, refresh: refresh, logger: logger}
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresInSec int    `json:"expires_in_sec"`
}

// Mint handles POST /rooms/:id/tokens — issues the initial access/refresh
// pair for a room identity.
func (h *Handler) Mint(c *gin.Context) {
	roomID := c.Param("id")
	if roomID == "" {
		response.BadRequest(c, "room id required")
		return
	}

	var req struct {
		Identity string `json:"identity"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Identity == "" {
		req.Identity = uuid.New().String()
	}

	pair, err := h.issue(c, Grant{RoomID: roomID, Identity: req.Identity, Name: req.Name})
	if err != nil {
		h.logger.Error("mint token", zap.String("room_id", roomID), zap.Error(err))
		response.Internal(c, "could not issue token")
		return
	}
	response.OK(c, pair)
}

// Refresh handles POST /tokens/refresh — rotates a refresh token into a new
// access/refresh pair without interrupting the session that uses it.
func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		response.BadRequest(c, "refresh_token required")
		return
	}

	grant, err := h.refresh.Redeem(c, req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenInvalid) {
			response.Unauthorized(c, "refresh token invalid or expired")
			return
		}
		h.logger.Error("redeem refresh token", zap.Error(err))
		response.Internal(c, "could not refresh token")
		return
	}

	pair, err := h.issue(c, *grant)
	if err != nil {
		h.logger.Error("reissue token", zap.String("room_id", grant.RoomID), zap.Error(err))
		response.Internal(c, "could not refresh token")
		return
	}
	response.OK(c, pair)
}

func (h *Handler) issue(c *gin.Context, grant Grant) (*tokenPair, error) {
	access, err := h.tokens.Generate(grant.RoomID, grant.Identity, grant.Name)
	if err != nil {
		return nil, err
	}
	refresh, err := h.refresh.Issue(c, grant)
	if err != nil {
		return nil, err
	}
	return &tokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresInSec: int(h.tokens.AccessTTL().Seconds()),
	}, nil
}
