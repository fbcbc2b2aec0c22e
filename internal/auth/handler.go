package auth

import (
	"context"
	"net/http"
	"time"

	"levtrade/internal/apperr"
	"levtrade/internal/httputil"
	"levtrade/internal/model"
)

type Resolver interface {
	Resolve(ctx context.Context, chatID string) (model.User, error)
}

type Handler struct {
	svc   *Service
	users Resolver
}

func NewHandler(svc *Service, users Resolver) *Handler {
	return &Handler{svc: svc, users: users}
}

type streamTokenRequest struct {
	ChatID httputil.ChatID `json:"chat_id" validate:"required"`
}

type streamTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StreamToken issues a token for the account behind chat_id. The token
// opens /v1/ws for that account only.
func (h *Handler) StreamToken(w http.ResponseWriter, r *http.Request) {
	var req streamTokenRequest
	if err := httputil.DecodeValid(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.users.Resolve(r.Context(), string(req.ChatID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, exp, err := h.svc.Issue(u.Address)
	if err != nil {
		httputil.WriteError(w, apperr.Internal(err))
		return
	}
	httputil.WriteSuccess(w, streamTokenResponse{Token: token, ExpiresAt: exp})
}
