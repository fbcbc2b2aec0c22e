package positions

import (
	"context"
	"net/http"
	"strings"

	"levtrade/internal/httputil"
	"levtrade/internal/model"
	"levtrade/internal/types"

	"github.com/shopspring/decimal"
)

// Resolver maps a chat id to its account.
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

type openRequest struct {
	ChatID     httputil.ChatID  `json:"chat_id" validate:"required"`
	Asset      string           `json:"asset" validate:"required"`
	AssetType  string           `json:"asset_type" validate:"omitempty,oneof=crypto stock"`
	Side       string           `json:"side" validate:"required,oneof=up down"`
	Amount     decimal.Decimal  `json:"amount"`
	Leverage   int              `json:"leverage" validate:"required"`
	StopLoss   *decimal.Decimal `json:"stop_loss"`
	TakeProfit *decimal.Decimal `json:"take_profit"`
}

type closeRequest struct {
	ChatID httputil.ChatID `json:"chat_id" validate:"required"`
	ID     int64           `json:"id" validate:"required,gt=0"`
}

type chatRequest struct {
	ChatID httputil.ChatID `json:"chat_id" validate:"required"`
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := httputil.DecodeValid(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.users.Resolve(r.Context(), string(req.ChatID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pos, err := h.svc.Open(r.Context(), OpenRequest{
		Address:    u.Address,
		Asset:      strings.TrimSpace(req.Asset),
		AssetClass: types.AssetClass(req.AssetType),
		Side:       types.Side(req.Side),
		Amount:     req.Amount,
		Leverage:   req.Leverage,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, pos)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := httputil.DecodeValid(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.users.Resolve(r.Context(), string(req.ChatID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.Close(r.Context(), u.Address, req.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, res)
}

func (h *Handler) OpenPositions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := httputil.DecodeValid(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.users.Resolve(r.Context(), string(req.ChatID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views, err := h.svc.ListOpen(r.Context(), u.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, views)
}

func (h *Handler) ClosedPositions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := httputil.DecodeValid(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.users.Resolve(r.Context(), string(req.ChatID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.svc.ListClosed(r.Context(), u.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}
