package users

import (
	"net/http"

	"levtrade/internal/httputil"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type infoRequest struct {
	ChatID httputil.ChatID `json:"chat_id" validate:"required"`
}

type withdrawRequest struct {
	ChatID             httputil.ChatID `json:"chat_id" validate:"required"`
	DestinationAddress string          `json:"destination_address" validate:"required"`
	Amount             decimal.Decimal `json:"amount"`
}

func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	var req infoRequest
	if err := httputil.DecodeValid(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	info, err := h.svc.Info(r.Context(), string(req.ChatID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, info)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := httputil.DecodeValid(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.svc.RequestWithdrawal(r.Context(), string(req.ChatID), req.DestinationAddress, req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, t)
}
