package transfers

import (
	"net/http"
	"strconv"

	"levtrade/internal/apperr"
	"levtrade/internal/httputil"
	"levtrade/internal/users"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type depositRequest struct {
	Address     string          `json:"address" validate:"required"`
	TxHash      string          `json:"tx_hash" validate:"required"`
	AssetAmount decimal.Decimal `json:"asset_amount"`
}

type settleRequest struct {
	Price decimal.Decimal `json:"price"`
}

type completeRequest struct {
	TxHash string `json:"tx_hash" validate:"required"`
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid transfer id")
	}
	return id, nil
}

func (h *Handler) RecordDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := httputil.DecodeValid(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	addr, err := users.NormalizeAddress(req.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.svc.RecordDeposit(r.Context(), addr, req.TxHash, req.AssetAmount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, t)
}

func (h *Handler) SettleDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req settleRequest
	if err := httputil.DecodeValid(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.svc.SettleDeposit(r.Context(), id, req.Price)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, t)
}

func (h *Handler) PendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.PendingWithdrawals(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.ApproveWithdrawal(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]int64{"id": id})
}

func (h *Handler) CompleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req completeRequest
	if err := httputil.DecodeValid(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.CompleteWithdrawal(r.Context(), id, req.TxHash); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]int64{"id": id})
}

func (h *Handler) FailWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.FailWithdrawal(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]int64{"id": id})
}
