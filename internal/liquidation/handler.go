package liquidation

import (
	"net/http"

	"levtrade/internal/apperr"
	"levtrade/internal/httputil"
)

type Handler struct {
	scanner *Scanner
}

func NewHandler(scanner *Scanner) *Handler {
	return &Handler{scanner: scanner}
}

// CheckBust runs one sweep on demand, alongside the periodic loop.
func (h *Handler) CheckBust(w http.ResponseWriter, r *http.Request) {
	res, err := h.scanner.Sweep(r.Context())
	if err != nil {
		httputil.WriteError(w, apperr.Internal(err))
		return
	}
	httputil.WriteSuccess(w, res)
}
