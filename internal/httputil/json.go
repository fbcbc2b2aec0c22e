package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"levtrade/internal/apperr"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Envelope wraps every bot-facing response.
type Envelope struct {
	Status string      `json:"status"`
	Error  string      `json:"error,omitempty"`
	Code   apperr.Code `json:"code,omitempty"`
	Body   any         `json:"body,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func ReadJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("empty request body")
		}
		return apperr.Validation("invalid json: " + err.Error())
	}
	return nil
}

// DecodeValid reads v and runs its `validate` struct tags.
func DecodeValid(r *http.Request, v any) error {
	if err := ReadJSON(r, v); err != nil {
		return err
	}
	return Validate(v)
}

func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return apperr.Validation(strings.Join(parts, "; "))
	}
	return apperr.Validation(err.Error())
}

func WriteSuccess(w http.ResponseWriter, body any) {
	WriteJSON(w, http.StatusOK, Envelope{Status: StatusSuccess, Body: body})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps an apperr code to its HTTP status. Internal failures are
// reported with the generic message only.
func WriteError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	WriteJSON(w, StatusFor(code), Envelope{Status: StatusFail, Error: apperr.Public(err), Code: code})
}

func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeInsufficientBalance, apperr.CodeTooManyOpenPositions, apperr.CodeMarketClosed:
		return http.StatusConflict
	case apperr.CodeRestricted:
		return http.StatusForbidden
	case apperr.CodeAssetNotFound, apperr.CodePositionNotFound, apperr.CodeUserNotFound, apperr.CodeTransferNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ChatID accepts the bot's chat identifier as either a JSON string or number.
type ChatID string

func (c *ChatID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*c = ChatID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("chat id must be a string or number")
	}
	*c = ChatID(strings.TrimSpace(s))
	return nil
}
