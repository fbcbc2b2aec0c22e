package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"levtrade/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type openBody struct {
	ChatID   string `json:"chat_id" validate:"required"`
	Leverage int    `json:"leverage" validate:"min=1,max=1000"`
}

func TestDecodeValid(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"chat_id":"42","leverage":10}`))
	var body openBody
	require.NoError(t, DecodeValid(r, &body))
	assert.Equal(t, "42", body.ChatID)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"chat_id":"","leverage":0}`))
	err := DecodeValid(r, &body)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "chatid failed required")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	assert.ErrorIs(t, DecodeValid(r, &body), apperr.ErrValidation)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.ErrorIs(t, ReadJSON(r, &body), apperr.ErrValidation)
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperr.Internal(errors.New("pq: connection reset")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusFail, resp.Status)
	assert.Equal(t, "position problem", resp.Error)
	assert.Equal(t, apperr.CodeInternal, resp.Code)
}

func TestWriteErrorStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperr.ErrInsufficientBalance)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Insufficient user balance")

	rec = httptest.NewRecorder()
	WriteError(rec, apperr.ErrRestricted)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"balance": "12.50"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","body":{"balance":"12.50"}}`, rec.Body.String())
}

func TestChatIDAcceptsNumberOrString(t *testing.T) {
	var body struct {
		ChatID ChatID `json:"chat_id" validate:"required"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"chat_id":123456789}`), &body))
	assert.Equal(t, ChatID("123456789"), body.ChatID)

	require.NoError(t, json.Unmarshal([]byte(`{"chat_id":" 42 "}`), &body))
	assert.Equal(t, ChatID("42"), body.ChatID)

	assert.Error(t, json.Unmarshal([]byte(`{"chat_id":true}`), &body))
}
