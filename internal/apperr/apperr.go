// Package apperr holds the closed set of failure outcomes surfaced to callers.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation           Code = "VALIDATION"
	CodeInsufficientBalance  Code = "INSUFFICIENT_BALANCE"
	CodeTooManyOpenPositions Code = "TOO_MANY_OPEN_POSITIONS"
	CodeRestricted           Code = "RESTRICTED"
	CodeMarketClosed         Code = "MARKET_CLOSED"
	CodeAssetNotFound        Code = "ASSET_NOT_FOUND"
	CodePositionNotFound     Code = "POSITION_NOT_FOUND"
	CodeUserNotFound         Code = "USER_NOT_FOUND"
	CodeTransferNotFound     Code = "TRANSFER_NOT_FOUND"
	CodeInternal             Code = "INTERNAL"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrValidation           = &Error{Code: CodeValidation, Message: "invalid request"}
	ErrInsufficientBalance  = &Error{Code: CodeInsufficientBalance, Message: "Insufficient user balance"}
	ErrTooManyOpenPositions = &Error{Code: CodeTooManyOpenPositions, Message: "too many live positions"}
	ErrRestricted           = &Error{Code: CodeRestricted, Message: "asset restricted"}
	ErrMarketClosed         = &Error{Code: CodeMarketClosed, Message: "stock market closed"}
	ErrAssetNotFound        = &Error{Code: CodeAssetNotFound, Message: "asset not found"}
	ErrPositionNotFound     = &Error{Code: CodePositionNotFound, Message: "position not found"}
	ErrUserNotFound         = &Error{Code: CodeUserNotFound, Message: "user not found"}
	ErrTransferNotFound     = &Error{Code: CodeTransferNotFound, Message: "transfer not found"}
	ErrInternal             = &Error{Code: CodeInternal, Message: "position problem"}
)

func Validation(msg string) error {
	return &Error{Code: CodeValidation, Message: msg}
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

func Internal(err error) error {
	return &Error{Code: CodeInternal, Message: ErrInternal.Message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Public returns the message that is safe to show to a caller. Internal
// failures collapse to a generic message.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != CodeInternal {
		return e.Message
	}
	return ErrInternal.Message
}
