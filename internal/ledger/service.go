// Package ledger owns every mutation of a user's stable balance. Balances are
// integer micro-units; see money.ToMicros.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"levtrade/internal/apperr"
	"levtrade/internal/db"
	"levtrade/internal/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service struct {
	pool db.DBTX
	log  *zap.Logger
}

func NewService(pool db.DBTX, log *zap.Logger) *Service {
	return &Service{pool: pool, log: log.Named("ledger")}
}

// scope picks the caller's transaction when given one.
func (s *Service) scope(q db.DBTX) db.DBTX {
	if q == nil {
		return s.pool
	}
	return q
}

// Lock takes the user row for the rest of q's transaction. Operations that
// must be serialized per user (opening positions) call it first.
func (s *Service) Lock(ctx context.Context, q db.DBTX, address string) error {
	var id int64
	err := s.scope(q).QueryRow(ctx, `select id from users where address = $1 for update`, address).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lock user %s: %w", address, err)
	}
	return nil
}

func (s *Service) Balance(ctx context.Context, q db.DBTX, address string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.scope(q).QueryRow(ctx, `select balance from users where address = $1`, address).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, apperr.ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance %s: %w", address, err)
	}
	return balance, nil
}

// Debit subtracts micros only if the balance covers it. The check and the
// write are one statement, so concurrent debits can never overdraw. It
// reports false, with no error, when funds are insufficient or the user is
// unknown.
func (s *Service) Debit(ctx context.Context, q db.DBTX, address string, micros decimal.Decimal) (bool, error) {
	amount := micros.RoundDown(0)
	if amount.IsNegative() {
		return false, apperr.Validation("debit amount must not be negative")
	}
	var balance decimal.Decimal
	err := s.scope(q).QueryRow(ctx,
		`update users set balance = balance - $1 where address = $2 and balance >= $1 returning balance`,
		amount, address,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.LedgerOps.WithLabelValues("debit", "insufficient").Inc()
		s.log.Info("debit refused", zap.String("address", address), zap.Stringer("amount", amount))
		return false, nil
	}
	if err != nil {
		metrics.LedgerOps.WithLabelValues("debit", "error").Inc()
		return false, fmt.Errorf("debit %s: %w", address, err)
	}
	metrics.LedgerOps.WithLabelValues("debit", "ok").Inc()
	s.log.Debug("balance debited", zap.String("address", address), zap.Stringer("amount", amount), zap.Stringer("balance", balance))
	return true, nil
}

// Credit adds micros. A credit to an unknown address changes nothing and is
// logged, not returned as an error.
func (s *Service) Credit(ctx context.Context, q db.DBTX, address string, micros decimal.Decimal) error {
	amount := micros.RoundDown(0)
	if amount.IsNegative() {
		return apperr.Validation("credit amount must not be negative")
	}
	tag, err := s.scope(q).Exec(ctx, `update users set balance = balance + $1 where address = $2`, amount, address)
	if err != nil {
		metrics.LedgerOps.WithLabelValues("credit", "error").Inc()
		return fmt.Errorf("credit %s: %w", address, err)
	}
	if tag.RowsAffected() == 0 {
		metrics.LedgerOps.WithLabelValues("credit", "no_user").Inc()
		s.log.Warn("credit matched no user", zap.String("address", address), zap.Stringer("amount", amount))
		return nil
	}
	metrics.LedgerOps.WithLabelValues("credit", "ok").Inc()
	s.log.Debug("balance credited", zap.String("address", address), zap.Stringer("amount", amount))
	return nil
}
