// Package users resolves chat identities to custodial accounts and takes
// withdrawal requests against their balance.
package users

import (
	"context"

	"levtrade/internal/apperr"
	"levtrade/internal/db"
	"levtrade/internal/model"
	"levtrade/internal/money"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Lookup interface {
	GetByChatID(ctx context.Context, chatID string) (model.User, error)
}

type Debitor interface {
	Debit(ctx context.Context, q db.DBTX, address string, micros decimal.Decimal) (bool, error)
}

type WithdrawalRecorder interface {
	InsertWithdrawal(ctx context.Context, q db.DBTX, address, destination string, micros decimal.Decimal) (model.Transfer, error)
}

type Service struct {
	tx          db.Transactor
	users       Lookup
	ledger      Debitor
	withdrawals WithdrawalRecorder
	log         *zap.Logger
}

func NewService(tx db.Transactor, users Lookup, ledger Debitor, withdrawals WithdrawalRecorder, log *zap.Logger) *Service {
	return &Service{tx: tx, users: users, ledger: ledger, withdrawals: withdrawals, log: log.Named("users")}
}

func (s *Service) Resolve(ctx context.Context, chatID string) (model.User, error) {
	if chatID == "" {
		return model.User{}, apperr.Validation("chat id is required")
	}
	return s.users.GetByChatID(ctx, chatID)
}

type Info struct {
	Address string `json:"address"`
	Balance string `json:"usdc"`
}

func (s *Service) Info(ctx context.Context, chatID string) (Info, error) {
	u, err := s.Resolve(ctx, chatID)
	if err != nil {
		return Info{}, err
	}
	return Info{Address: u.Address, Balance: money.Display(money.FromMicros(u.Balance))}, nil
}

// RequestWithdrawal debits amount and queues a pending withdrawal to
// destination. Both happen in one transaction.
func (s *Service) RequestWithdrawal(ctx context.Context, chatID, destination string, amount decimal.Decimal) (model.Transfer, error) {
	if !amount.IsPositive() {
		return model.Transfer{}, apperr.Validation("withdraw amount must be positive")
	}
	dest, err := NormalizeAddress(destination)
	if err != nil {
		return model.Transfer{}, err
	}
	u, err := s.Resolve(ctx, chatID)
	if err != nil {
		return model.Transfer{}, err
	}
	micros := money.ToMicros(amount)
	if !micros.IsPositive() {
		return model.Transfer{}, apperr.Validation("withdraw amount too small")
	}

	var out model.Transfer
	err = s.tx.InTx(ctx, func(q db.DBTX) error {
		ok, err := s.ledger.Debit(ctx, q, u.Address, micros)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrInsufficientBalance
		}
		out, err = s.withdrawals.InsertWithdrawal(ctx, q, u.Address, dest, micros)
		return err
	})
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeInternal {
			s.log.Error("withdrawal request", zap.Error(err), zap.String("address", u.Address))
			return model.Transfer{}, apperr.Internal(err)
		}
		return model.Transfer{}, err
	}
	s.log.Info("withdrawal requested", zap.Int64("id", out.ID), zap.String("address", u.Address),
		zap.String("destination", dest), zap.Stringer("micros", micros))
	return out, nil
}
