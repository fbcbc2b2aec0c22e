// Package transfers applies the terminal transitions of deposits and
// withdrawals that the chain reconciliation jobs report back.
package transfers

import (
	"context"

	"levtrade/internal/apperr"
	"levtrade/internal/db"
	"levtrade/internal/model"
	"levtrade/internal/money"
	"levtrade/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	InsertDeposit(ctx context.Context, q db.DBTX, address, txHash string, assetAmount decimal.Decimal) (model.Transfer, bool, error)
	GetPendingForUpdate(ctx context.Context, q db.DBTX, id int64, dir types.TransferDirection) (model.Transfer, error)
	Finish(ctx context.Context, q db.DBTX, id int64, dir types.TransferDirection, status types.TransferStatus, stable *decimal.Decimal, txHash *string) (bool, error)
	Approve(ctx context.Context, q db.DBTX, id int64) (bool, error)
	PendingWithdrawals(ctx context.Context, q db.DBTX, thresholdMicros decimal.Decimal) ([]model.Transfer, error)
}

type Creditor interface {
	Credit(ctx context.Context, q db.DBTX, address string, micros decimal.Decimal) error
}

type Config struct {
	// BridgeCost is deducted from every deposit, in display units.
	BridgeCost decimal.Decimal
	// ApprovalThreshold withdrawals at or above it wait for approval.
	ApprovalThreshold decimal.Decimal
}

type Service struct {
	tx     db.Transactor
	repo   Repository
	ledger Creditor
	cfg    Config
	log    *zap.Logger
}

func NewService(tx db.Transactor, repo Repository, ledger Creditor, cfg Config, log *zap.Logger) *Service {
	return &Service{tx: tx, repo: repo, ledger: ledger, cfg: cfg, log: log.Named("transfers")}
}

func (s *Service) RecordDeposit(ctx context.Context, address, txHash string, assetAmount decimal.Decimal) (model.Transfer, error) {
	if address == "" || txHash == "" {
		return model.Transfer{}, apperr.Validation("address and tx hash are required")
	}
	if !assetAmount.IsPositive() {
		return model.Transfer{}, apperr.Validation("deposit amount must be positive")
	}
	t, created, err := s.repo.InsertDeposit(ctx, nil, address, txHash, assetAmount)
	if err != nil {
		return model.Transfer{}, apperr.Internal(err)
	}
	if created {
		s.log.Info("deposit recorded", zap.Int64("id", t.ID), zap.String("address", address), zap.String("tx_hash", txHash))
	}
	return t, nil
}

// DepositValue converts a chain amount to the stable amount credited:
// truncated to cents at the given USD price, minus the bridge cost.
func DepositValue(assetAmount, usdPrice, bridgeCost decimal.Decimal) decimal.Decimal {
	return money.RoundDown(assetAmount.Mul(usdPrice), money.DisplayScale).Sub(bridgeCost)
}

// SettleDeposit credits a pending deposit at usdPrice. A deposit worth no
// more than the bridge cost is marked failed and credits nothing.
func (s *Service) SettleDeposit(ctx context.Context, id int64, usdPrice decimal.Decimal) (model.Transfer, error) {
	if !usdPrice.IsPositive() {
		return model.Transfer{}, apperr.Validation("price must be positive")
	}
	var out model.Transfer
	err := s.tx.InTx(ctx, func(q db.DBTX) error {
		t, err := s.repo.GetPendingForUpdate(ctx, q, id, types.TransferDirectionDeposit)
		if err != nil {
			return err
		}
		if t.AssetAmount == nil {
			return apperr.Validation("deposit has no asset amount")
		}
		micros := money.ToMicros(DepositValue(*t.AssetAmount, usdPrice, s.cfg.BridgeCost))
		status := types.TransferStatusSuccess
		if !micros.IsPositive() {
			status = types.TransferStatusFailed
			micros = decimal.Zero
		}
		ok, err := s.repo.Finish(ctx, q, id, types.TransferDirectionDeposit, status, &micros, nil)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrTransferNotFound
		}
		if status == types.TransferStatusSuccess {
			if err := s.ledger.Credit(ctx, q, t.Address, micros); err != nil {
				return err
			}
		}
		t.Status = status
		t.StableAmount = &micros
		out = t
		return nil
	})
	if err != nil {
		return model.Transfer{}, s.internal(err, id)
	}
	s.log.Info("deposit settled", zap.Int64("id", id), zap.String("status", string(out.Status)), zap.Stringer("micros", out.StableAmount))
	return out, nil
}

func (s *Service) PendingWithdrawals(ctx context.Context) ([]model.Transfer, error) {
	out, err := s.repo.PendingWithdrawals(ctx, nil, money.ToMicros(s.cfg.ApprovalThreshold))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) ApproveWithdrawal(ctx context.Context, id int64) error {
	ok, err := s.repo.Approve(ctx, nil, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.ErrTransferNotFound
	}
	s.log.Info("withdrawal approved", zap.Int64("id", id))
	return nil
}

// CompleteWithdrawal records the chain tx; the balance was debited when the
// withdrawal was requested.
func (s *Service) CompleteWithdrawal(ctx context.Context, id int64, txHash string) error {
	if txHash == "" {
		return apperr.Validation("tx hash is required")
	}
	ok, err := s.repo.Finish(ctx, nil, id, types.TransferDirectionWithdrawal, types.TransferStatusSuccess, nil, &txHash)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.ErrTransferNotFound
	}
	s.log.Info("withdrawal completed", zap.Int64("id", id), zap.String("tx_hash", txHash))
	return nil
}

// FailWithdrawal marks a pending withdrawal failed and refunds its amount.
func (s *Service) FailWithdrawal(ctx context.Context, id int64) error {
	err := s.tx.InTx(ctx, func(q db.DBTX) error {
		t, err := s.repo.GetPendingForUpdate(ctx, q, id, types.TransferDirectionWithdrawal)
		if err != nil {
			return err
		}
		ok, err := s.repo.Finish(ctx, q, id, types.TransferDirectionWithdrawal, types.TransferStatusFailed, nil, nil)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrTransferNotFound
		}
		if t.StableAmount != nil && t.StableAmount.IsPositive() {
			return s.ledger.Credit(ctx, q, t.Address, *t.StableAmount)
		}
		return nil
	})
	if err != nil {
		return s.internal(err, id)
	}
	s.log.Info("withdrawal failed and refunded", zap.Int64("id", id))
	return nil
}

func (s *Service) internal(err error, id int64) error {
	if apperr.CodeOf(err) != apperr.CodeInternal {
		return err
	}
	s.log.Error("transfer", zap.Error(err), zap.Int64("id", id))
	return apperr.Internal(err)
}
