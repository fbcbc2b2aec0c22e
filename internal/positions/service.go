// Package positions runs the position lifecycle: open debits the stake and
// inserts a live position in one transaction, close settles it and credits
// the payout in one transaction.
package positions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"levtrade/internal/apperr"
	"levtrade/internal/db"
	"levtrade/internal/events"
	"levtrade/internal/fees"
	"levtrade/internal/marketdata"
	"levtrade/internal/metrics"
	"levtrade/internal/model"
	"levtrade/internal/money"
	"levtrade/internal/pricing"
	"levtrade/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Ledger interface {
	Lock(ctx context.Context, q db.DBTX, address string) error
	Debit(ctx context.Context, q db.DBTX, address string, micros decimal.Decimal) (bool, error)
	Credit(ctx context.Context, q db.DBTX, address string, micros decimal.Decimal) error
}

type Repository interface {
	Insert(ctx context.Context, q db.DBTX, p *model.Position) error
	CountLive(ctx context.Context, q db.DBTX, address string) (int, error)
	CountSince(ctx context.Context, q db.DBTX, address string, since time.Time) (int, error)
	GetLiveForUpdate(ctx context.Context, q db.DBTX, address string, id int64) (model.Position, error)
	Settle(ctx context.Context, q db.DBTX, id int64, st Settlement) (bool, error)
	ListByAddress(ctx context.Context, q db.DBTX, address string, statuses ...types.PositionStatus) ([]model.Position, error)
	ListLive(ctx context.Context, q db.DBTX) ([]model.Position, error)
}

type Quotes interface {
	Quote(symbol string) (marketdata.Quote, bool)
}

type MarketClock interface {
	IsMarketOpen() (bool, string)
}

type Config struct {
	MaxLive     int
	Restricted  map[string]struct{}
	WinningsFee decimal.Decimal
	FeeWindow   time.Duration
}

type Service struct {
	tx     db.Transactor
	ledger Ledger
	repo   Repository
	fees   *fees.Schedule
	quotes Quotes
	clock  MarketClock
	events events.Publisher
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
}

func NewService(tx db.Transactor, ledger Ledger, repo Repository, schedule *fees.Schedule, quotes Quotes, clock MarketClock, pub events.Publisher, cfg Config, log *zap.Logger) *Service {
	if cfg.MaxLive <= 0 {
		cfg.MaxLive = 5
	}
	if cfg.FeeWindow <= 0 {
		cfg.FeeWindow = 24 * time.Hour
	}
	if pub == nil {
		pub = events.Discard{}
	}
	return &Service{
		tx: tx, ledger: ledger, repo: repo, fees: schedule, quotes: quotes, clock: clock,
		events: pub, cfg: cfg, log: log.Named("positions"), now: time.Now,
	}
}

type OpenRequest struct {
	Address    string
	Asset      string
	AssetClass types.AssetClass // optional; must match the quote when set
	Side       types.Side
	Amount     decimal.Decimal // gross stake in display units, fee included
	Leverage   int
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
}

func (s *Service) validate(req OpenRequest) error {
	if _, err := types.ParseSide(string(req.Side)); err != nil {
		return apperr.Validation("side must be up or down")
	}
	if !req.Amount.IsPositive() {
		return apperr.Validation("amount must be positive")
	}
	if !pricing.ValidLeverage(req.Leverage) {
		return apperr.Validation(fmt.Sprintf("leverage must be between %d and %d", pricing.MinLeverage, pricing.MaxLeverage))
	}
	if req.Asset == "" {
		return apperr.Validation("asset is required")
	}
	if _, denied := s.cfg.Restricted[req.Asset]; denied {
		return apperr.ErrRestricted
	}
	return nil
}

// Open debits the gross amount and creates a live position staking the
// post-fee amount. The upfront fee is collected through that gross debit
// and recorded as upfront_fee. No position exists unless the debit
// committed with it.
func (s *Service) Open(ctx context.Context, req OpenRequest) (model.Position, error) {
	pos, err := s.open(ctx, req)
	if err != nil {
		metrics.OpenRejected.WithLabelValues(string(apperr.CodeOf(err))).Inc()
		return model.Position{}, err
	}
	metrics.PositionsOpened.WithLabelValues(string(pos.AssetClass), string(pos.Side)).Inc()
	s.log.Info("position opened",
		zap.Int64("id", pos.ID), zap.String("address", pos.Address), zap.String("asset", pos.Asset),
		zap.String("side", string(pos.Side)), zap.Stringer("amount", pos.Amount), zap.Int("leverage", pos.Leverage))
	s.publish(ctx, events.TypeOpened, pos)
	return pos, nil
}

func (s *Service) open(ctx context.Context, req OpenRequest) (model.Position, error) {
	if err := s.validate(req); err != nil {
		return model.Position{}, err
	}
	quote, ok := s.quotes.Quote(req.Asset)
	if !ok {
		return model.Position{}, apperr.ErrAssetNotFound
	}
	if req.AssetClass != "" && req.AssetClass != quote.Class {
		return model.Position{}, apperr.Validation(fmt.Sprintf("asset %s is not a %s asset", req.Asset, req.AssetClass))
	}
	if quote.Class == types.AssetClassStock {
		if open, reason := s.clock.IsMarketOpen(); !open {
			return model.Position{}, apperr.New(apperr.CodeMarketClosed, "stock market closed: "+reason)
		}
	}

	var pos model.Position
	err := s.tx.InTx(ctx, func(q db.DBTX) error {
		// Serializes opens per user so the live count below cannot go stale.
		if err := s.ledger.Lock(ctx, q, req.Address); err != nil {
			return err
		}
		live, err := s.repo.CountLive(ctx, q, req.Address)
		if err != nil {
			return err
		}
		if live >= s.cfg.MaxLive {
			return apperr.ErrTooManyOpenPositions
		}
		trailing, err := s.repo.CountSince(ctx, q, req.Address, s.now().Add(-s.cfg.FeeWindow))
		if err != nil {
			return err
		}
		net, fee := fees.ApplyFee(req.Amount, s.fees.FeePercentage(trailing))
		if !net.IsPositive() {
			return apperr.Validation("amount too small after fees")
		}
		debited, err := s.ledger.Debit(ctx, q, req.Address, money.ToMicros(req.Amount))
		if err != nil {
			return err
		}
		if !debited {
			return apperr.ErrInsufficientBalance
		}
		bust, err := pricing.BustPrice(net, req.Leverage, quote.Price, req.Side)
		if err != nil {
			s.log.Error("bust price", zap.Error(err), zap.String("asset", req.Asset), zap.Stringer("entry", quote.Price))
			return apperr.Internal(err)
		}
		pos = model.Position{
			UUID:            uuid.NewString(),
			Address:         req.Address,
			Asset:           req.Asset,
			AssetClass:      quote.Class,
			Side:            req.Side,
			Amount:          net,
			Leverage:        req.Leverage,
			Status:          types.PositionStatusLive,
			EntryPrice:      quote.Price,
			BustPrice:       pricing.AdjustForClass(bust, quote.Class),
			UpfrontFee:      fee,
			StopLossPrice:   req.StopLoss,
			TakeProfitPrice: req.TakeProfit,
		}
		return s.repo.Insert(ctx, q, &pos)
	})
	if err != nil {
		return model.Position{}, wrapInternal(err)
	}
	return pos, nil
}

type CloseResult struct {
	Position model.Position  `json:"position"`
	Payout   decimal.Decimal `json:"payout"`
}

// Close settles a live position at the current price and credits the payout.
// The status guard and the credit commit together, so a position pays out
// at most once.
func (s *Service) Close(ctx context.Context, address string, id int64) (CloseResult, error) {
	var res CloseResult
	err := s.tx.InTx(ctx, func(q db.DBTX) error {
		pos, err := s.repo.GetLiveForUpdate(ctx, q, address, id)
		if err != nil {
			return err
		}
		quote, ok := s.quotes.Quote(pos.Asset)
		if !ok {
			return apperr.ErrAssetNotFound
		}
		pnl, err := pricing.PnL(pos.EntryPrice, quote.Price, pos.Amount, pos.Leverage, pos.Side)
		if err != nil {
			s.log.Error("pnl", zap.Error(err), zap.Int64("id", pos.ID))
			return apperr.Internal(err)
		}
		net, fee := pricing.SettlementFee(pnl, s.cfg.WinningsFee)
		payout := pricing.Payout(pos.Amount, net)

		settled, err := s.repo.Settle(ctx, q, pos.ID, Settlement{
			Status:    types.PositionStatusClosed,
			ExitPrice: quote.Price,
			PnL:       net,
			Fee:       &fee,
		})
		if err != nil {
			return err
		}
		if !settled {
			return apperr.ErrPositionNotFound
		}
		if micros := money.ToMicros(payout); micros.IsPositive() {
			if err := s.ledger.Credit(ctx, q, address, micros); err != nil {
				return err
			}
		}

		exit := quote.Price
		pos.Status = types.PositionStatusClosed
		pos.ExitPrice = &exit
		pos.PnL = &net
		pos.Fee = &fee
		pos.UpdatedAt = s.now().UTC()
		res = CloseResult{Position: pos, Payout: payout}
		return nil
	})
	if err != nil {
		return CloseResult{}, wrapInternal(err)
	}
	metrics.PositionsSettled.WithLabelValues(string(types.PositionStatusClosed)).Inc()
	s.log.Info("position closed",
		zap.Int64("id", id), zap.String("address", address),
		zap.Stringer("pnl", res.Position.PnL), zap.Stringer("payout", res.Payout))
	s.publish(ctx, events.TypeClosed, res.Position)
	return res, nil
}

// OpenView is a live position marked to the current snapshot.
type OpenView struct {
	model.Position
	CurrentPrice *decimal.Decimal `json:"current_price"`
	PnLNow       decimal.Decimal  `json:"current_pnl"`
}

// ListOpen marks each live position to market. Positions without a quote
// report zero pnl and no current price.
func (s *Service) ListOpen(ctx context.Context, address string) ([]OpenView, error) {
	live, err := s.repo.ListByAddress(ctx, nil, address, types.PositionStatusLive)
	if err != nil {
		return nil, wrapInternal(err)
	}
	out := make([]OpenView, 0, len(live))
	for _, p := range live {
		view := OpenView{Position: p, PnLNow: decimal.Zero}
		if quote, ok := s.quotes.Quote(p.Asset); ok {
			price := quote.Price
			view.CurrentPrice = &price
			pnl, err := pricing.PnL(p.EntryPrice, price, p.Amount, p.Leverage, p.Side)
			if err != nil {
				s.log.Error("mark to market", zap.Error(err), zap.Int64("id", p.ID))
			} else {
				view.PnLNow = money.RoundDown(pnl, 3)
			}
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *Service) ListClosed(ctx context.Context, address string) ([]model.Position, error) {
	out, err := s.repo.ListByAddress(ctx, nil, address, types.PositionStatusClosed, types.PositionStatusBusted)
	if err != nil {
		return nil, wrapInternal(err)
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, typ events.Type, pos model.Position) {
	if err := s.events.Publish(ctx, events.NewPositionEvent(typ, pos)); err != nil {
		s.log.Warn("publish position event", zap.Error(err), zap.String("type", string(typ)), zap.Int64("id", pos.ID))
	}
}

// wrapInternal keeps typed outcomes and hides everything else behind
// the generic internal error.
func wrapInternal(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(err)
}
