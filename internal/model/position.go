package model

import (
	"time"

	"levtrade/internal/types"

	"github.com/shopspring/decimal"
)

type Position struct {
	ID              int64                `json:"id"`
	UUID            string               `json:"uuid"`
	Address         string               `json:"address"`
	Asset           string               `json:"asset"`
	AssetClass      types.AssetClass     `json:"asset_type"`
	Side            types.Side           `json:"side"`
	Amount          decimal.Decimal      `json:"amount"`
	Leverage        int                  `json:"leverage"`
	Status          types.PositionStatus `json:"status"`
	EntryPrice      decimal.Decimal      `json:"entry_price"`
	ExitPrice       *decimal.Decimal     `json:"exit_price"`
	BustPrice       decimal.Decimal      `json:"bust_price"`
	PnL             *decimal.Decimal     `json:"pnl"`
	UpfrontFee      decimal.Decimal      `json:"upfront_fee"`
	Fee             *decimal.Decimal     `json:"fee"`
	StopLossPrice   *decimal.Decimal     `json:"user_stop_loss_price"`
	TakeProfitPrice *decimal.Decimal     `json:"user_take_profit_price"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}
