package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User balances are integer micro units (scale 6).
type User struct {
	ID        int64           `json:"id"`
	ChatID    string          `json:"chat_id"`
	Address   string          `json:"address"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}
