package model

import (
	"time"

	"levtrade/internal/types"

	"github.com/shopspring/decimal"
)

// Transfer is a pending deposit or withdrawal. StableAmount is in ledger micro
// units; AssetAmount is in the chain asset's own unit.
type Transfer struct {
	ID                 int64                   `json:"id"`
	Address            string                  `json:"address"`
	Direction          types.TransferDirection `json:"direction"`
	Status             types.TransferStatus    `json:"status"`
	TxHash             *string                 `json:"tx_hash"`
	AssetAmount        *decimal.Decimal        `json:"asset_amount"`
	StableAmount       *decimal.Decimal        `json:"stable_amount"`
	DestinationAddress *string                 `json:"destination_address"`
	Approved           bool                    `json:"approved"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}
