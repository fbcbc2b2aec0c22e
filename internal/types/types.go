package types

import "fmt"

type Side string

type PositionStatus string

type AssetClass string

type TransferDirection string

type TransferStatus string

const (
	SideUp   Side = "up"
	SideDown Side = "down"
)

const (
	PositionStatusLive   PositionStatus = "live"
	PositionStatusClosed PositionStatus = "closed"
	PositionStatusBusted PositionStatus = "busted"
)

const (
	AssetClassCrypto AssetClass = "crypto"
	AssetClassStock  AssetClass = "stock"
)

const (
	TransferDirectionDeposit    TransferDirection = "deposit"
	TransferDirectionWithdrawal TransferDirection = "withdrawal"
)

const (
	TransferStatusPending TransferStatus = "pending"
	TransferStatusSuccess TransferStatus = "success"
	TransferStatusFailed  TransferStatus = "failed"
)

func ParseSide(raw string) (Side, error) {
	switch Side(raw) {
	case SideUp, SideDown:
		return Side(raw), nil
	}
	return "", fmt.Errorf("invalid side %q", raw)
}

func ParseAssetClass(raw string) (AssetClass, error) {
	switch AssetClass(raw) {
	case AssetClassCrypto, AssetClassStock:
		return AssetClass(raw), nil
	}
	return "", fmt.Errorf("invalid asset class %q", raw)
}

func ParsePositionStatus(raw string) (PositionStatus, error) {
	switch PositionStatus(raw) {
	case PositionStatusLive, PositionStatusClosed, PositionStatusBusted:
		return PositionStatus(raw), nil
	}
	return "", fmt.Errorf("invalid position status %q", raw)
}

func ParseTransferStatus(raw string) (TransferStatus, error) {
	switch TransferStatus(raw) {
	case TransferStatusPending, TransferStatusSuccess, TransferStatusFailed:
		return TransferStatus(raw), nil
	}
	return "", fmt.Errorf("invalid transfer status %q", raw)
}

func ParseTransferDirection(raw string) (TransferDirection, error) {
	switch TransferDirection(raw) {
	case TransferDirectionDeposit, TransferDirectionWithdrawal:
		return TransferDirection(raw), nil
	}
	return "", fmt.Errorf("invalid transfer direction %q", raw)
}

// Terminal reports whether no further transition is allowed from s.
func (s PositionStatus) Terminal() bool {
	switch s {
	case PositionStatusLive:
		return false
	case PositionStatusClosed, PositionStatusBusted:
		return true
	default:
		panic(fmt.Sprintf("unhandled position status %q", string(s)))
	}
}

// CanTransition allows only live->closed and live->busted.
func (s PositionStatus) CanTransition(to PositionStatus) bool {
	if s.Terminal() {
		return false
	}
	return to == PositionStatusClosed || to == PositionStatusBusted
}
