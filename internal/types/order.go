package types

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// OrderRecord is a persisted order row. Created at submission time; the
// settlement flag is flipped exactly once by the settlement reconciler.
// Asset identifier fields are None for the network's native asset, matching
// the nullable columns in the ledger schema.
type OrderRecord struct {
	ID              int64                   `json:"id"`
	BacktestID      optional.Option[int64]  `json:"backtestId"`
	PoolIdentifier  string                  `json:"liquidityPool"`
	Strategy        string                  `json:"strategy"`
	SwapInAmount    int64                   `json:"swapInAmount"`
	MinReceive      int64                   `json:"minReceive"`
	SwapInAsset     optional.Option[string] `json:"swapInToken"`
	SwapOutAsset    optional.Option[string] `json:"swapOutToken"`
	SlippagePercent decimal.Decimal         `json:"slippagePercent"`
	DexFeesPaid     int64                   `json:"dexFeesPaid"`
	TxHash          string                  `json:"txHash"`
	IsSettled       bool                    `json:"isSettled"`
	Timestamp       int64                   `json:"timestamp"`
}

// AssetColumn converts an asset to its nullable ledger representation: None
// for lovelace, the identifier otherwise.
func AssetColumn(asset Asset) optional.Option[string] {
	if asset.IsLovelace() {
		return optional.None[string]()
	}

	return optional.Some(asset.Identifier())
}

// AssetFromColumn is the inverse of AssetColumn.
func AssetFromColumn(column optional.Option[string], decimals int) Asset {
	if column.IsNone() {
		return Lovelace()
	}

	return AssetFromIdentifier(column.Unwrap(), decimals)
}
