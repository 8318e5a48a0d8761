package types

import (
	"github.com/shopspring/decimal"
)

// LiquidityPool is an on-chain reserve pair on a DEX. Reserves are integers
// in each asset's smallest unit.
type LiquidityPool struct {
	Dex          string          `json:"dex"`
	Identifier   string          `json:"identifier"`
	Address      string          `json:"address"`
	OrderAddress string          `json:"orderAddress"`
	AssetA       Asset           `json:"assetA"`
	AssetB       Asset           `json:"assetB"`
	ReserveA     int64           `json:"reserveA"`
	ReserveB     int64           `json:"reserveB"`
	FeePercent   decimal.Decimal `json:"feePercent"`
}

// Contains reports whether the pool holds the given asset on either side.
func (p LiquidityPool) Contains(asset Asset) bool {
	return p.AssetA.Matches(asset) || p.AssetB.Matches(asset)
}

// OtherAsset resolves the opposite side of the pool for a given input asset.
// The input asset must be one of the pool's two assets; if it is not, the
// pool's B side is returned.
func (p LiquidityPool) OtherAsset(in Asset) Asset {
	if p.AssetA.Matches(in) {
		return p.AssetB
	}

	return p.AssetA
}

// Reserve returns the pool reserve held for the given asset.
func (p LiquidityPool) Reserve(asset Asset) int64 {
	if p.AssetA.Matches(asset) {
		return p.ReserveA
	}

	return p.ReserveB
}

// Pair returns a display name for the pool's asset pair.
func (p LiquidityPool) Pair() string {
	return p.AssetA.ReadableTicker() + "/" + p.AssetB.ReadableTicker()
}
