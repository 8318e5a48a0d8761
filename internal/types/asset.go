package types

import (
	"github.com/shopspring/decimal"
)

// LovelaceID is the asset identifier of the network's native asset.
const LovelaceID = "lovelace"

// LovelaceDecimals is the number of decimal places in the native asset
// (1 ADA = 10^6 lovelace).
const LovelaceDecimals = 6

// Asset identifies an on-chain asset. The zero policy id marks the network's
// native asset (lovelace); everything else is a policy id + hex-encoded name
// pair.
type Asset struct {
	PolicyID string `json:"policyId" yaml:"policy_id"`
	NameHex  string `json:"nameHex" yaml:"name_hex"`
	Decimals int    `json:"decimals" yaml:"decimals"`
	Ticker   string `json:"ticker,omitempty" yaml:"ticker,omitempty"`
}

// Lovelace returns the native asset.
func Lovelace() Asset {
	return Asset{
		PolicyID: "",
		NameHex:  "",
		Decimals: LovelaceDecimals,
		Ticker:   "ADA",
	}
}

// AssetFromIdentifier parses a concatenated policy-id + name-hex identifier.
// The identifier "lovelace" yields the native asset. Policy ids are always 56
// hex characters; everything after is the asset name.
func AssetFromIdentifier(identifier string, decimals int) Asset {
	if identifier == LovelaceID || identifier == "" {
		return Lovelace()
	}

	policyID := identifier
	nameHex := ""

	if len(identifier) > 56 {
		policyID = identifier[:56]
		nameHex = identifier[56:]
	}

	return Asset{
		PolicyID: policyID,
		NameHex:  nameHex,
		Decimals: decimals,
		Ticker:   "",
	}
}

// IsLovelace reports whether the asset is the network's native asset.
func (a Asset) IsLovelace() bool {
	return a.PolicyID == ""
}

// Identifier returns the stable string identifier of the asset.
func (a Asset) Identifier() string {
	if a.IsLovelace() {
		return LovelaceID
	}

	return a.PolicyID + a.NameHex
}

// Matches reports whether two assets identify the same on-chain asset.
func (a Asset) Matches(other Asset) bool {
	return a.Identifier() == other.Identifier()
}

// ReadableTicker returns a display name for the asset, falling back to the
// hex name when no ticker metadata is known.
func (a Asset) ReadableTicker() string {
	if a.IsLovelace() {
		return "ADA"
	}

	if a.Ticker != "" {
		return a.Ticker
	}

	return a.NameHex
}

// HumanAmount converts an integer amount in the asset's smallest unit to a
// human-readable decimal. Used only for log and notification formatting;
// balance accounting never leaves integers.
func (a Asset) HumanAmount(amount int64) decimal.Decimal {
	return decimal.New(amount, -int32(a.Decimals))
}
