// Package wallet tracks asset balances for a strategy's wallet. Balances are
// exact integers in each asset's smallest unit and the balance map is only
// ever replaced as a whole: live wallets reload it from the custody provider,
// simulated wallets apply a paired debit/credit per executed trade.
package wallet

import (
	"context"
	"sync"

	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/pkg/errors"
	"go.uber.org/zap"
)

// BalanceEntry is one asset quantity held at an address.
type BalanceEntry struct {
	AssetID  string
	Quantity int64
}

// Provider is the wallet/custody collaborator. Implementations own key
// material and chain queries; the engine never sees either.
type Provider interface {
	// LoadWallet derives the wallet from a seed phrase and returns its
	// payment address.
	LoadWallet(ctx context.Context, seedPhrase []string, accountIndex int) (string, error)
	// UTxOs returns the balance entries currently held at an address. An
	// asset may appear in multiple entries; quantities are summed.
	UTxOs(ctx context.Context, address string) ([]BalanceEntry, error)
}

// Wallet is a loaded wallet's balance view. Safe for concurrent reads; the
// only writers are the boot path and the post-submission reload.
type Wallet struct {
	mu       sync.RWMutex
	provider Provider
	log      *logger.Logger

	address   string
	balances  map[string]int64
	loaded    bool
	simulated bool
}

// New creates a live wallet backed by a custody provider. The wallet is
// unloaded until Boot succeeds.
func New(provider Provider, log *logger.Logger) *Wallet {
	return &Wallet{
		provider:  provider,
		log:       log,
		address:   "",
		balances:  map[string]int64{},
		loaded:    false,
		simulated: false,
	}
}

// NewSimulated creates a pre-loaded wallet for backtesting. It has no custody
// provider; Reload is a no-op and trades mutate it via ApplyTrade.
func NewSimulated(initialBalances map[string]int64, log *logger.Logger) *Wallet {
	balances := make(map[string]int64, len(initialBalances))
	for assetID, quantity := range initialBalances {
		balances[assetID] = quantity
	}

	return &Wallet{
		provider:  nil,
		log:       log,
		address:   "addr_simulated",
		balances:  balances,
		loaded:    true,
		simulated: true,
	}
}

// Boot derives the wallet from the seed phrase and performs the initial
// balance load.
func (w *Wallet) Boot(ctx context.Context, seedPhrase []string, accountIndex int) error {
	if w.provider == nil {
		return errors.New(errors.ErrCodeWalletProviderUnset, "wallet provider not set")
	}

	address, err := w.provider.LoadWallet(ctx, seedPhrase, accountIndex)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCollaboratorBootFailed, "failed to load wallet", err)
	}

	w.mu.Lock()
	w.address = address
	w.mu.Unlock()

	return w.Reload(ctx)
}

// Reload replaces the balance map atomically with the provider's current
// view. Simulated wallets keep their state.
func (w *Wallet) Reload(ctx context.Context) error {
	if w.simulated {
		return nil
	}

	if w.provider == nil {
		return errors.New(errors.ErrCodeWalletProviderUnset, "wallet provider not set")
	}

	w.mu.RLock()
	address := w.address
	w.mu.RUnlock()

	entries, err := w.provider.UTxOs(ctx, address)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCollaboratorBootFailed, "failed to load wallet balances", err)
	}

	balances := make(map[string]int64, len(entries))
	for _, entry := range entries {
		balances[entry.AssetID] += entry.Quantity
	}

	w.mu.Lock()
	w.balances = balances
	w.loaded = true
	w.mu.Unlock()

	w.log.Debug("Wallet balances reloaded",
		zap.String("address", address),
		zap.Int("assets", len(balances)),
	)

	return nil
}

// ApplyTrade debits the input asset and credits the output asset. Simulation
// only; live balances always come from a full reload.
func (w *Wallet) ApplyTrade(inAsset types.Asset, inAmount int64, outAsset types.Asset, outAmount int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.balances[inAsset.Identifier()] -= inAmount
	w.balances[outAsset.Identifier()] += outAmount
}

// Balance returns the current quantity held for an asset.
func (w *Wallet) Balance(asset types.Asset) int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.balances[asset.Identifier()]
}

// Balances returns a copy of the full balance map.
func (w *Wallet) Balances() map[string]int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	balances := make(map[string]int64, len(w.balances))
	for assetID, quantity := range w.balances {
		balances[assetID] = quantity
	}

	return balances
}

// Address returns the wallet's payment address.
func (w *Wallet) Address() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.address
}

// IsLoaded reports whether the wallet has completed its first balance load.
func (w *Wallet) IsLoaded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.loaded
}

// IsSimulated reports whether the wallet is a backtest substitute.
func (w *Wallet) IsSimulated() bool {
	return w.simulated
}
