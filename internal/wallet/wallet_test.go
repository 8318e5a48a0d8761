package wallet

import (
	"context"
	"testing"

	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/stretchr/testify/suite"
)

// fakeProvider is a scripted custody provider.
type fakeProvider struct {
	address string
	entries []BalanceEntry
	err     error
}

func (f *fakeProvider) LoadWallet(_ context.Context, _ []string, _ int) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	return f.address, nil
}

func (f *fakeProvider) UTxOs(_ context.Context, _ string) ([]BalanceEntry, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.entries, nil
}

type WalletTestSuite struct {
	suite.Suite
}

func TestWalletSuite(t *testing.T) {
	suite.Run(t, new(WalletTestSuite))
}

func (suite *WalletTestSuite) TestBootLoadsBalances() {
	provider := &fakeProvider{
		address: "addr_test1",
		entries: []BalanceEntry{
			{AssetID: "lovelace", Quantity: 100_000000},
			{AssetID: "lovelace", Quantity: 50_000000},
			{AssetID: "policytoken", Quantity: 42},
		},
	}

	w := New(provider, logger.NewNopLogger())
	suite.False(w.IsLoaded())

	err := w.Boot(context.Background(), []string{"seed"}, 0)
	suite.NoError(err)
	suite.True(w.IsLoaded())
	suite.Equal("addr_test1", w.Address())

	// Entries for the same asset are summed
	suite.Equal(int64(150_000000), w.Balance(types.Lovelace()))
}

func (suite *WalletTestSuite) TestReloadReplacesWholeMap() {
	provider := &fakeProvider{
		address: "addr_test1",
		entries: []BalanceEntry{
			{AssetID: "lovelace", Quantity: 100_000000},
			{AssetID: "policytoken", Quantity: 42},
		},
	}

	w := New(provider, logger.NewNopLogger())
	suite.NoError(w.Boot(context.Background(), []string{"seed"}, 0))

	// Provider view changes: token gone, lovelace reduced
	provider.entries = []BalanceEntry{
		{AssetID: "lovelace", Quantity: 70_000000},
	}
	suite.NoError(w.Reload(context.Background()))

	balances := w.Balances()
	suite.Equal(int64(70_000000), balances["lovelace"])
	_, held := balances["policytoken"]
	suite.False(held, "stale assets must not survive a reload")
}

func (suite *WalletTestSuite) TestSimulatedWalletIsPreLoaded() {
	w := NewSimulated(map[string]int64{"lovelace": 1000_000000}, logger.NewNopLogger())
	suite.True(w.IsLoaded())
	suite.True(w.IsSimulated())
	suite.Equal(int64(1000_000000), w.Balance(types.Lovelace()))

	// Reload is a no-op for simulated wallets
	suite.NoError(w.Reload(context.Background()))
	suite.Equal(int64(1000_000000), w.Balance(types.Lovelace()))
}

func (suite *WalletTestSuite) TestApplyTradeDebitsAndCredits() {
	w := NewSimulated(map[string]int64{"lovelace": 1000_000000}, logger.NewNopLogger())

	indy := types.AssetFromIdentifier("533bb94a8850ee3ccbe483106489399112b74c905342cb1792a797a0494e4459", 6)
	w.ApplyTrade(types.Lovelace(), 25_000000, indy, 11_500000)

	suite.Equal(int64(975_000000), w.Balance(types.Lovelace()))
	suite.Equal(int64(11_500000), w.Balance(indy))
}

func (suite *WalletTestSuite) TestBootWithoutProvider() {
	w := NewSimulated(nil, logger.NewNopLogger())
	w.simulated = false

	err := w.Reload(context.Background())
	suite.Error(err)
}
