// Package market queries historic market data and pool metadata from the
// data API host. The backtest engine uses it to pull price and order history
// for a window, and the sweep job uses it to resolve pool metadata by
// identifier.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/pkg/errors"
)

const requestTimeout = 30 * time.Second

// Source is the historic market data surface consumed by the backtest engine
// and the sweep job.
type Source interface {
	// MatchPool resolves pool metadata by identifier. Returns
	// ErrCodePoolNotFound when the host does not know the pool.
	MatchPool(ctx context.Context, identifier string) (types.LiquidityPool, error)
	// PoolStatesHistoric returns pool state snapshots for the slot window.
	PoolStatesHistoric(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.PoolState, error)
	// SwapsHistoric returns swap orders created within the slot window.
	SwapsHistoric(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.SwapOrder, error)
	// DepositsHistoric returns deposit orders created within the slot window.
	DepositsHistoric(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.DepositOrder, error)
	// WithdrawsHistoric returns withdraw orders created within the slot window.
	WithdrawsHistoric(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.WithdrawOrder, error)
}

// Client is the HTTP implementation of Source.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a market data client for the given API host.
func NewClient(apiHost string) *Client {
	return &Client{
		baseURL: apiHost,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// MatchPool implements Source.
func (c *Client) MatchPool(ctx context.Context, identifier string) (types.LiquidityPool, error) {
	endpoint := fmt.Sprintf("%s/liquidity-pools/%s", c.baseURL, url.PathEscape(identifier))

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return types.LiquidityPool{}, err
	}

	if status == http.StatusNotFound {
		return types.LiquidityPool{}, errors.Newf(errors.ErrCodePoolNotFound, "no liquidity pool matching %s", identifier)
	}

	if status != http.StatusOK {
		return types.LiquidityPool{}, errors.Newf(errors.ErrCodeMarketQueryFailed, "pool lookup for %s returned status %d", identifier, status)
	}

	var pool types.LiquidityPool
	if err := json.Unmarshal(body, &pool); err != nil {
		return types.LiquidityPool{}, errors.Wrapf(errors.ErrCodeMarketParseFailed, err, "malformed pool response for %s", identifier)
	}

	return pool, nil
}

// PoolStatesHistoric implements Source.
func (c *Client) PoolStatesHistoric(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.PoolState, error) {
	var states []types.PoolState
	if err := c.getHistoric(ctx, poolIdentifier, "states", fromSlot, toSlot, &states); err != nil {
		return nil, err
	}

	return states, nil
}

// SwapsHistoric implements Source.
func (c *Client) SwapsHistoric(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.SwapOrder, error) {
	var swaps []types.SwapOrder
	if err := c.getHistoric(ctx, poolIdentifier, "swaps", fromSlot, toSlot, &swaps); err != nil {
		return nil, err
	}

	return swaps, nil
}

// DepositsHistoric implements Source.
func (c *Client) DepositsHistoric(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.DepositOrder, error) {
	var deposits []types.DepositOrder
	if err := c.getHistoric(ctx, poolIdentifier, "deposits", fromSlot, toSlot, &deposits); err != nil {
		return nil, err
	}

	return deposits, nil
}

// WithdrawsHistoric implements Source.
func (c *Client) WithdrawsHistoric(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.WithdrawOrder, error) {
	var withdraws []types.WithdrawOrder
	if err := c.getHistoric(ctx, poolIdentifier, "withdraws", fromSlot, toSlot, &withdraws); err != nil {
		return nil, err
	}

	return withdraws, nil
}

func (c *Client) getHistoric(ctx context.Context, poolIdentifier string, resource string, fromSlot int64, toSlot int64, out any) error {
	query := url.Values{}
	query.Set("fromSlot", strconv.FormatInt(fromSlot, 10))
	query.Set("toSlot", strconv.FormatInt(toSlot, 10))

	endpoint := fmt.Sprintf(
		"%s/liquidity-pools/%s/%s?%s",
		c.baseURL,
		url.PathEscape(poolIdentifier),
		resource,
		query.Encode(),
	)

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		return errors.Newf(errors.ErrCodeMarketQueryFailed, "%s query for %s returned status %d", resource, poolIdentifier, status)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketParseFailed, err, "malformed %s response for %s", resource, poolIdentifier)
	}

	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, errors.Wrapf(errors.ErrCodeMarketQueryFailed, err, "failed to build request for %s", endpoint)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrapf(errors.ErrCodeMarketQueryFailed, err, "request to %s failed", endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Wrapf(errors.ErrCodeMarketQueryFailed, err, "failed to read response from %s", endpoint)
	}

	return body, resp.StatusCode, nil
}

// Verify Client implements the Source interface.
var _ Source = (*Client)(nil)
