package types

import (
	"encoding/json"

	"github.com/breeze-labs/breeze/internal/chrono"
	"github.com/breeze-labs/breeze/pkg/errors"
	"github.com/shopspring/decimal"
)

// EventType discriminates the market event union on the wire.
type EventType string

const (
	EventTypePriceTick       EventType = "PriceTick"
	EventTypePoolState       EventType = "LiquidityPoolState"
	EventTypeSwapOrder       EventType = "SwapOrder"
	EventTypeDepositOrder    EventType = "DepositOrder"
	EventTypeWithdrawOrder   EventType = "WithdrawOrder"
	EventTypeOperationStatus EventType = "OperationStatus"
)

// OperationStatusKind is the lifecycle state reported for an on-chain
// operation.
type OperationStatusKind string

const (
	OperationStatusPending   OperationStatusKind = "PENDING"
	OperationStatusOnChain   OperationStatusKind = "ON_CHAIN"
	OperationStatusComplete  OperationStatusKind = "COMPLETE"
	OperationStatusCancelled OperationStatusKind = "CANCELLED"
)

// OperationKind names the operation an OperationStatus event refers to.
type OperationKind string

const (
	OperationSwap     OperationKind = "swap"
	OperationDeposit  OperationKind = "deposit"
	OperationWithdraw OperationKind = "withdraw"
)

// MarketEvent is the tagged union of everything the live feed delivers and
// the replay engine feeds. Every member carries a time-ordering key expressed
// as a network slot.
type MarketEvent interface {
	EventType() EventType
	// OrderingSlot is the slot used to order this event against others.
	OrderingSlot() int64
}

// PriceTick is a per-pool price observation.
type PriceTick struct {
	PoolIdentifier string          `json:"liquidityPool"`
	Close          decimal.Decimal `json:"close"`
	Volume         decimal.Decimal `json:"volume"`
	Slot           int64           `json:"slot"`
}

func (t PriceTick) EventType() EventType { return EventTypePriceTick }
func (t PriceTick) OrderingSlot() int64  { return t.Slot }

// PoolState is a snapshot of a liquidity pool's reserves.
type PoolState struct {
	Pool LiquidityPool `json:"pool"`
	Slot int64         `json:"slot"`
}

func (s PoolState) EventType() EventType { return EventTypePoolState }
func (s PoolState) OrderingSlot() int64  { return s.Slot }

// SwapOrder is an observed swap against a pool.
type SwapOrder struct {
	PoolIdentifier string `json:"liquidityPool"`
	TxHash         string `json:"txHash"`
	InAsset        Asset  `json:"inAsset"`
	OutAsset       Asset  `json:"outAsset"`
	InAmount       int64  `json:"inAmount"`
	MinReceive     int64  `json:"minReceive"`
	SenderAddress  string `json:"senderAddress"`
	CreatedSlot    int64  `json:"createdSlot"`
}

func (o SwapOrder) EventType() EventType { return EventTypeSwapOrder }
func (o SwapOrder) OrderingSlot() int64  { return o.CreatedSlot }

// DepositOrder is an observed liquidity deposit into a pool.
type DepositOrder struct {
	PoolIdentifier string `json:"liquidityPool"`
	TxHash         string `json:"txHash"`
	AmountA        int64  `json:"amountA"`
	AmountB        int64  `json:"amountB"`
	CreatedSlot    int64  `json:"createdSlot"`
}

func (o DepositOrder) EventType() EventType { return EventTypeDepositOrder }
func (o DepositOrder) OrderingSlot() int64  { return o.CreatedSlot }

// WithdrawOrder is an observed liquidity withdrawal from a pool.
type WithdrawOrder struct {
	PoolIdentifier string `json:"liquidityPool"`
	TxHash         string `json:"txHash"`
	LPTokenAmount  int64  `json:"lpTokenAmount"`
	CreatedSlot    int64  `json:"createdSlot"`
}

func (o WithdrawOrder) EventType() EventType { return EventTypeWithdrawOrder }
func (o WithdrawOrder) OrderingSlot() int64  { return o.CreatedSlot }

// OperationStatus reports the lifecycle state of a previously submitted
// operation. It carries a unix timestamp rather than a slot; the ordering key
// is derived.
type OperationStatus struct {
	TxHash    string              `json:"txHash"`
	Operation OperationKind       `json:"operation"`
	Status    OperationStatusKind `json:"status"`
	Timestamp int64               `json:"timestamp"`
}

func (s OperationStatus) EventType() EventType { return EventTypeOperationStatus }

func (s OperationStatus) OrderingSlot() int64 {
	return chrono.UnixToSlot(s.Timestamp)
}

// IsTerminal reports whether the status is final (completed or cancelled).
func (s OperationStatus) IsTerminal() bool {
	return s.Status == OperationStatusComplete || s.Status == OperationStatusCancelled
}

type eventEnvelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeEvent parses a wire message into its concrete MarketEvent. Messages
// with an unrecognized type tag produce an ErrCodeMarketParseFailed error;
// the feed drops them without disturbing other listeners.
func DecodeEvent(raw []byte) (MarketEvent, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketParseFailed, "failed to decode event envelope", err)
	}

	var (
		event MarketEvent
		err   error
	)

	switch envelope.Type {
	case EventTypePriceTick:
		var tick PriceTick
		err = json.Unmarshal(envelope.Data, &tick)
		event = tick
	case EventTypePoolState:
		var state PoolState
		err = json.Unmarshal(envelope.Data, &state)
		event = state
	case EventTypeSwapOrder:
		var order SwapOrder
		err = json.Unmarshal(envelope.Data, &order)
		event = order
	case EventTypeDepositOrder:
		var order DepositOrder
		err = json.Unmarshal(envelope.Data, &order)
		event = order
	case EventTypeWithdrawOrder:
		var order WithdrawOrder
		err = json.Unmarshal(envelope.Data, &order)
		event = order
	case EventTypeOperationStatus:
		var status OperationStatus
		err = json.Unmarshal(envelope.Data, &status)
		event = status
	default:
		return nil, errors.Newf(errors.ErrCodeMarketParseFailed, "unknown event type %q", envelope.Type)
	}

	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketParseFailed, err, "failed to decode %s event", envelope.Type)
	}

	return event, nil
}

// EncodeEvent wraps a MarketEvent into its wire envelope. Used by the feed
// test server and the simulated feed.
func EncodeEvent(event MarketEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketParseFailed, "failed to encode event payload", err)
	}

	return json.Marshal(eventEnvelope{
		Type: event.EventType(),
		Data: data,
	})
}
