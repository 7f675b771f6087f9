// Package execution turns signals into contract purchases.
package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"derivbot-go/internal/exchange"
	"derivbot-go/internal/metrics"
	"derivbot-go/internal/risk"
	"derivbot-go/internal/signal"
)

// ContractType is the binary contract bought for a signal.
type ContractType string

const (
	// Call pays out when the price ends higher.
	Call ContractType = "CALL"
	// Put pays out when the price ends lower.
	Put ContractType = "PUT"
)

// ErrStakeRejected is returned when the risk guard refuses the configured stake.
var ErrStakeRejected = errors.New("stake rejected by risk limits")

// ContractFor maps an action onto a contract type.
func ContractFor(action signal.Action) (ContractType, bool) {
	switch action {
	case signal.Buy:
		return Call, true
	case signal.Sell:
		return Put, true
	default:
		return "", false
	}
}

// OrderSpec is the fixed part of every order.
type OrderSpec struct {
	Symbol       string
	Stake        float64
	Currency     string
	Duration     int
	DurationUnit string
}

// Order represents a placement request the executor can process.
type Order struct {
	Symbol       string
	Stake        float64
	ContractType ContractType
	Duration     int
	DurationUnit string
	Currency     string
}

// Result is the outcome of one buy attempt: either a contract id or the venue's failure message.
type Result struct {
	Order      Order
	ContractID int64
	BuyPrice   float64
	Failure    string
}

// OK reports whether the venue confirmed the contract.
func (r Result) OK() bool { return r.Failure == "" && r.ContractID != 0 }

// Buyer places contracts on the venue. *exchange.Client satisfies it.
type Buyer interface {
	Buy(ctx context.Context, contract exchange.Contract) (exchange.Receipt, error)
}

// Executor builds orders from signals and submits them once.
type Executor struct {
	log    zerolog.Logger
	spec   OrderSpec
	limits risk.Limits
}

// NewExecutor wires the fixed order spec and the stake guard.
func NewExecutor(log zerolog.Logger, spec OrderSpec, limits risk.Limits) *Executor {
	return &Executor{log: log.With().Str("component", "executor").Logger(), spec: spec, limits: limits}
}

// Build returns the order for sig, or false when sig carries no action.
func (executor *Executor) Build(sig signal.Signal) (Order, bool) {
	ct, ok := ContractFor(sig.Action)
	if !ok {
		return Order{}, false
	}
	return Order{
		Symbol:       executor.spec.Symbol,
		Stake:        executor.spec.Stake,
		ContractType: ct,
		Duration:     executor.spec.Duration,
		DurationUnit: executor.spec.DurationUnit,
		Currency:     executor.spec.Currency,
	}, true
}

// Submit places one order for sig. A venue rejection is reported in Result.Failure with a nil error;
// the error return is reserved for transport failures and refused stakes. There is no retry.
func (executor *Executor) Submit(ctx context.Context, buyer Buyer, sig signal.Signal) (Result, error) {
	order, ok := executor.Build(sig)
	if !ok {
		return Result{}, fmt.Errorf("submit: signal %s is not actionable", sig.Action)
	}
	if !executor.limits.Allow(order.Stake) {
		return Result{Order: order}, fmt.Errorf("%w: %.2f over %.2f", ErrStakeRejected, order.Stake, executor.limits.MaxStake)
	}

	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.ContractType)).Inc()
	executor.log.Info().Str("sym", order.Symbol).Str("contract", string(order.ContractType)).Float64("stake", order.Stake).
		Int("duration", order.Duration).Str("unit", order.DurationUnit).Msg("submit order")

	receipt, err := buyer.Buy(ctx, exchange.Contract{
		Symbol:       order.Symbol,
		Stake:        order.Stake,
		ContractType: string(order.ContractType),
		Currency:     order.Currency,
		Duration:     order.Duration,
		DurationUnit: order.DurationUnit,
	})
	if err != nil {
		var apiErr *exchange.APIError
		if errors.As(err, &apiErr) && errors.Is(err, exchange.ErrTrade) {
			metrics.TradeResultsTotal.WithLabelValues("rejected").Inc()
			executor.log.Warn().Str("code", apiErr.Code).Str("reason", apiErr.Message).Msg("order rejected")
			return Result{Order: order, Failure: apiErr.Message}, nil
		}
		metrics.TradeResultsTotal.WithLabelValues("error").Inc()
		return Result{Order: order}, fmt.Errorf("submit order: %w", err)
	}

	metrics.TradeResultsTotal.WithLabelValues("filled").Inc()
	executor.log.Info().Int64("contract_id", receipt.ContractID).Float64("buy_price", receipt.BuyPrice).Msg("order filled")
	return Result{Order: order, ContractID: receipt.ContractID, BuyPrice: receipt.BuyPrice}, nil
}
