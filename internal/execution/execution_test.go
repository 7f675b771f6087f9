package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"derivbot-go/internal/exchange"
	"derivbot-go/internal/risk"
	"derivbot-go/internal/signal"
)

type stubBuyer struct {
	calls   []exchange.Contract
	receipt exchange.Receipt
	err     error
}

func (b *stubBuyer) Buy(_ context.Context, c exchange.Contract) (exchange.Receipt, error) {
	b.calls = append(b.calls, c)
	return b.receipt, b.err
}

func testSpec() OrderSpec {
	return OrderSpec{Symbol: "R_100", Stake: 0.35, Currency: "USD", Duration: 3, DurationUnit: "m"}
}

func TestContractFor(t *testing.T) {
	if ct, ok := ContractFor(signal.Buy); !ok || ct != Call {
		t.Fatalf("expected CALL for buy")
	}
	if ct, ok := ContractFor(signal.Sell); !ok || ct != Put {
		t.Fatalf("expected PUT for sell")
	}
	if _, ok := ContractFor(signal.None); ok {
		t.Fatalf("expected no contract for none")
	}
}

func TestSubmitLogsOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	buyer := &stubBuyer{receipt: exchange.Receipt{ContractID: 77, BuyPrice: 0.35}}
	exec := NewExecutor(logger, testSpec(), risk.Limits{})
	res, err := exec.Submit(context.Background(), buyer, signal.Signal{Action: signal.Sell})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if !res.OK() || res.ContractID != 77 || res.Order.ContractType != Put {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(buyer.calls) != 1 {
		t.Fatalf("expected a single buy, got %d", len(buyer.calls))
	}
	c := buyer.calls[0]
	if c.ContractType != "PUT" || c.Stake != 0.35 || c.Symbol != "R_100" || c.Duration != 3 || c.DurationUnit != "m" || c.Currency != "USD" {
		t.Fatalf("unexpected contract %+v", c)
	}
	out := buf.String()
	if !strings.Contains(out, "R_100") || !strings.Contains(out, "submit order") {
		t.Fatalf("log does not contain order: %s", out)
	}
}

func TestSubmitRejectedIsResultNotError(t *testing.T) {
	rejection := exchange.NewAPIError("buy", "InsufficientBalance", "Insufficient balance.")
	buyer := &stubBuyer{err: fmt.Errorf("buy: %w", rejection)}
	exec := NewExecutor(zerolog.Nop(), testSpec(), risk.Limits{})
	res, err := exec.Submit(context.Background(), buyer, signal.Signal{Action: signal.Buy})
	if err != nil {
		t.Fatalf("rejection should not be an error, got %v", err)
	}
	if res.OK() || res.Failure != "Insufficient balance." || res.Order.ContractType != Call {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(buyer.calls) != 1 {
		t.Fatalf("expected no retry, got %d calls", len(buyer.calls))
	}
}

func TestSubmitTransportErrorPropagates(t *testing.T) {
	buyer := &stubBuyer{err: exchange.ErrConnectionInterrupted}
	exec := NewExecutor(zerolog.Nop(), testSpec(), risk.Limits{})
	if _, err := exec.Submit(context.Background(), buyer, signal.Signal{Action: signal.Buy}); !errors.Is(err, exchange.ErrConnectionInterrupted) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestSubmitRefusesNoneAndOversizedStake(t *testing.T) {
	buyer := &stubBuyer{}
	exec := NewExecutor(zerolog.Nop(), testSpec(), risk.Limits{MaxStake: 0.1})
	if _, err := exec.Submit(context.Background(), buyer, signal.Signal{Action: signal.None}); err == nil {
		t.Fatalf("expected error for none signal")
	}
	if _, err := exec.Submit(context.Background(), buyer, signal.Signal{Action: signal.Buy}); !errors.Is(err, ErrStakeRejected) {
		t.Fatalf("expected stake rejection, got %v", err)
	}
	if len(buyer.calls) != 0 {
		t.Fatalf("nothing should reach the venue, got %d calls", len(buyer.calls))
	}
}
