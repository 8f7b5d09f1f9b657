package dex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"

	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
)

type fakeCaller struct {
	mu       sync.Mutex
	outputs  map[string][]byte
	calls    map[string]int
	failures int
	blocks   []*big.Int
}

func newFakeCaller(t *testing.T, sqrtPrice *big.Int, tick int64, liquidity *big.Int, spacing int64) *fakeCaller {
	t.Helper()
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	slot0, err := poolABI.Methods["slot0"].Outputs.Pack(
		sqrtPrice, big.NewInt(tick), uint16(1), uint16(1), uint16(1), uint8(0), true,
	)
	if err != nil {
		t.Fatalf("pack slot0: %v", err)
	}
	liq, err := poolABI.Methods["liquidity"].Outputs.Pack(liquidity)
	if err != nil {
		t.Fatalf("pack liquidity: %v", err)
	}
	sp, err := poolABI.Methods["tickSpacing"].Outputs.Pack(big.NewInt(spacing))
	if err != nil {
		t.Fatalf("pack tickSpacing: %v", err)
	}
	return &fakeCaller{
		outputs: map[string][]byte{
			string(poolABI.Methods["slot0"].ID):       slot0,
			string(poolABI.Methods["liquidity"].ID):   liq,
			string(poolABI.Methods["tickSpacing"].ID): sp,
		},
		calls: make(map[string]int),
	}
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks = append(f.blocks, blockNumber)
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("rpc unavailable")
	}
	if len(msg.Data) < 4 {
		return nil, fmt.Errorf("short calldata")
	}
	selector := string(msg.Data[:4])
	out, ok := f.outputs[selector]
	if !ok {
		return nil, fmt.Errorf("unknown selector %x", msg.Data[:4])
	}
	f.calls[selector]++
	return bytes.Clone(out), nil
}

func (f *fakeCaller) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func TestChainPoolSourceReadsAndCaches(t *testing.T) {
	sqrtPrice, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	liquidity, _ := new(big.Int).SetString("340282366920938463463", 10)
	caller := newFakeCaller(t, sqrtPrice, -887, liquidity, 60)

	source := NewChainPoolSource(caller, 4200, RetryPolicy{}, zap.NewNop())
	const pool = "0x9999999999999999999999999999999999999999"

	rec, err := source.PoolState(context.Background(), pool)
	if err != nil {
		t.Fatalf("pool state: %v", err)
	}
	if rec.Address != pool {
		t.Fatalf("address: %s", rec.Address)
	}
	if rec.Tick != -887 || rec.TickSpacing != 60 {
		t.Fatalf("tick mismatch: %+v", rec)
	}
	if rec.SqrtPriceX96 != sqrtPrice.String() || rec.Liquidity != liquidity.String() {
		t.Fatalf("price or liquidity mismatch: %+v", rec)
	}
	if rec.BlockNumber != 4200 {
		t.Fatalf("block: %d", rec.BlockNumber)
	}
	for _, block := range caller.blocks {
		if block == nil || block.Uint64() != 4200 {
			t.Fatalf("call not pinned to block 4200: %v", block)
		}
	}

	if _, err := source.PoolState(context.Background(), "0x9999999999999999999999999999999999999999"); err != nil {
		t.Fatalf("cached pool state: %v", err)
	}
	if got := caller.totalCalls(); got != 3 {
		t.Fatalf("calls: got %d want 3", got)
	}

	state, err := rec.ToPoolState(fixedpoint.Zero(model.PointsDecimals))
	if err != nil {
		t.Fatalf("to pool state: %v", err)
	}
	if state.CurrentTick != -887 || state.Promoted() {
		t.Fatalf("pool state mismatch: %+v", state)
	}
}

func TestChainPoolSourceRetries(t *testing.T) {
	caller := newFakeCaller(t, big.NewInt(1<<40), 10, big.NewInt(1000), 10)
	caller.failures = 2

	source := NewChainPoolSource(caller, 0, RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}, nil)
	rec, err := source.PoolState(context.Background(), "0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("pool state after retries: %v", err)
	}
	if rec.Liquidity != "1000" {
		t.Fatalf("liquidity: %s", rec.Liquidity)
	}
	if caller.blocks[0] != nil {
		t.Fatalf("expected latest block read, got %v", caller.blocks[0])
	}

	failing := newFakeCaller(t, big.NewInt(1<<40), 10, big.NewInt(1000), 10)
	failing.failures = 5
	source = NewChainPoolSource(failing, 0, RetryPolicy{MaxRetries: 1, Backoff: time.Millisecond}, nil)
	if _, err := source.PoolState(context.Background(), "0x1111111111111111111111111111111111111111"); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if _, err := source.PoolState(context.Background(), "not-an-address"); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}
