package dex

import (
	"errors"
	"testing"

	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
)

func liquidityEvent(kind, owner string, lower, upper int32, amount string, block uint64) model.LiquidityEvent {
	return model.LiquidityEvent{
		Kind:        kind,
		BlockNumber: block,
		Timestamp:   1700000000 + block,
		Pool:        "0x9999999999999999999999999999999999999999",
		Owner:       owner,
		TickLower:   lower,
		TickUpper:   upper,
		Amount:      amount,
	}
}

func TestPositionBookReplay(t *testing.T) {
	const (
		alice = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
		bob   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	)
	book := NewPositionBook()
	events := []model.LiquidityEvent{
		liquidityEvent(model.EventMint, alice, -120, 120, "1000", 1),
		liquidityEvent(model.EventMint, bob, -60, 60, "500", 2),
		liquidityEvent(model.EventMint, alice, -120, 120, "250", 3),
		liquidityEvent(model.EventBurn, alice, -120, 120, "400", 4),
		liquidityEvent(model.EventBurn, bob, -60, 60, "500", 5),
	}
	for _, ev := range events {
		if err := book.Apply(ev); err != nil {
			t.Fatalf("apply block %d: %v", ev.BlockNumber, err)
		}
	}

	if book.Len() != 2 {
		t.Fatalf("tracked ranges: got %d want 2", book.Len())
	}
	records := book.Records()
	if len(records) != 1 {
		t.Fatalf("open positions: got %d want 1", len(records))
	}
	got := records[0]
	if got.Owner != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("owner not normalized: %s", got.Owner)
	}
	if got.Liquidity != "850" {
		t.Fatalf("liquidity: got %s want 850", got.Liquidity)
	}
	if got.BlockNumber != 4 || got.UpdatedAt != 1700000004 {
		t.Fatalf("last update mismatch: %+v", got)
	}
	if got.ID != model.PositionKey(alice, got.Pool, -120, 120) {
		t.Fatalf("id mismatch: %s", got.ID)
	}

	position, err := got.ToPosition()
	if err != nil {
		t.Fatalf("to position: %v", err)
	}
	if position.Width() != 240 {
		t.Fatalf("width: got %d", position.Width())
	}
}

func TestPositionBookRejects(t *testing.T) {
	const owner = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	book := NewPositionBook()
	if err := book.Apply(liquidityEvent(model.EventMint, owner, 0, 60, "10", 1)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	var overflowErr *fixedpoint.OverflowError
	if err := book.Apply(liquidityEvent(model.EventBurn, owner, 0, 60, "11", 2)); !errors.As(err, &overflowErr) {
		t.Fatalf("expected OverflowError for burn above liquidity, got %v", err)
	}
	if records := book.Records(); len(records) != 1 || records[0].Liquidity != "10" || records[0].BlockNumber != 1 {
		t.Fatalf("failed burn changed the book: %+v", records)
	}

	var rangeErr *model.InvalidRangeError
	if err := book.Apply(liquidityEvent(model.EventMint, owner, 60, 60, "1", 3)); !errors.As(err, &rangeErr) {
		t.Fatalf("expected InvalidRangeError, got %v", err)
	}
	if err := book.Apply(liquidityEvent(model.EventMint, owner, 0, 60, "ten", 4)); err == nil {
		t.Fatalf("expected error for malformed amount")
	}
	if err := book.Apply(liquidityEvent("Swap", owner, 0, 60, "1", 5)); err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
}
