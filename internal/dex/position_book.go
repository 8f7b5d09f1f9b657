package dex

import (
	"fmt"
	"sort"

	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
)

// PositionBook replays Mint and Burn events into open positions. Events must
// be applied in chain order. It is not safe for concurrent use.
type PositionBook struct {
	positions map[string]*model.PositionRecord
	liquidity map[string]fixedpoint.Value
}

func NewPositionBook() *PositionBook {
	return &PositionBook{
		positions: make(map[string]*model.PositionRecord),
		liquidity: make(map[string]fixedpoint.Value),
	}
}

// Apply adds a Mint or removes a Burn. Burning more than the position holds
// is an error and leaves the book unchanged.
func (b *PositionBook) Apply(ev model.LiquidityEvent) error {
	if ev.TickLower >= ev.TickUpper {
		return &model.InvalidRangeError{PositionID: ev.TxHash, Lower: ev.TickLower, Upper: ev.TickUpper}
	}
	amount, err := fixedpoint.ParseRaw(ev.Amount, 0)
	if err != nil {
		return fmt.Errorf("%s amount: %w", ev.Kind, err)
	}

	key := model.PositionKey(ev.Owner, ev.Pool, ev.TickLower, ev.TickUpper)
	current, ok := b.liquidity[key]
	if !ok {
		current = fixedpoint.Zero(0)
	}

	var next fixedpoint.Value
	switch ev.Kind {
	case model.EventMint:
		next, err = current.Add(amount)
	case model.EventBurn:
		next, err = current.Sub(amount)
		if err != nil {
			return fmt.Errorf("burn %s exceeds liquidity %s of %s: %w", amount, current, key, err)
		}
	default:
		return fmt.Errorf("unsupported event kind %q", ev.Kind)
	}
	if err != nil {
		return fmt.Errorf("apply %s to %s: %w", ev.Kind, key, err)
	}

	rec := b.positions[key]
	if rec == nil {
		rec = &model.PositionRecord{
			ID:        key,
			Owner:     model.NormalizeAddress(ev.Owner),
			Pool:      model.NormalizeAddress(ev.Pool),
			TickLower: ev.TickLower,
			TickUpper: ev.TickUpper,
		}
		b.positions[key] = rec
	}
	rec.UpdatedAt = ev.Timestamp
	rec.BlockNumber = ev.BlockNumber
	b.liquidity[key] = next
	return nil
}

// Records returns positions with nonzero liquidity ordered by ID.
func (b *PositionBook) Records() []model.PositionRecord {
	out := make([]model.PositionRecord, 0, len(b.positions))
	for key, rec := range b.positions {
		liquidity := b.liquidity[key]
		if liquidity.IsZero() {
			continue
		}
		snapshot := *rec
		snapshot.Liquidity = liquidity.String()
		out = append(out, snapshot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of tracked ranges, including closed ones.
func (b *PositionBook) Len() int {
	return len(b.positions)
}
