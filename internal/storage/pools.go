package storage

import (
	"context"
	"fmt"
	"sync"

	"pointsScope/internal/model"
)

// StaticPoolSource serves pool state from a JSONL snapshot.
type StaticPoolSource struct {
	mu    sync.RWMutex
	pools map[string]model.PoolRecord
}

// NewStaticPoolSource indexes records by normalized address. Later records
// for the same pool replace earlier ones.
func NewStaticPoolSource(records []model.PoolRecord) *StaticPoolSource {
	src := &StaticPoolSource{pools: make(map[string]model.PoolRecord, len(records))}
	for _, rec := range records {
		src.pools[model.NormalizeAddress(rec.Address)] = rec
	}
	return src
}

// LoadStaticPoolSource reads a pools JSONL file. Malformed lines are errors.
func LoadStaticPoolSource(path string) (*StaticPoolSource, error) {
	records := make([]model.PoolRecord, 0, 64)
	err := ReadJSONL(path, func(line int, rec model.PoolRecord, decodeErr error) error {
		if decodeErr != nil {
			return fmt.Errorf("pools line %d: %w", line, decodeErr)
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewStaticPoolSource(records), nil
}

func (s *StaticPoolSource) PoolState(_ context.Context, address string) (model.PoolRecord, error) {
	s.mu.RLock()
	rec, ok := s.pools[model.NormalizeAddress(address)]
	s.mu.RUnlock()
	if !ok {
		return model.PoolRecord{}, fmt.Errorf("pool %s not in snapshot", address)
	}
	return rec, nil
}
