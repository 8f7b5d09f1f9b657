package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pointsScope/internal/model"
)

// Checkpoint persists the last block whose logs were fully written.
type Checkpoint interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, block uint64) error
}

// JobStore keeps named job progress; postgres.Store implements it.
type JobStore interface {
	LoadState(ctx context.Context, name model.JobName) (uint64, bool, error)
	SaveState(ctx context.Context, name model.JobName, progress uint64) error
}

// StoreCheckpoint keeps the checkpoint in a JobStore under the log sync job.
type StoreCheckpoint struct {
	Store JobStore
}

func (c *StoreCheckpoint) Load(ctx context.Context) (uint64, bool, error) {
	block, ok, err := c.Store.LoadState(ctx, model.JobLogSync)
	if err != nil {
		return 0, false, fmt.Errorf("load checkpoint: %w", err)
	}
	return block, ok, nil
}

func (c *StoreCheckpoint) Save(ctx context.Context, block uint64) error {
	if err := c.Store.SaveState(ctx, model.JobLogSync, block); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// FileCheckpoint keeps the checkpoint in a local JSON file. An empty Path
// disables it.
type FileCheckpoint struct {
	Path string
}

type checkpointRecord struct {
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

func (c *FileCheckpoint) Load(context.Context) (uint64, bool, error) {
	if c == nil || c.Path == "" {
		return 0, false, nil
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var rec checkpointRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return rec.LastProcessedBlock, true, nil
}

func (c *FileCheckpoint) Save(_ context.Context, block uint64) error {
	if c == nil || c.Path == "" {
		return nil
	}
	if dir := filepath.Dir(c.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(checkpointRecord{
		LastProcessedBlock: block,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmp, c.Path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
