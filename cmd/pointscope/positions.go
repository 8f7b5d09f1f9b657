package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pointsScope/internal/config"
	"pointsScope/internal/dex"
	"pointsScope/internal/model"
	"pointsScope/internal/storage"
)

func runPositions(cmd *cobra.Command, _ []string) (err error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPositions(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	decoder, err := dex.NewPositionDecoder(dex.DecoderConfig{Topic0Map: cfg.Topic0Map})
	if err != nil {
		return err
	}

	var errWriter storage.Sink = storage.DiscardSink{}
	if cfg.Errors != "" {
		if errWriter, err = storage.NewJSONLWriter(cfg.Errors, false); err != nil {
			return err
		}
	}
	defer func() {
		if cerr := errWriter.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close errors output: %w", cerr)
		}
	}()

	logger.Info("positions start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
	)

	var total, skipped, failed int
	records := make([]model.LogRecord, 0, 1024)
	err = storage.ReadJSONL(cfg.In, func(line int, record model.LogRecord, decodeErr error) error {
		total++
		if decodeErr != nil {
			failed++
			return errWriter.Write(model.DecodeError{Stage: "json", Error: fmt.Sprintf("line %d: %v", line, decodeErr)})
		}
		if record.Removed || !decoder.CanDecode(record.Topic0()) {
			skipped++
			return nil
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return err
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Before(records[j]) })

	book := dex.NewPositionBook()
	var applied int
	for _, record := range records {
		event, err := decoder.Decode(record)
		if err != nil {
			failed++
			if err := errWriter.Write(model.NewDecodeError(record, "decode", err)); err != nil {
				return err
			}
			continue
		}
		if err := book.Apply(event); err != nil {
			failed++
			if err := errWriter.Write(model.NewDecodeError(record, "apply", err)); err != nil {
				return err
			}
			continue
		}
		applied++
	}

	outWriter, err := storage.NewJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	open := book.Records()
	for _, rec := range open {
		if err := outWriter.Write(rec); err != nil {
			outWriter.Close()
			return err
		}
	}
	if err := outWriter.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	logger.Info("positions complete",
		zap.Int("total", total),
		zap.Int("applied", applied),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("ranges", book.Len()),
		zap.Int("open", len(open)),
	)
	return nil
}
