package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tendersum/internal/config"
	"tendersum/internal/ingest"
	"tendersum/internal/storage"
	"tendersum/internal/summarize"
	"tendersum/internal/util"

	"go.temporal.io/sdk/temporal"
)

// Error types carried across the Temporal boundary. Failures of these types
// are terminal; everything else goes through the workflow retry policy.
const (
	ErrTypeUnsupportedFormat = "UnsupportedFormat"
	ErrTypeExtractionFailure = "ExtractionFailure"
	ErrTypeDuplicateTender   = "DuplicateTender"
)

type Activities struct {
	cfg       config.Config
	store     storage.SummaryStore
	processor *ingest.Processor
}

func New(cfg config.Config, store storage.SummaryStore) (*Activities, error) {
	pm, err := summarize.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	summarizer := summarize.New(pm.First(), summarize.Options{
		MaxInputLen: cfg.SummaryMaxInputLen,
		MinTokens:   cfg.SummaryMinTokens,
		MaxTokens:   cfg.SummaryMaxTokens,
		Timeout:     time.Duration(cfg.SummaryTimeoutSecs) * time.Second,
	})
	return &Activities{
		cfg:       cfg,
		store:     store,
		processor: ingest.NewProcessor(summarizer),
	}, nil
}

// CheckDuplicateActivity rejects a submission whose tender address already has
// a non-archived record, failed ones included.
func (a *Activities) CheckDuplicateActivity(ctx context.Context, in CheckDuplicateInput) error {
	_, err := a.store.FindByTender(ctx, in.TenderAddress)
	if err == nil {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("tender %s already has an active summary", in.TenderAddress),
			ErrTypeDuplicateTender, util.ErrDuplicateTender)
	}
	if errors.Is(err, util.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("check duplicate: %w", err)
}

// ProcessDocumentActivity runs the full pipeline on one document. Format and
// extraction failures are deterministic, so they come back non-retryable.
func (a *Activities) ProcessDocumentActivity(ctx context.Context, in ProcessDocumentInput) (ProcessDocumentOutput, error) {
	rec, err := a.processor.Process(ctx, in.Request)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUnsupportedFormat):
			return ProcessDocumentOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeUnsupportedFormat, err)
		case errors.Is(err, util.ErrExtractionFailure):
			return ProcessDocumentOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeExtractionFailure, err)
		}
		return ProcessDocumentOutput{}, fmt.Errorf("process document: %w", err)
	}
	return ProcessDocumentOutput{Record: rec}, nil
}

func (a *Activities) PersistSummaryActivity(ctx context.Context, in PersistSummaryInput) (PersistSummaryOutput, error) {
	if err := a.store.Insert(ctx, in.Record); err != nil {
		if errors.Is(err, util.ErrDuplicateTender) {
			return PersistSummaryOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeDuplicateTender, err)
		}
		return PersistSummaryOutput{}, fmt.Errorf("persist summary: %w", err)
	}
	return PersistSummaryOutput{SummaryID: in.Record.SummaryID}, nil
}

// PersistFailureActivity writes the terminal failed record after the pipeline
// exhausted its retries. A duplicate here means a non-archived record already
// exists for the tender; the failed record is dropped rather than fought over.
func (a *Activities) PersistFailureActivity(ctx context.Context, in PersistFailureInput) (PersistFailureOutput, error) {
	rec := ingest.FailedRecord(in.Request, in.Errors)
	if err := a.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, util.ErrDuplicateTender) {
			return PersistFailureOutput{}, nil
		}
		return PersistFailureOutput{}, fmt.Errorf("persist failure record: %w", err)
	}
	return PersistFailureOutput{SummaryID: rec.SummaryID}, nil
}

func (a *Activities) CleanupSourceActivity(ctx context.Context, in CleanupSourceInput) error {
	_ = ctx
	if err := util.RemoveIfExists(in.FilePath); err != nil {
		return fmt.Errorf("cleanup source file: %w", err)
	}
	return nil
}
