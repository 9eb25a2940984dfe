package ingest

import (
	"context"
	"fmt"
	"time"

	"tendersum/internal/entities"
	"tendersum/internal/extract"
	"tendersum/internal/models"
	"tendersum/internal/summarize"
	"tendersum/internal/util"

	"github.com/google/uuid"
)

// Processor runs the full extraction pipeline for one tender document:
// text extraction, normalization, entity extraction, summarization, and
// record assembly. It does not touch the store; persistence belongs to the
// caller so the workflow can retry it independently.
type Processor struct {
	extractor  *extract.Extractor
	entities   *entities.Extractor
	summarizer *summarize.Summarizer
}

func NewProcessor(summarizer *summarize.Summarizer) *Processor {
	return &Processor{
		extractor:  extract.New(),
		entities:   entities.NewExtractor(nil),
		summarizer: summarizer,
	}
}

func (p *Processor) Process(ctx context.Context, req models.IngestionRequest) (models.TenderSummaryRecord, error) {
	start := time.Now()

	raw, err := p.extractor.Extract(req.FilePath, req.MimeType)
	if err != nil {
		return models.TenderSummaryRecord{}, fmt.Errorf("extract %s: %w", req.FileName, err)
	}

	clean := p.Normalize(raw)
	info := p.entities.Extract(clean)
	summary := p.summarizer.Summarize(ctx, clean, info)

	rec := models.TenderSummaryRecord{
		SummaryID:     uuid.NewString(),
		TenderAddress: req.TenderAddress,
		TenderID:      req.TenderID,
		FileName:      req.FileName,
		FileSize:      req.FileSize,
		MimeType:      req.MimeType,
		OriginalText:  raw,
		CleanText:     clean,
		ExtractedInfo: info,
		Summary:       summary,
		UploadedBy:    req.UploadedBy,
		ProcessedAt:   time.Now().UTC(),
		TextLength:    len(clean),
		DurationMs:    time.Since(start).Milliseconds(),
		Status:        models.StatusCompleted,
		IsPublic:      true,
	}
	rec.DeriveSearchFields()
	return rec, nil
}

// Normalize is exposed separately so the workflow can report progress between
// extraction and the rest of the pipeline.
func (p *Processor) Normalize(raw string) string {
	return util.NormalizeText(util.SanitizeText(raw))
}

// FailedRecord assembles the terminal record for a tender whose processing
// exhausted all retries. Failed records never appear in public listings.
func FailedRecord(req models.IngestionRequest, entries []models.ErrorEntry) models.TenderSummaryRecord {
	rec := models.TenderSummaryRecord{
		SummaryID:     uuid.NewString(),
		TenderAddress: req.TenderAddress,
		TenderID:      req.TenderID,
		FileName:      req.FileName,
		FileSize:      req.FileSize,
		MimeType:      req.MimeType,
		UploadedBy:    req.UploadedBy,
		ProcessedAt:   time.Now().UTC(),
		Status:        models.StatusFailed,
		IsPublic:      false,
		ErrorLog:      entries,
	}
	rec.DeriveSearchFields()
	return rec
}
