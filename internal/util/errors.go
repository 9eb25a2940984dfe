package util

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtractionFailure = errors.New("document text extraction failed")
	ErrDuplicateTender   = errors.New("summary already exists for tender")
	ErrNotFound          = errors.New("summary not found")
	ErrValidation        = errors.New("invalid ingestion request")
)
