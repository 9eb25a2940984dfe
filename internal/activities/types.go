package activities

import "tendersum/internal/models"

type CheckDuplicateInput struct {
	TenderAddress string `json:"tender_address"`
}

type ProcessDocumentInput struct {
	Request models.IngestionRequest `json:"request"`
}

type ProcessDocumentOutput struct {
	Record models.TenderSummaryRecord `json:"record"`
}

type PersistSummaryInput struct {
	Record models.TenderSummaryRecord `json:"record"`
}

type PersistSummaryOutput struct {
	SummaryID string `json:"summary_id"`
}

type PersistFailureInput struct {
	Request models.IngestionRequest `json:"request"`
	Errors  []models.ErrorEntry     `json:"errors"`
}

type PersistFailureOutput struct {
	SummaryID string `json:"summary_id"`
}

type CleanupSourceInput struct {
	FilePath string `json:"file_path"`
}
