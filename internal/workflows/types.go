package workflows

import "tendersum/internal/models"

type TenderIngestInput struct {
	Request      models.IngestionRequest `json:"request"`
	RetryInitial int                     `json:"retry_initial_secs,omitempty"`
	RetryMax     int                     `json:"retry_max_attempts,omitempty"`
}

// JobStatus is the queryable state of one ingestion run. Progress checkpoints:
// 10 accepted, 80 processed, 95 persisted, 100 done.
type JobStatus struct {
	TenderAddress string `json:"tender_address"`
	State         string `json:"state"`
	Progress      int    `json:"progress"`
	SummaryID     string `json:"summary_id,omitempty"`
	FailReason    string `json:"fail_reason,omitempty"`
}
