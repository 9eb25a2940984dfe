package models

import (
	"strings"
	"time"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusArchived   = "archived"
)

// IngestionRequest is immutable once accepted by the pipeline.
type IngestionRequest struct {
	TenderAddress string `json:"tender_address"`
	TenderID      string `json:"tender_id"`
	FileName      string `json:"file_name"`
	FilePath      string `json:"file_path"`
	FileSize      int64  `json:"file_size"`
	MimeType      string `json:"mime_type"`
	UploadedBy    string `json:"uploaded_by"`
}

// ExtractedInfo holds per-category extraction results. Slice order within a
// category is extraction order, not source-text order.
type ExtractedInfo struct {
	Organizations    []string `json:"organizations"`
	Places           []string `json:"places"`
	Money            []string `json:"money"`
	Dates            []string `json:"dates"`
	Numbers          []string `json:"numbers"`
	ProjectTypes     []string `json:"project_types"`
	WorkDescriptions []string `json:"work_descriptions"`
	Requirements     []string `json:"requirements"`
}

type Summary struct {
	Overview        string   `json:"overview"`
	WorkType        string   `json:"work_type"`
	EstimatedValue  string   `json:"estimated_value"`
	Location        string   `json:"location"`
	KeyRequirements []string `json:"key_requirements"`
	Timeline        string   `json:"timeline"`
	ProjectScope    string   `json:"project_scope"`
	Confidence      int      `json:"confidence"`
}

type ErrorEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
}

// TenderSummaryRecord is the persisted unit of processing one tender document.
type TenderSummaryRecord struct {
	SummaryID     string        `json:"summary_id"`
	TenderAddress string        `json:"tender_address"`
	TenderID      string        `json:"tender_id"`
	FileName      string        `json:"file_name"`
	FileSize      int64         `json:"file_size"`
	MimeType      string        `json:"mime_type"`
	OriginalText  string        `json:"original_text"`
	CleanText     string        `json:"clean_text"`
	ExtractedInfo ExtractedInfo `json:"extracted_info"`
	Summary       Summary       `json:"summary"`
	UploadedBy    string        `json:"uploaded_by"`
	ProcessedAt   time.Time     `json:"processed_at"`
	TextLength    int           `json:"text_length"`
	DurationMs    int64         `json:"processing_duration_ms"`
	Status        string        `json:"status"`
	IsPublic      bool          `json:"is_public"`

	// Derived from Summary and ExtractedInfo, never set independently.
	Category       string   `json:"category"`
	SearchKeywords []string `json:"search_keywords"`

	ValidationScore int          `json:"validation_score"`
	ReviewedBy      string       `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time   `json:"reviewed_at,omitempty"`
	ErrorLog        []ErrorEntry `json:"error_log,omitempty"`
}

// DeriveSearchFields recomputes Category and SearchKeywords from the current
// Summary and ExtractedInfo. Call it whenever either changes.
func (r *TenderSummaryRecord) DeriveSearchFields() {
	r.Category = strings.ToLower(r.Summary.WorkType)

	seen := make(map[string]struct{})
	keywords := make([]string, 0, 8)
	add := func(v string) {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		keywords = append(keywords, v)
	}
	add(r.Summary.WorkType)
	add(r.Summary.Location)
	for _, t := range r.ExtractedInfo.ProjectTypes {
		add(t)
	}
	for _, o := range r.ExtractedInfo.Organizations {
		add(o)
	}
	for _, p := range r.ExtractedInfo.Places {
		add(p)
	}
	r.SearchKeywords = keywords
}

// PublicView is the restricted projection exposed through public endpoints.
type PublicView struct {
	SummaryID     string        `json:"summary_id"`
	TenderID      string        `json:"tender_id"`
	TenderAddress string        `json:"tender_address"`
	FileName      string        `json:"file_name"`
	Summary       PublicSummary `json:"summary"`
	Category      string        `json:"category"`
	ProcessedAt   time.Time     `json:"processed_at"`
}

type PublicSummary struct {
	Overview       string `json:"overview"`
	WorkType       string `json:"work_type"`
	EstimatedValue string `json:"estimated_value"`
	Location       string `json:"location"`
	Timeline       string `json:"timeline"`
	ProjectScope   string `json:"project_scope"`
	Confidence     int    `json:"confidence"`
}

func (r *TenderSummaryRecord) Public() PublicView {
	return PublicView{
		SummaryID:     r.SummaryID,
		TenderID:      r.TenderID,
		TenderAddress: r.TenderAddress,
		FileName:      r.FileName,
		Summary: PublicSummary{
			Overview:       r.Summary.Overview,
			WorkType:       r.Summary.WorkType,
			EstimatedValue: r.Summary.EstimatedValue,
			Location:       r.Summary.Location,
			Timeline:       r.Summary.Timeline,
			ProjectScope:   r.Summary.ProjectScope,
			Confidence:     r.Summary.Confidence,
		},
		Category:    r.Category,
		ProcessedAt: r.ProcessedAt,
	}
}

// CategoryStat is one row of the per-category aggregate view.
type CategoryStat struct {
	Category      string  `json:"category"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	AvgTextLength float64 `json:"avg_text_length"`
}
