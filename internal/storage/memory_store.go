package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tendersum/internal/models"
	"tendersum/internal/util"
)

var nowFunc = time.Now

// MemoryStore is the map-backed SummaryStore used in tests and when no
// Postgres DSN is configured. It enforces the same one-non-archived-record
// rule as the Postgres partial unique index.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]models.TenderSummaryRecord
	ordered []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]models.TenderSummaryRecord)}
}

// activeStatus reports whether a record holds its tender's slot. Every
// non-archived record does, failed ones included; only an explicit archive
// frees the address for re-ingestion.
func activeStatus(status string) bool {
	return status != models.StatusArchived
}

func (s *MemoryStore) Insert(_ context.Context, rec models.TenderSummaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[rec.SummaryID]; ok {
		return fmt.Errorf("summary %s already exists", rec.SummaryID)
	}
	if activeStatus(rec.Status) {
		for _, existing := range s.byID {
			if existing.TenderAddress == rec.TenderAddress && activeStatus(existing.Status) {
				return fmt.Errorf("%w: tender %s", util.ErrDuplicateTender, rec.TenderAddress)
			}
		}
	}
	s.byID[rec.SummaryID] = rec
	s.ordered = append(s.ordered, rec.SummaryID)
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, summaryID string) (models.TenderSummaryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[summaryID]
	if !ok {
		return models.TenderSummaryRecord{}, fmt.Errorf("%w: summary %s", util.ErrNotFound, summaryID)
	}
	return rec, nil
}

func (s *MemoryStore) FindByTender(_ context.Context, tenderAddress string) (models.TenderSummaryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.ordered) - 1; i >= 0; i-- {
		rec := s.byID[s.ordered[i]]
		if rec.TenderAddress == tenderAddress && activeStatus(rec.Status) {
			return rec, nil
		}
	}
	return models.TenderSummaryRecord{}, fmt.Errorf("%w: tender %s", util.ErrNotFound, tenderAddress)
}

func (s *MemoryStore) ListPublic(_ context.Context, f ListFilter) ([]models.PublicView, int, error) {
	f = f.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]models.TenderSummaryRecord, 0)
	for _, id := range s.ordered {
		rec := s.byID[id]
		if !rec.IsPublic || rec.Status != models.StatusCompleted {
			continue
		}
		if f.Category != "" && rec.Category != f.Category {
			continue
		}
		if rec.Summary.Confidence < f.MinConfidence {
			continue
		}
		matched = append(matched, rec)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ProcessedAt.After(matched[j].ProcessedAt)
	})

	total := len(matched)
	if f.Offset >= len(matched) {
		return []models.PublicView{}, total, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	out := make([]models.PublicView, 0, len(matched))
	for i := range matched {
		out = append(out, matched[i].Public())
	}
	return out, total, nil
}

func (s *MemoryStore) SearchPublic(_ context.Context, f SearchFilter) ([]models.PublicView, error) {
	f = f.withDefaults()
	terms := strings.Fields(strings.ToLower(f.Query))
	if len(terms) == 0 {
		return []models.PublicView{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type hit struct {
		rec   models.TenderSummaryRecord
		score int
	}
	hits := make([]hit, 0)
	for _, id := range s.ordered {
		rec := s.byID[id]
		if !rec.IsPublic || rec.Status != models.StatusCompleted {
			continue
		}
		if f.Category != "" && rec.Category != f.Category {
			continue
		}
		if f.Location != "" && !strings.Contains(strings.ToLower(rec.Summary.Location), strings.ToLower(f.Location)) {
			continue
		}
		haystack := strings.ToLower(rec.FileName + " " + rec.Category + " " +
			strings.Join(rec.SearchKeywords, " ") + " " + rec.Summary.Overview + " " + rec.Summary.ProjectScope)
		score := 0
		for _, t := range terms {
			if strings.Contains(haystack, t) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{rec: rec, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].rec.ProcessedAt.After(hits[j].rec.ProcessedAt)
	})
	if len(hits) > f.Limit {
		hits = hits[:f.Limit]
	}
	out := make([]models.PublicView, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.rec.Public())
	}
	return out, nil
}

func (s *MemoryStore) Statistics(_ context.Context) ([]models.CategoryStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type agg struct {
		count      int
		confidence int
		textLen    int
	}
	byCategory := make(map[string]*agg)
	for _, rec := range s.byID {
		if rec.Status != models.StatusCompleted {
			continue
		}
		a := byCategory[rec.Category]
		if a == nil {
			a = &agg{}
			byCategory[rec.Category] = a
		}
		a.count++
		a.confidence += rec.Summary.Confidence
		a.textLen += rec.TextLength
	}
	out := make([]models.CategoryStat, 0, len(byCategory))
	for cat, a := range byCategory {
		out = append(out, models.CategoryStat{
			Category:      cat,
			Count:         a.count,
			AvgConfidence: float64(a.confidence) / float64(a.count),
			AvgTextLength: float64(a.textLen) / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (s *MemoryStore) SetReview(_ context.Context, summaryID, reviewedBy string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[summaryID]
	if !ok {
		return fmt.Errorf("%w: summary %s", util.ErrNotFound, summaryID)
	}
	now := nowFunc()
	rec.ValidationScore = score
	rec.ReviewedBy = reviewedBy
	rec.ReviewedAt = &now
	s.byID[summaryID] = rec
	return nil
}

func (s *MemoryStore) Archive(_ context.Context, summaryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[summaryID]
	if !ok {
		return fmt.Errorf("%w: summary %s", util.ErrNotFound, summaryID)
	}
	rec.Status = models.StatusArchived
	rec.IsPublic = false
	s.byID[summaryID] = rec
	return nil
}
