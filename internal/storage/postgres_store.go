package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tendersum/internal/models"
	"tendersum/internal/util"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore backs SummaryStore with the tender_summaries table (see
// migrations/001_init.sql). The one-non-archived-record-per-tender rule is
// enforced by a partial unique index on tender_address.
type PostgresStore struct {
	db *DB
}

func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `
summary_id, tender_address, tender_id, file_name, file_size, mime_type,
original_text, clean_text, extracted_info, summary, uploaded_by, processed_at,
text_length, duration_ms, status, is_public, category, search_keywords,
validation_score, COALESCE(reviewed_by,''), reviewed_at, error_log`

func (s *PostgresStore) Insert(ctx context.Context, rec models.TenderSummaryRecord) error {
	info, err := json.Marshal(rec.ExtractedInfo)
	if err != nil {
		return fmt.Errorf("encode extracted info: %w", err)
	}
	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	errorLog, err := json.Marshal(rec.ErrorLog)
	if err != nil {
		return fmt.Errorf("encode error log: %w", err)
	}
	_, err = s.db.Pool.Exec(ctx, `
INSERT INTO tender_summaries (
  summary_id, tender_address, tender_id, file_name, file_size, mime_type,
  original_text, clean_text, extracted_info, summary, uploaded_by, processed_at,
  text_length, duration_ms, status, is_public, category, search_keywords,
  validation_score, reviewed_by, reviewed_at, error_log)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,NULLIF($20,''),$21,$22)`,
		rec.SummaryID, rec.TenderAddress, rec.TenderID, rec.FileName, rec.FileSize, rec.MimeType,
		rec.OriginalText, rec.CleanText, info, summary, rec.UploadedBy, rec.ProcessedAt,
		rec.TextLength, rec.DurationMs, rec.Status, rec.IsPublic, rec.Category, rec.SearchKeywords,
		rec.ValidationScore, rec.ReviewedBy, rec.ReviewedAt, errorLog,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: tender %s", util.ErrDuplicateTender, rec.TenderAddress)
		}
		return fmt.Errorf("insert tender summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, summaryID string) (models.TenderSummaryRecord, error) {
	row := s.db.Pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM tender_summaries WHERE summary_id=$1`, summaryID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TenderSummaryRecord{}, fmt.Errorf("%w: summary %s", util.ErrNotFound, summaryID)
		}
		return models.TenderSummaryRecord{}, fmt.Errorf("get summary by id: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindByTender(ctx context.Context, tenderAddress string) (models.TenderSummaryRecord, error) {
	row := s.db.Pool.QueryRow(ctx, `
SELECT `+recordColumns+`
FROM tender_summaries
WHERE tender_address=$1 AND status != 'archived'
ORDER BY processed_at DESC
LIMIT 1`, tenderAddress)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TenderSummaryRecord{}, fmt.Errorf("%w: tender %s", util.ErrNotFound, tenderAddress)
		}
		return models.TenderSummaryRecord{}, fmt.Errorf("find summary by tender: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListPublic(ctx context.Context, f ListFilter) ([]models.PublicView, int, error) {
	f = f.withDefaults()
	var total int
	err := s.db.Pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM tender_summaries
WHERE is_public AND status='completed'
  AND ($1='' OR category=$1)
  AND (summary->>'confidence')::int >= $2`,
		f.Category, f.MinConfidence).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count public summaries: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `
SELECT `+recordColumns+`
FROM tender_summaries
WHERE is_public AND status='completed'
  AND ($1='' OR category=$1)
  AND (summary->>'confidence')::int >= $2
ORDER BY processed_at DESC
LIMIT $3 OFFSET $4`,
		f.Category, f.MinConfidence, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list public summaries: %w", err)
	}
	defer rows.Close()

	out := make([]models.PublicView, 0, f.Limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan public summary: %w", err)
		}
		out = append(out, rec.Public())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate public summaries: %w", err)
	}
	return out, total, nil
}

func (s *PostgresStore) SearchPublic(ctx context.Context, f SearchFilter) ([]models.PublicView, error) {
	f = f.withDefaults()
	rows, err := s.db.Pool.Query(ctx, `
SELECT `+recordColumns+`
FROM tender_summaries
WHERE is_public AND status='completed'
  AND ($2='' OR category=$2)
  AND ($3='' OR summary->>'location' ILIKE '%'||$3||'%')
  AND search_tsv @@ plainto_tsquery('english', $1)
ORDER BY ts_rank(search_tsv, plainto_tsquery('english', $1)) DESC, processed_at DESC
LIMIT $4`, f.Query, f.Category, f.Location, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("search public summaries: %w", err)
	}
	defer rows.Close()

	out := make([]models.PublicView, 0, f.Limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		out = append(out, rec.Public())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Statistics(ctx context.Context) ([]models.CategoryStat, error) {
	rows, err := s.db.Pool.Query(ctx, `
SELECT category, COUNT(*),
       AVG((summary->>'confidence')::int),
       AVG(text_length)
FROM tender_summaries
WHERE status='completed'
GROUP BY category
ORDER BY COUNT(*) DESC, category`)
	if err != nil {
		return nil, fmt.Errorf("summary statistics: %w", err)
	}
	defer rows.Close()

	out := make([]models.CategoryStat, 0)
	for rows.Next() {
		var st models.CategoryStat
		if err := rows.Scan(&st.Category, &st.Count, &st.AvgConfidence, &st.AvgTextLength); err != nil {
			return nil, fmt.Errorf("scan category stat: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category stats: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SetReview(ctx context.Context, summaryID, reviewedBy string, score int) error {
	tag, err := s.db.Pool.Exec(ctx, `
UPDATE tender_summaries
SET validation_score=$2, reviewed_by=$3, reviewed_at=NOW()
WHERE summary_id=$1`, summaryID, score, reviewedBy)
	if err != nil {
		return fmt.Errorf("set review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: summary %s", util.ErrNotFound, summaryID)
	}
	return nil
}

func (s *PostgresStore) Archive(ctx context.Context, summaryID string) error {
	tag, err := s.db.Pool.Exec(ctx, `
UPDATE tender_summaries SET status='archived', is_public=FALSE WHERE summary_id=$1`, summaryID)
	if err != nil {
		return fmt.Errorf("archive summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: summary %s", util.ErrNotFound, summaryID)
	}
	return nil
}

func scanRecord(row pgx.Row) (models.TenderSummaryRecord, error) {
	var rec models.TenderSummaryRecord
	var info, summary, errorLog []byte
	var reviewedBy string
	err := row.Scan(
		&rec.SummaryID, &rec.TenderAddress, &rec.TenderID, &rec.FileName, &rec.FileSize, &rec.MimeType,
		&rec.OriginalText, &rec.CleanText, &info, &summary, &rec.UploadedBy, &rec.ProcessedAt,
		&rec.TextLength, &rec.DurationMs, &rec.Status, &rec.IsPublic, &rec.Category, &rec.SearchKeywords,
		&rec.ValidationScore, &reviewedBy, &rec.ReviewedAt, &errorLog,
	)
	if err != nil {
		return models.TenderSummaryRecord{}, err
	}
	rec.ReviewedBy = reviewedBy
	if err := json.Unmarshal(info, &rec.ExtractedInfo); err != nil {
		return models.TenderSummaryRecord{}, fmt.Errorf("decode extracted info: %w", err)
	}
	if err := json.Unmarshal(summary, &rec.Summary); err != nil {
		return models.TenderSummaryRecord{}, fmt.Errorf("decode summary: %w", err)
	}
	if len(errorLog) > 0 {
		if err := json.Unmarshal(errorLog, &rec.ErrorLog); err != nil {
			return models.TenderSummaryRecord{}, fmt.Errorf("decode error log: %w", err)
		}
	}
	return rec, nil
}
