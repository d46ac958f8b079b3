package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/examkit/answerkey/internal/core/domain"
)

type PageRepository struct {
	db *sql.DB
}

func NewPageRepository(db *sql.DB) *PageRepository {
	return &PageRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *PageRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026041701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS pages (
	id TEXT PRIMARY KEY,
	volume INTEGER NOT NULL,
	page_no INTEGER NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	row_count INTEGER NOT NULL DEFAULT 0,
	suspicious_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pages_status ON pages(status);
CREATE INDEX IF NOT EXISTS idx_pages_volume_page ON pages(volume, page_no);

CREATE TABLE IF NOT EXISTS answers (
	uid TEXT PRIMARY KEY,
	id_str TEXT NOT NULL,
	volume INTEGER NOT NULL,
	chapter_no INTEGER NOT NULL,
	subject_code INTEGER NOT NULL,
	question_no INTEGER NOT NULL,
	answer JSONB NOT NULL,
	tolerance_abs DOUBLE PRECISION,
	source JSONB NOT NULL,
	link_hint TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_answers_volume ON answers(volume);

CREATE TABLE IF NOT EXISTS suspicious_lines (
	id BIGSERIAL PRIMARY KEY,
	volume INTEGER NOT NULL,
	page_no INTEGER NOT NULL,
	line_index TEXT NOT NULL,
	ocr_line TEXT NOT NULL,
	reason_code TEXT NOT NULL,
	reason_detail TEXT NOT NULL DEFAULT '',
	candidate_uid TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_suspicious_reason ON suspicious_lines(reason_code);

CREATE TABLE IF NOT EXISTS mapping_reports (
	id SMALLINT PRIMARY KEY,
	report JSONB NOT NULL,
	join_table JSONB NOT NULL,
	built_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *PageRepository) Create(ctx context.Context, page *domain.Page) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO pages (
	id, volume, page_no, storage_path, status, error_message, row_count, suspicious_count, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		page.ID, page.Volume, page.PageNo, page.StoragePath, string(page.Status), page.Error,
		page.RowCount, page.Suspicious, page.CreatedAt, page.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func (r *PageRepository) GetByID(ctx context.Context, id string) (*domain.Page, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, volume, page_no, storage_path, status, error_message, row_count, suspicious_count, created_at, updated_at
FROM pages
WHERE id = $1
`, id)

	var page domain.Page
	var status string
	err := row.Scan(
		&page.ID, &page.Volume, &page.PageNo, &page.StoragePath, &status, &page.Error,
		&page.RowCount, &page.Suspicious, &page.CreatedAt, &page.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrPageNotFound, "get page", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan page: %w", err)
	}
	page.Status = domain.PageStatus(status)
	return &page, nil
}

func (r *PageRepository) UpdateStatus(ctx context.Context, id string, status domain.PageStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE pages
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update page status: %w", err)
	}
	return requirePageAffected(res, id)
}

func (r *PageRepository) SaveCounts(ctx context.Context, id string, rowCount, suspiciousCount int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE pages
SET row_count = $2, suspicious_count = $3, updated_at = $4
WHERE id = $1
`, id, rowCount, suspiciousCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save page counts: %w", err)
	}
	return requirePageAffected(res, id)
}

func requirePageAffected(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrPageNotFound, "update page", fmt.Errorf("id=%s", id))
	}
	return nil
}
