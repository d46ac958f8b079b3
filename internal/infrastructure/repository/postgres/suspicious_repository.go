package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/examkit/answerkey/internal/core/domain"
)

type SuspiciousRepository struct {
	db *sql.DB
}

func NewSuspiciousRepository(db *sql.DB) *SuspiciousRepository {
	return &SuspiciousRepository{db: db}
}

func (r *SuspiciousRepository) Append(ctx context.Context, lines []domain.SuspiciousLine) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin suspicious tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO suspicious_lines (volume, page_no, line_index, ocr_line, reason_code, reason_detail, candidate_uid)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`)
	if err != nil {
		return fmt.Errorf("prepare suspicious insert: %w", err)
	}
	defer stmt.Close()

	for _, line := range lines {
		if _, err := stmt.ExecContext(ctx,
			line.Volume, line.PageNo, line.LineIndex, line.OCRLine,
			string(line.ReasonCode), line.ReasonDetail, line.CandidateUID,
		); err != nil {
			return fmt.Errorf("insert suspicious line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit suspicious tx: %w", err)
	}
	return nil
}

func (r *SuspiciousRepository) ListAll(ctx context.Context) ([]domain.SuspiciousLine, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT volume, page_no, line_index, ocr_line, reason_code, reason_detail, candidate_uid
FROM suspicious_lines
ORDER BY volume, page_no, id
`)
	if err != nil {
		return nil, fmt.Errorf("query suspicious lines: %w", err)
	}
	defer rows.Close()

	var out []domain.SuspiciousLine
	for rows.Next() {
		var line domain.SuspiciousLine
		var reason string
		if err := rows.Scan(
			&line.Volume, &line.PageNo, &line.LineIndex, &line.OCRLine,
			&reason, &line.ReasonDetail, &line.CandidateUID,
		); err != nil {
			return nil, fmt.Errorf("scan suspicious line: %w", err)
		}
		line.ReasonCode = domain.ReasonCode(reason)
		out = append(out, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suspicious lines: %w", err)
	}
	return out, nil
}
