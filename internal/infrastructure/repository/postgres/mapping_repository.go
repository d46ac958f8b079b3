package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examkit/answerkey/internal/core/domain"
	"github.com/examkit/answerkey/internal/core/mapping"
)

// MappingRepository stores the latest mapping report and join table as a
// single replaceable row. Every build supersedes the previous one.
type MappingRepository struct {
	db *sql.DB
}

func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

const mappingRowID = 1

func (r *MappingRepository) ReplaceReport(ctx context.Context, report domain.MappingReport, join map[string]mapping.QuestionAnswer) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal mapping report: %w", err)
	}
	joinJSON, err := json.Marshal(join)
	if err != nil {
		return fmt.Errorf("marshal join table: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO mapping_reports (id, report, join_table, built_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET
	report = EXCLUDED.report,
	join_table = EXCLUDED.join_table,
	built_at = EXCLUDED.built_at
`, mappingRowID, reportJSON, joinJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("replace mapping report: %w", err)
	}
	return nil
}

func (r *MappingRepository) GetReport(ctx context.Context) (*domain.MappingReport, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT report FROM mapping_reports WHERE id = $1
`, mappingRowID)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAnswerNotFound, "get mapping report", errors.New("no mapping built yet"))
		}
		return nil, fmt.Errorf("scan mapping report: %w", err)
	}

	var report domain.MappingReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("unmarshal mapping report: %w", err)
	}
	return &report, nil
}

// GetJoinTable returns the question-keyed answer table from the latest build.
func (r *MappingRepository) GetJoinTable(ctx context.Context) (map[string]mapping.QuestionAnswer, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT join_table FROM mapping_reports WHERE id = $1
`, mappingRowID)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAnswerNotFound, "get join table", errors.New("no mapping built yet"))
		}
		return nil, fmt.Errorf("scan join table: %w", err)
	}

	join := make(map[string]mapping.QuestionAnswer)
	if err := json.Unmarshal(raw, &join); err != nil {
		return nil, fmt.Errorf("unmarshal join table: %w", err)
	}
	return join, nil
}
