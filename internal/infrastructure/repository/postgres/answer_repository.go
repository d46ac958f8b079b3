package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/examkit/answerkey/internal/core/domain"
)

type AnswerRepository struct {
	db *sql.DB
}

func NewAnswerRepository(db *sql.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

func (r *AnswerRepository) Upsert(ctx context.Context, record domain.AnswerRecord) error {
	answerJSON, err := json.Marshal(record.Answer)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	sourceJSON, err := json.Marshal(record.Source)
	if err != nil {
		return fmt.Errorf("marshal source: %w", err)
	}

	var tolerance sql.NullFloat64
	if record.Tolerance != nil {
		tolerance = sql.NullFloat64{Float64: record.Tolerance.Abs, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO answers (
	uid, id_str, volume, chapter_no, subject_code, question_no, answer, tolerance_abs, source, link_hint
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (uid) DO UPDATE SET
	answer = EXCLUDED.answer,
	tolerance_abs = EXCLUDED.tolerance_abs,
	source = EXCLUDED.source,
	link_hint = EXCLUDED.link_hint
`,
		record.UID, record.IDStr, record.Volume, record.ID.ChapterNo, record.ID.SubjectCode,
		record.ID.QuestionNo, answerJSON, tolerance, sourceJSON, record.LinkHint,
	)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

func (r *AnswerRepository) GetByUID(ctx context.Context, uid string) (*domain.AnswerRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT uid, id_str, volume, chapter_no, subject_code, question_no, answer, tolerance_abs, source, link_hint
FROM answers
WHERE uid = $1
`, uid)

	record, err := scanAnswer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAnswerNotFound, "get answer", fmt.Errorf("uid=%s", uid))
		}
		return nil, err
	}
	return record, nil
}

func (r *AnswerRepository) ListAll(ctx context.Context) ([]domain.AnswerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT uid, id_str, volume, chapter_no, subject_code, question_no, answer, tolerance_abs, source, link_hint
FROM answers
ORDER BY volume, chapter_no, subject_code, question_no
`)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	var out []domain.AnswerRecord
	for rows.Next() {
		record, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnswer(row rowScanner) (*domain.AnswerRecord, error) {
	var record domain.AnswerRecord
	var answerRaw, sourceRaw []byte
	var tolerance sql.NullFloat64

	err := row.Scan(
		&record.UID, &record.IDStr, &record.Volume, &record.ID.ChapterNo, &record.ID.SubjectCode,
		&record.ID.QuestionNo, &answerRaw, &tolerance, &sourceRaw, &record.LinkHint,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan answer: %w", err)
	}

	if err := json.Unmarshal(answerRaw, &record.Answer); err != nil {
		return nil, fmt.Errorf("unmarshal answer: %w", err)
	}
	if err := json.Unmarshal(sourceRaw, &record.Source); err != nil {
		return nil, fmt.Errorf("unmarshal source: %w", err)
	}
	if tolerance.Valid {
		record.Tolerance = &domain.Tolerance{Abs: tolerance.Float64}
	}
	return &record, nil
}
