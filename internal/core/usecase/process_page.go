package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/examkit/answerkey/internal/core/domain"
	"github.com/examkit/answerkey/internal/core/normalize"
	"github.com/examkit/answerkey/internal/core/parse"
	"github.com/examkit/answerkey/internal/core/ports"
)

type ProcessPageUseCase struct {
	pages      ports.PageRepository
	answers    ports.AnswerRepository
	suspicious ports.SuspiciousRepository
	storage    ports.ObjectStorage
	profile    normalize.Profile
	parseOpts  parse.Options
}

func NewProcessPageUseCase(
	pages ports.PageRepository,
	answers ports.AnswerRepository,
	suspicious ports.SuspiciousRepository,
	storage ports.ObjectStorage,
	profile normalize.Profile,
	parseOpts parse.Options,
) *ProcessPageUseCase {
	return &ProcessPageUseCase{
		pages:      pages,
		answers:    answers,
		suspicious: suspicious,
		storage:    storage,
		profile:    profile,
		parseOpts:  parseOpts,
	}
}

func (uc *ProcessPageUseCase) ProcessByID(ctx context.Context, pageID string) error {
	if err := uc.pages.UpdateStatus(ctx, pageID, domain.PageParsing, ""); err != nil {
		return fmt.Errorf("set status=parsing: %w", err)
	}

	rowCount, suspiciousCount, err := uc.processPipeline(ctx, pageID)
	if err != nil {
		if failErr := uc.markFailed(ctx, pageID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.pages.SaveCounts(ctx, pageID, rowCount, suspiciousCount); err != nil {
		return fmt.Errorf("save page counts: %w", err)
	}
	if err := uc.pages.UpdateStatus(ctx, pageID, domain.PageParsed, ""); err != nil {
		return fmt.Errorf("set status=parsed: %w", err)
	}
	return nil
}

func (uc *ProcessPageUseCase) processPipeline(ctx context.Context, pageID string) (int, int, error) {
	payload, err := uc.loadPayload(ctx, pageID)
	if err != nil {
		return 0, 0, err
	}

	rows, suspicious := normalize.ScanPage(payload.Lines, payload.Meta, uc.profile)

	var records []domain.AnswerRecord
	for _, row := range rows {
		record, rejected := parse.ParseRow(row, payload.Meta, uc.parseOpts)
		if rejected != nil {
			suspicious = append(suspicious, *rejected)
			continue
		}
		records = append(records, *record)
	}

	kept, conflicts, err := uc.persistRecords(ctx, records)
	if err != nil {
		return 0, 0, err
	}
	suspicious = append(suspicious, conflicts...)

	if len(suspicious) > 0 {
		if err := uc.suspicious.Append(ctx, suspicious); err != nil {
			return 0, 0, fmt.Errorf("append suspicious lines: %w", err)
		}
	}
	return kept, len(suspicious), nil
}

func (uc *ProcessPageUseCase) loadPayload(ctx context.Context, pageID string) (domain.PagePayload, error) {
	page, err := uc.pages.GetByID(ctx, pageID)
	if err != nil {
		return domain.PagePayload{}, fmt.Errorf("fetch page by id: %w", err)
	}

	reader, err := uc.storage.Open(ctx, page.StoragePath)
	if err != nil {
		return domain.PagePayload{}, fmt.Errorf("open page payload: %w", err)
	}
	defer reader.Close()

	var payload domain.PagePayload
	if err := json.NewDecoder(reader).Decode(&payload); err != nil {
		return domain.PagePayload{}, domain.WrapError(domain.ErrInvalidInput, "decode page payload", err)
	}
	return payload, nil
}

// persistRecords upserts new records and turns cross-page duplicates into
// duplicate_uid_conflict diagnostics. The record already stored keeps the UID.
func (uc *ProcessPageUseCase) persistRecords(ctx context.Context, records []domain.AnswerRecord) (int, []domain.SuspiciousLine, error) {
	kept := 0
	var conflicts []domain.SuspiciousLine
	for _, record := range records {
		existing, err := uc.answers.GetByUID(ctx, record.UID)
		if err != nil && !domain.IsKind(err, domain.ErrAnswerNotFound) {
			return 0, nil, fmt.Errorf("check existing record: %w", err)
		}
		if existing != nil {
			if existing.EquivalentTo(record) {
				continue
			}
			conflicts = append(conflicts, domain.SuspiciousLine{
				Volume:       record.Volume,
				PageNo:       record.Source.Page,
				LineIndex:    domain.JoinLineIndexes(record.Source.LineIndexes),
				OCRLine:      record.IDStr + " " + fmt.Sprint(record.Answer.Raw()),
				ReasonCode:   domain.ReasonDuplicateUIDConflict,
				CandidateUID: record.UID,
			})
			continue
		}
		if err := uc.answers.Upsert(ctx, record); err != nil {
			return 0, nil, fmt.Errorf("upsert answer record: %w", err)
		}
		kept++
	}
	return kept, conflicts, nil
}

func (uc *ProcessPageUseCase) markFailed(ctx context.Context, pageID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.pages.UpdateStatus(ctx, pageID, domain.PageFailed, processErr.Error())
}
