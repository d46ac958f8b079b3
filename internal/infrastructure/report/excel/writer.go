package excel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/examkit/answerkey/internal/core/domain"
)

// WriteReviewWorkbook renders the mapping report and the suspicious-line log
// as a reviewer-facing spreadsheet: one sheet per concern plus a stats sheet.
func WriteReviewWorkbook(path string, report domain.MappingReport, suspicious []domain.SuspiciousLine) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeStatsSheet(f, report.Stats); err != nil {
		return err
	}
	if err := writeSuspiciousSheet(f, suspicious); err != nil {
		return err
	}
	if err := writeUnresolvedSheet(f, report.Unresolved); err != nil {
		return err
	}
	if err := writeConflictsSheet(f, report.Conflicts); err != nil {
		return err
	}

	// Drop the default sheet excelize creates.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func newSheet(f *excelize.File, name string, header []any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNo int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return fmt.Errorf("row coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func writeStatsSheet(f *excelize.File, stats domain.MappingStats) error {
	const sheet = "Stats"
	if err := newSheet(f, sheet, []any{"metric", "value"}); err != nil {
		return err
	}

	rows := [][]any{
		{"parsed_records", stats.ParsedRecords},
		{"resolved", stats.Resolved},
		{"unresolved", stats.Unresolved},
		{"unresolved_in_dataset", stats.UnresolvedInDataset},
		{"mapping_conflicts", stats.Conflicts},
		{"coverage_ratio", stats.CoverageRatio},
		{"coverage_ratio_in_dataset", stats.CoverageRatioInDataset},
	}

	reasons := make([]string, 0, len(stats.UnresolvedReasonCounts))
	for reason := range stats.UnresolvedReasonCounts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		rows = append(rows, []any{"unresolved." + reason, stats.UnresolvedReasonCounts[reason]})
	}

	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeSuspiciousSheet(f *excelize.File, lines []domain.SuspiciousLine) error {
	const sheet = "Suspicious"
	header := []any{"volume", "page_no", "line_index", "reason_code", "reason_detail", "candidate_uid", "ocr_line"}
	if err := newSheet(f, sheet, header); err != nil {
		return err
	}
	for i, line := range lines {
		row := []any{
			line.Volume, line.PageNo, line.LineIndex,
			string(line.ReasonCode), line.ReasonDetail, line.CandidateUID, line.OCRLine,
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeUnresolvedSheet(f *excelize.File, unresolved []domain.UnresolvedMapping) error {
	const sheet = "Unresolved"
	header := []any{"answer_uid", "id_str", "volume", "page_no", "reason", "question_id_hint", "question_uid_candidates"}
	if err := newSheet(f, sheet, header); err != nil {
		return err
	}
	for i, item := range unresolved {
		row := []any{
			item.AnswerUID, item.IDStr, item.Volume, item.PageNo,
			string(item.Reason), item.QuestionIDHint,
			strings.Join(item.Candidates, "; "),
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeConflictsSheet(f *excelize.File, conflicts []domain.QuestionAnswerConflict) error {
	const sheet = "Conflicts"
	header := []any{"question_uid", "existing_answer_uid", "conflicting_answer_uid", "reason"}
	if err := newSheet(f, sheet, header); err != nil {
		return err
	}
	for i, conflict := range conflicts {
		row := []any{
			conflict.QuestionUID, conflict.ExistingAnswerUID,
			conflict.ConflictingAnswerUID, string(conflict.Reason),
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}
