package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/examkit/answerkey/internal/core/domain"
)

func newMappingRepoWithMock(t *testing.T) (*MappingRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &MappingRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetReportBeforeFirstBuild(t *testing.T) {
	repo, mock, done := newMappingRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT report FROM mapping_reports").
		WithArgs(mappingRowID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetReport(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrAnswerNotFound) {
		t.Fatalf("expected ErrAnswerNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetReportUnmarshalsStoredRow(t *testing.T) {
	repo, mock, done := newMappingRepoWithMock(t)
	defer done()

	stored := []byte(`{"stats":{"parsed_records":10,"resolved":8,"unresolved":2,"coverage_ratio":0.8}}`)
	mock.ExpectQuery("SELECT report FROM mapping_reports").
		WithArgs(mappingRowID).
		WillReturnRows(sqlmock.NewRows([]string{"report"}).AddRow(stored))

	report, err := repo.GetReport(context.Background())
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if report.Stats.ParsedRecords != 10 || report.Stats.Resolved != 8 {
		t.Fatalf("stats = %+v", report.Stats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
