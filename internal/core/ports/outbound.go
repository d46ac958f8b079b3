package ports

import (
	"context"
	"io"

	"github.com/examkit/answerkey/internal/core/domain"
	"github.com/examkit/answerkey/internal/core/mapping"
)

// PageRepository persists and reads page state.
type PageRepository interface {
	Create(ctx context.Context, page *domain.Page) error
	GetByID(ctx context.Context, id string) (*domain.Page, error)
	UpdateStatus(ctx context.Context, id string, status domain.PageStatus, errMessage string) error
	SaveCounts(ctx context.Context, id string, rowCount, suspiciousCount int) error
}

// AnswerRepository persists parsed answer records keyed by UID.
type AnswerRepository interface {
	Upsert(ctx context.Context, record domain.AnswerRecord) error
	GetByUID(ctx context.Context, uid string) (*domain.AnswerRecord, error)
	ListAll(ctx context.Context) ([]domain.AnswerRecord, error)
}

// SuspiciousRepository persists diagnostic lines for review.
type SuspiciousRepository interface {
	Append(ctx context.Context, lines []domain.SuspiciousLine) error
	ListAll(ctx context.Context) ([]domain.SuspiciousLine, error)
}

// MappingRepository persists the latest mapping report and join table.
type MappingRepository interface {
	ReplaceReport(ctx context.Context, report domain.MappingReport, join map[string]mapping.QuestionAnswer) error
	GetReport(ctx context.Context) (*domain.MappingReport, error)
}

// ObjectStorage stores raw page payloads between ingest and processing.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes page-scanned events.
type MessageQueue interface {
	PublishPageScanned(ctx context.Context, pageID string) error
	SubscribePageScanned(ctx context.Context, handler func(context.Context, string) error) error
}

// QuestionCatalog loads the externally maintained question dataset and the
// manual mapping overrides.
type QuestionCatalog interface {
	LoadQuestions(ctx context.Context) ([]domain.QuestionRecord, error)
	LoadOverrides(ctx context.Context) (mapping.Overrides, error)
}

// ManifestSource loads the per-page identifier/URL manifest.
type ManifestSource interface {
	LoadManifest(ctx context.Context) (domain.Manifest, error)
}
