package ports

import (
	"context"

	"github.com/examkit/answerkey/internal/core/domain"
)

// PageIngestor is the inbound contract for OCR page upload orchestration.
type PageIngestor interface {
	Upload(ctx context.Context, payload domain.PagePayload) (*domain.Page, error)
}

// PageReader is the inbound read model for page state.
type PageReader interface {
	GetByID(ctx context.Context, id string) (*domain.Page, error)
}

// AnswerReader is the inbound read model for parsed answer records.
type AnswerReader interface {
	GetByUID(ctx context.Context, uid string) (*domain.AnswerRecord, error)
}

// PageProcessor is the inbound contract for asynchronous page processing.
type PageProcessor interface {
	ProcessByID(ctx context.Context, pageID string) error
}

// MappingBuilder rebuilds and reads the answer-to-question mapping.
type MappingBuilder interface {
	Build(ctx context.Context) (*domain.MappingReport, error)
	Report(ctx context.Context) (*domain.MappingReport, error)
}
