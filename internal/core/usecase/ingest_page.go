package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/examkit/answerkey/internal/core/domain"
	"github.com/examkit/answerkey/internal/core/ports"
)

type IngestPageUseCase struct {
	repo    ports.PageRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestPageUseCase(
	repo ports.PageRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestPageUseCase {
	return &IngestPageUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestPageUseCase) Upload(ctx context.Context, payload domain.PagePayload) (*domain.Page, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("vol%d_page_%d_%s.json", payload.Meta.Volume, payload.Meta.PageNo, id)
	now := time.Now().UTC()

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode page payload: %w", err)
	}
	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	page := &domain.Page{
		ID:          id,
		Volume:      payload.Meta.Volume,
		PageNo:      payload.Meta.PageNo,
		StoragePath: storageKey,
		Status:      domain.PageUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, page); err != nil {
		return nil, fmt.Errorf("create page metadata: %w", err)
	}

	if err := uc.queue.PublishPageScanned(ctx, page.ID); err != nil {
		return nil, fmt.Errorf("publish page event: %w", err)
	}
	return page, nil
}

func validatePayload(payload domain.PagePayload) error {
	if payload.Meta.Volume <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate page payload", errors.New("volume must be positive"))
	}
	if payload.Meta.PageNo <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate page payload", errors.New("page_no must be positive"))
	}
	if len(payload.Lines) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate page payload", errors.New("payload has no lines"))
	}
	return nil
}
