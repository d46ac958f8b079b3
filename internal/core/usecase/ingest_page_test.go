package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/examkit/answerkey/internal/core/domain"
)

type pageRepoFake struct {
	created *domain.Page
	err     error
}

func (f *pageRepoFake) Create(_ context.Context, page *domain.Page) error {
	if f.err != nil {
		return f.err
	}
	copyPage := *page
	f.created = &copyPage
	return nil
}

func (f *pageRepoFake) GetByID(context.Context, string) (*domain.Page, error) {
	return nil, errors.New("not implemented")
}
func (f *pageRepoFake) UpdateStatus(context.Context, string, domain.PageStatus, string) error {
	return errors.New("not implemented")
}
func (f *pageRepoFake) SaveCounts(context.Context, string, int, int) error {
	return errors.New("not implemented")
}

type storageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.savedBody)), nil
}

type queueFake struct {
	pageID string
	err    error
}

func (f *queueFake) PublishPageScanned(_ context.Context, pageID string) error {
	if f.err != nil {
		return f.err
	}
	f.pageID = pageID
	return nil
}

func (f *queueFake) SubscribePageScanned(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func validPayload() domain.PagePayload {
	return domain.PagePayload{
		Meta: domain.PageMeta{Volume: 1, PageNo: 42},
		Lines: []domain.OCRLine{
			{LineIndex: 0, Text: "1.2.3 A", Confidence: 0.9},
		},
	}
}

func TestIngestPageUploadSuccess(t *testing.T) {
	repo := &pageRepoFake{}
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewIngestPageUseCase(repo, storage, queue)

	page, err := uc.Upload(context.Background(), validPayload())
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if page.ID == "" {
		t.Fatalf("expected page id")
	}
	if page.Status != domain.PageUploaded {
		t.Fatalf("expected status uploaded, got %s", page.Status)
	}
	if repo.created == nil {
		t.Fatalf("expected repo.Create call")
	}
	if queue.pageID != page.ID {
		t.Fatalf("expected queued page id %s, got %s", page.ID, queue.pageID)
	}
	if !strings.HasPrefix(storage.savedKey, "vol1_page_42_") {
		t.Fatalf("expected volume/page key prefix, got %s", storage.savedKey)
	}
	if !strings.Contains(storage.savedBody, "1.2.3 A") {
		t.Fatalf("expected payload body, got %s", storage.savedBody)
	}
}

func TestIngestPageUploadRejectsInvalidPayload(t *testing.T) {
	uc := NewIngestPageUseCase(&pageRepoFake{}, &storageFake{}, &queueFake{})

	cases := []domain.PagePayload{
		{Meta: domain.PageMeta{Volume: 0, PageNo: 1}, Lines: validPayload().Lines},
		{Meta: domain.PageMeta{Volume: 1, PageNo: 0}, Lines: validPayload().Lines},
		{Meta: domain.PageMeta{Volume: 1, PageNo: 1}},
	}
	for i, payload := range cases {
		_, err := uc.Upload(context.Background(), payload)
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("case %d: error = %v, want invalid input", i, err)
		}
	}
}

func TestIngestPageUploadQueueError(t *testing.T) {
	queue := &queueFake{err: errors.New("queue down")}
	uc := NewIngestPageUseCase(&pageRepoFake{}, &storageFake{}, queue)

	_, err := uc.Upload(context.Background(), validPayload())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish page event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}
