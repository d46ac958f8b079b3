package bootstrap

import (
	"context"
	"fmt"

	"github.com/examkit/answerkey/internal/config"
	"github.com/examkit/answerkey/internal/core/parse"
	"github.com/examkit/answerkey/internal/core/ports"
	"github.com/examkit/answerkey/internal/core/usecase"
	"github.com/examkit/answerkey/internal/infrastructure/catalog/jsonfile"
	"github.com/examkit/answerkey/internal/infrastructure/manifest/pdftext"
	"github.com/examkit/answerkey/internal/infrastructure/queue/nats"
	"github.com/examkit/answerkey/internal/infrastructure/repository/postgres"
	"github.com/examkit/answerkey/internal/infrastructure/resilience"
	"github.com/examkit/answerkey/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Pages     ports.PageRepository
	Answers   ports.AnswerRepository
	IngestUC  ports.PageIngestor
	ProcessUC ports.PageProcessor
	MappingUC ports.MappingBuilder

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pages := postgres.NewPageRepository(db)
	if err := pages.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	answers := postgres.NewAnswerRepository(db)
	suspicious := postgres.NewSuspiciousRepository(db)
	mappings := postgres.NewMappingRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	profile, err := cfg.LoadProfile()
	if err != nil {
		return nil, fmt.Errorf("load ocr profile: %w", err)
	}
	parseOpts := parse.Options{
		NATToleranceAbs: cfg.NATToleranceAbs,
		MaxChapterNo:    profile.MaxChapterNo,
		MaxSubjectCode:  profile.MaxSubjectCode,
		MaxQuestionNo:   profile.MaxQuestionNo,
	}

	catalog := jsonfile.New(cfg.QuestionsPath, cfg.OverridesPath)
	manifest := pdftext.NewSource(cfg.ManifestPath)

	ingestUC := usecase.NewIngestPageUseCase(pages, storage, queue)
	processUC := usecase.NewProcessPageUseCase(pages, answers, suspicious, storage, profile, parseOpts)
	mappingUC := usecase.NewBuildMappingUseCase(answers, catalog, manifest, mappings, cfg.QuestionSiteHost)

	return &App{
		Config: cfg,
		Queue:  queue,

		Pages:   pages,
		Answers: answers,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		MappingUC: mappingUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
