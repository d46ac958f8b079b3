package usecase

import (
	"context"
	"fmt"

	"github.com/examkit/answerkey/internal/core/domain"
	"github.com/examkit/answerkey/internal/core/mapping"
	"github.com/examkit/answerkey/internal/core/ports"
)

type BuildMappingUseCase struct {
	answers  ports.AnswerRepository
	catalog  ports.QuestionCatalog
	manifest ports.ManifestSource
	mappings ports.MappingRepository
	siteHost string
}

func NewBuildMappingUseCase(
	answers ports.AnswerRepository,
	catalog ports.QuestionCatalog,
	manifest ports.ManifestSource,
	mappings ports.MappingRepository,
	siteHost string,
) *BuildMappingUseCase {
	return &BuildMappingUseCase{
		answers:  answers,
		catalog:  catalog,
		manifest: manifest,
		mappings: mappings,
		siteHost: siteHost,
	}
}

// Build runs the full collector/resolver pass over the current answer set and
// replaces the persisted mapping report.
func (uc *BuildMappingUseCase) Build(ctx context.Context) (*domain.MappingReport, error) {
	records, err := uc.answers.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list answer records: %w", err)
	}
	questions, err := uc.catalog.LoadQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load question catalog: %w", err)
	}
	overrides, err := uc.catalog.LoadOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mapping overrides: %w", err)
	}
	manifest, err := uc.manifest.LoadManifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	index, _ := mapping.BuildQuestionIndex(questions, uc.siteHost)
	candidates := mapping.CollectCandidates(records, manifest, index, uc.siteHost)
	report := mapping.Resolve(records, candidates, overrides, index, uc.siteHost)

	join, conflicts := mapping.BuildQuestionJoin(records, report.Resolved)
	report.Conflicts = conflicts
	report.Stats.Conflicts = len(conflicts)

	if err := uc.mappings.ReplaceReport(ctx, report, join); err != nil {
		return nil, fmt.Errorf("persist mapping report: %w", err)
	}
	return &report, nil
}

func (uc *BuildMappingUseCase) Report(ctx context.Context) (*domain.MappingReport, error) {
	report, err := uc.mappings.GetReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mapping report: %w", err)
	}
	return report, nil
}
