package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/examkit/answerkey/internal/config"
	"github.com/examkit/answerkey/internal/core/domain"
	"github.com/examkit/answerkey/internal/core/mapping"
	"github.com/examkit/answerkey/internal/core/normalize"
	"github.com/examkit/answerkey/internal/core/parse"
	"github.com/examkit/answerkey/internal/infrastructure/backfill/htmlanswer"
	"github.com/examkit/answerkey/internal/infrastructure/catalog/jsonfile"
	"github.com/examkit/answerkey/internal/infrastructure/manifest/pdftext"
	"github.com/examkit/answerkey/internal/infrastructure/report/excel"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "answerkeyctl",
		Short:   "Answer key reconstruction toolchain",
		Long:    "answerkeyctl runs the offline answer-key pipeline over JSON artifacts:\nscan OCR pages into rows, parse rows into typed answer records, build the\nanswer-to-question mapping, and merge answers back into the question catalog.",
		Version: version,
	}

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(mapCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(backfillCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseCmd() *cobra.Command {
	var (
		pagesPath   string
		profilePath string
		tolerance   float64
		outDir      string
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Scan OCR pages and parse answer records",
		RunE: func(cmd *cobra.Command, args []string) error {
			var pages []domain.PagePayload
			if err := readJSONFile(pagesPath, &pages); err != nil {
				return err
			}

			profile, err := config.Config{ProfilePath: profilePath}.LoadProfile()
			if err != nil {
				return err
			}
			opts := parse.Options{
				NATToleranceAbs: tolerance,
				MaxChapterNo:    profile.MaxChapterNo,
				MaxSubjectCode:  profile.MaxSubjectCode,
				MaxQuestionNo:   profile.MaxQuestionNo,
			}

			deduper := parse.NewDeduper()
			var suspicious []domain.SuspiciousLine
			rowCount := 0

			for _, page := range pages {
				rows, pageSuspicious := normalize.ScanPage(page.Lines, page.Meta, profile)
				suspicious = append(suspicious, pageSuspicious...)
				rowCount += len(rows)

				for _, row := range rows {
					record, reject := parse.ParseRow(row, page.Meta, opts)
					if reject != nil {
						suspicious = append(suspicious, *reject)
						continue
					}
					if _, conflict := deduper.Add(*record, row.NormalizedText); conflict != nil {
						suspicious = append(suspicious, *conflict)
					}
				}
			}

			records := sortedRecords(deduper.Records())
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			if err := writeJSONFile(filepath.Join(outDir, "answers.json"), records); err != nil {
				return err
			}
			if err := writeJSONFile(filepath.Join(outDir, "suspicious.json"), suspicious); err != nil {
				return err
			}

			fmt.Printf("Parsed %d pages: %d rows, %d answer records, %d suspicious lines\n",
				len(pages), rowCount, len(records), len(suspicious))
			return nil
		},
	}

	cmd.Flags().StringVar(&pagesPath, "pages", "", "JSON file with OCR page payloads (required)")
	cmd.Flags().StringVar(&profilePath, "profile", "", "YAML OCR profile (defaults built in)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0.01, "default NAT tolerance")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "output directory")
	_ = cmd.MarkFlagRequired("pages")
	return cmd
}

func extractCmd() *cobra.Command {
	var (
		pdfPath  string
		volume   int
		pageSpec string
		host     string
		outPath  string
		appendTo bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the id/url manifest from an answer-key PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := parsePageSpec(pageSpec)
			if err != nil {
				return err
			}

			items, err := pdftext.NewExtractor(host).ExtractVolume(pdfPath, volume, pages)
			if err != nil {
				return err
			}

			manifest := domain.Manifest{}
			if appendTo {
				loaded, err := pdftext.NewSource(outPath).LoadManifest(cmd.Context())
				if err != nil {
					return err
				}
				manifest = loaded
			}
			manifest.Items = append(manifest.Items, items...)
			sort.Slice(manifest.Items, func(i, j int) bool {
				a, b := manifest.Items[i], manifest.Items[j]
				if a.Volume != b.Volume {
					return a.Volume < b.Volume
				}
				return a.PageNo < b.PageNo
			})

			if err := pdftext.WriteManifest(outPath, manifest); err != nil {
				return err
			}

			mismatches := 0
			for _, item := range items {
				if !item.CountsMatch {
					mismatches++
				}
			}
			fmt.Printf("Extracted %d pages from volume %d (%d with id/url count mismatch)\n",
				len(items), volume, mismatches)
			return nil
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "answer-key PDF (required)")
	cmd.Flags().IntVar(&volume, "volume", 1, "volume number")
	cmd.Flags().StringVar(&pageSpec, "pages", "", "pages to extract, e.g. 91-95,103 (required)")
	cmd.Flags().StringVar(&host, "host", "questions.example.org", "question site host")
	cmd.Flags().StringVar(&outPath, "out", "manifest.json", "manifest output path")
	cmd.Flags().BoolVar(&appendTo, "append", false, "merge into an existing manifest")
	_ = cmd.MarkFlagRequired("pdf")
	_ = cmd.MarkFlagRequired("pages")
	return cmd
}

func mapCmd() *cobra.Command {
	var (
		answersPath   string
		manifestPath  string
		questionsPath string
		overridesPath string
		patchPath     string
		host          string
		tolerance     float64
		outDir        string
	)

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Build the answer-to-question mapping and join table",
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []domain.AnswerRecord
			if err := readJSONFile(answersPath, &records); err != nil {
				return err
			}
			manifest, err := pdftext.NewSource(manifestPath).LoadManifest(cmd.Context())
			if err != nil {
				return err
			}

			catalog := jsonfile.New(questionsPath, overridesPath)
			questions, err := catalog.LoadQuestions(cmd.Context())
			if err != nil {
				return err
			}
			overrides, err := catalog.LoadOverrides(cmd.Context())
			if err != nil {
				return err
			}

			index, _ := mapping.BuildQuestionIndex(questions, host)
			candidates := mapping.CollectCandidates(records, manifest, index, host)
			report := mapping.Resolve(records, candidates, overrides, index, host)
			join, conflicts := mapping.BuildQuestionJoin(records, report.Resolved)
			report.Conflicts = conflicts
			report.Stats.Conflicts = len(conflicts)

			applied := 0
			var invalid []mapping.InvalidPatch
			if patchPath != "" {
				var patch map[string]mapping.PatchEntry
				if err := readJSONFile(patchPath, &patch); err != nil {
					return err
				}
				applied, invalid = mapping.ApplyManualPatch(join, patch, tolerance)
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			if err := writeJSONFile(filepath.Join(outDir, "mapping_report.json"), report); err != nil {
				return err
			}
			if err := writeJSONFile(filepath.Join(outDir, "answers_by_question.json"), join); err != nil {
				return err
			}
			if len(invalid) > 0 {
				if err := writeJSONFile(filepath.Join(outDir, "invalid_patch.json"), invalid); err != nil {
					return err
				}
			}

			fmt.Printf("Mapped %d records: %d resolved, %d unresolved, %d conflicts (coverage %.4f)\n",
				report.Stats.ParsedRecords, report.Stats.Resolved, report.Stats.Unresolved,
				report.Stats.Conflicts, report.Stats.CoverageRatio)
			if patchPath != "" {
				fmt.Printf("Manual patch: %d applied, %d invalid\n", applied, len(invalid))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&answersPath, "answers", "", "parsed answer records JSON (required)")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "id/url manifest JSON")
	cmd.Flags().StringVar(&questionsPath, "questions", "", "question catalog JSON (required)")
	cmd.Flags().StringVar(&overridesPath, "overrides", "", "manual overrides JSON")
	cmd.Flags().StringVar(&patchPath, "patch", "", "manual answers patch JSON")
	cmd.Flags().StringVar(&host, "host", "questions.example.org", "question site host")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0.01, "default NAT tolerance for patch entries")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "output directory")
	_ = cmd.MarkFlagRequired("answers")
	_ = cmd.MarkFlagRequired("questions")
	return cmd
}

func reportCmd() *cobra.Command {
	var (
		reportPath     string
		suspiciousPath string
		outPath        string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the review workbook from mapping artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report domain.MappingReport
			if err := readJSONFile(reportPath, &report); err != nil {
				return err
			}
			var suspicious []domain.SuspiciousLine
			if suspiciousPath != "" {
				if err := readJSONFile(suspiciousPath, &suspicious); err != nil {
					return err
				}
			}

			if err := excel.WriteReviewWorkbook(outPath, report, suspicious); err != nil {
				return err
			}
			fmt.Printf("Wrote %s: %d unresolved, %d conflicts, %d suspicious lines\n",
				outPath, len(report.Unresolved), len(report.Conflicts), len(suspicious))
			return nil
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "mapping report JSON (required)")
	cmd.Flags().StringVar(&suspiciousPath, "suspicious", "", "suspicious lines JSON")
	cmd.Flags().StringVar(&outPath, "out", "review.xlsx", "workbook output path")
	_ = cmd.MarkFlagRequired("report")
	return cmd
}

func mergeCmd() *cobra.Command {
	var (
		questionsPath string
		joinPath      string
		host          string
		outPath       string
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the answer join table into the question catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			questions, err := jsonfile.New(questionsPath, "").LoadQuestions(cmd.Context())
			if err != nil {
				return err
			}
			var join map[string]mapping.QuestionAnswer
			if err := readJSONFile(joinPath, &join); err != nil {
				return err
			}

			merged, stats := mapping.MergeAnswersIntoQuestions(questions, join, host)
			if err := writeJSONFile(outPath, merged); err != nil {
				return err
			}

			fmt.Printf("Merged answers into %d of %d questions\n", stats.MergedCount, stats.QuestionCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&questionsPath, "questions", "", "question catalog JSON (required)")
	cmd.Flags().StringVar(&joinPath, "answers-by-question", "", "join table JSON (required)")
	cmd.Flags().StringVar(&host, "host", "questions.example.org", "question site host")
	cmd.Flags().StringVar(&outPath, "out", "questions_with_answers.json", "merged catalog output path")
	_ = cmd.MarkFlagRequired("questions")
	_ = cmd.MarkFlagRequired("answers-by-question")
	return cmd
}

func backfillCmd() *cobra.Command {
	var (
		htmlDir   string
		tolerance float64
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Build a manual patch from saved question pages",
		Long:  "Reads <question_uid>.html files, recovers the accepted answer from\neach page, and writes the result as a manual answers patch.",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := os.ReadDir(htmlDir)
			if err != nil {
				return fmt.Errorf("read html dir: %w", err)
			}

			parser := htmlanswer.NewParser(tolerance)
			patch := make(map[string]mapping.PatchEntry)
			skipped := 0

			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
					continue
				}
				questionUID := strings.TrimSuffix(entry.Name(), ".html")

				raw, err := os.ReadFile(filepath.Join(htmlDir, entry.Name()))
				if err != nil {
					return fmt.Errorf("read %s: %w", entry.Name(), err)
				}

				result, ok := parser.ParsePage(string(raw))
				if !ok {
					skipped++
					continue
				}
				patch[questionUID] = patchEntryFor(result)
			}

			if err := writeJSONFile(outPath, patch); err != nil {
				return err
			}
			fmt.Printf("Backfilled %d answers (%d pages without a parseable answer)\n", len(patch), skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&htmlDir, "html-dir", "", "directory of saved question pages (required)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0.01, "default NAT tolerance")
	cmd.Flags().StringVar(&outPath, "out", "manual_patch.json", "patch output path")
	_ = cmd.MarkFlagRequired("html-dir")
	return cmd
}

func patchEntryFor(result htmlanswer.Result) mapping.PatchEntry {
	entry := mapping.PatchEntry{
		Type:   string(result.Answer.Answer.Type),
		Answer: result.Answer.Answer.Raw(),
	}
	if result.Answer.Answer.Type == domain.TypeNAT {
		entry.Tolerance = &domain.Tolerance{Abs: result.Answer.ToleranceAbs}
	}
	return entry
}

func sortedRecords(byUID map[string]domain.AnswerRecord) []domain.AnswerRecord {
	records := make([]domain.AnswerRecord, 0, len(byUID))
	for _, record := range byUID {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Volume != b.Volume {
			return a.Volume < b.Volume
		}
		if a.ID.ChapterNo != b.ID.ChapterNo {
			return a.ID.ChapterNo < b.ID.ChapterNo
		}
		if a.ID.SubjectCode != b.ID.SubjectCode {
			return a.ID.SubjectCode < b.ID.SubjectCode
		}
		return a.ID.QuestionNo < b.ID.QuestionNo
	})
	return records
}

// parsePageSpec expands "91-95,103" into the listed page numbers.
func parsePageSpec(spec string) ([]int, error) {
	var pages []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid page range %q", part)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || end < start {
				return nil, fmt.Errorf("invalid page range %q", part)
			}
			for p := start; p <= end; p++ {
				pages = append(pages, p)
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q", part)
		}
		pages = append(pages, p)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages in spec %q", spec)
	}
	return pages, nil
}

func readJSONFile(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSONFile(path string, payload any) error {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
