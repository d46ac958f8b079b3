package pdftext

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/examkit/answerkey/internal/core/domain"
)

// Source serves a manifest previously written by the extractor. The mapping
// build never touches the PDFs directly.
type Source struct {
	path string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) LoadManifest(_ context.Context) (domain.Manifest, error) {
	if s.path == "" {
		return domain.Manifest{}, nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Manifest{}, nil
		}
		return domain.Manifest{}, fmt.Errorf("read manifest file: %w", err)
	}
	var manifest domain.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return domain.Manifest{}, fmt.Errorf("decode manifest file: %w", err)
	}
	return manifest, nil
}

// WriteManifest persists extractor output in the shape Source reads back.
func WriteManifest(path string, manifest domain.Manifest) error {
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write manifest file: %w", err)
	}
	return nil
}
