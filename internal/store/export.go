// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/edusearch/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ExportDocument is an owner's full result history.
type ExportDocument struct {
	OwnerID string               `json:"owner_id" yaml:"owner_id"`
	Total   int                  `json:"total" yaml:"total"`
	Sources []SourceCount        `json:"sources" yaml:"sources"`
	Results []types.PublicResult `json:"results" yaml:"results"`
}

// exportBatch is how many rows Export reads per query.
var exportBatch = 1000

// Export writes every result owned by owner to w in the given format,
// newest first.
func (s *Store) Export(ctx context.Context, owner, format string, w io.Writer) error {
	doc, err := s.exportDocument(ctx, owner)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	return nil
}

func (s *Store) exportDocument(ctx context.Context, owner string) (*ExportDocument, error) {
	var results []types.StoredResult
	for offset := 0; ; offset += exportBatch {
		batch, err := s.List(ctx, Filter{OwnerID: owner}, exportBatch, offset)
		if err != nil {
			return nil, fmt.Errorf("querying for export: %w", err)
		}
		results = append(results, batch...)
		if len(batch) < exportBatch {
			break
		}
	}
	sources, err := s.CountBySource(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	doc := &ExportDocument{
		OwnerID: owner,
		Total:   len(results),
		Sources: sources,
		Results: make([]types.PublicResult, len(results)),
	}
	for i, r := range results {
		doc.Results[i] = r.Public()
	}
	return doc, nil
}
