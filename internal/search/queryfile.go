// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/edusearch/pkg/types"
)

// QueryFile is a saved aggregation: the query, the candidates the sources
// returned, and which sources failed. It lets a fetch be replayed into
// the store later without calling the providers again.
type QueryFile struct {
	Query      string                  `yaml:"query"`
	Sources    []types.Source          `yaml:"sources"`
	Candidates []types.CandidateResult `yaml:"candidates"`
	Summary    QuerySummary            `yaml:"summary"`
}

// QuerySummary records counts and failures for a saved aggregation.
type QuerySummary struct {
	Total        int       `yaml:"total"`
	SourceErrors []string  `yaml:"source_errors,omitempty"`
	Timestamp    time.Time `yaml:"timestamp"`
}

// NewQueryFile captures out for query.
func NewQueryFile(query string, sources []types.Source, out Output) *QueryFile {
	qf := &QueryFile{
		Query:      query,
		Sources:    sources,
		Candidates: out.Candidates,
		Summary: QuerySummary{
			Total:     len(out.Candidates),
			Timestamp: time.Now().UTC(),
		},
	}
	for _, e := range out.Errors {
		qf.Summary.SourceErrors = append(qf.Summary.SourceErrors, e.Error())
	}
	return qf
}

// WriteQueryFile saves qf as YAML.
func WriteQueryFile(path string, qf *QueryFile) error {
	data, err := yaml.Marshal(qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a saved query file. Candidates with an unknown
// content type are rejected so a hand-edited file cannot smuggle one in.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	for i, c := range qf.Candidates {
		if !c.ContentType.Valid() {
			return nil, fmt.Errorf("candidate %d (%q): unknown type %q", i, c.Title, c.ContentType)
		}
	}
	return &qf, nil
}
