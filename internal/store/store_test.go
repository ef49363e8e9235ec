// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/edusearch/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	cfg := types.StoreConfig{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "db", "edusearch.db"),
	}
	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func candidate(title string, source types.Source) types.CandidateResult {
	return types.CandidateResult{
		Title:       title,
		Description: "About " + title,
		ImageURL:    types.PlaceholderImageURL,
		Link:        "https://example.org/" + title,
		ContentType: types.ContentArticle,
		Source:      source,
	}
}

// --- Open ---

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), types.StoreConfig{Driver: "mysql"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestOpenPostgresNeedsDSN(t *testing.T) {
	if _, err := Open(context.Background(), types.StoreConfig{Driver: DriverPostgres}); err == nil {
		t.Error("expected error for postgres without DSN")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edusearch.db")
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), types.StoreConfig{DSN: path})
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		s.Close()
	}
}

// --- InsertIfAbsent / FindByKey ---

func TestInsertIfAbsent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first, inserted, err := s.InsertIfAbsent(ctx, "u1", candidate("Volcanoes 101", types.SourcePBS))
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Error("first insert should report inserted")
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Errorf("store must assign id and created_at: %+v", first)
	}
	if first.OwnerID != "u1" || first.Source != types.SourcePBS {
		t.Errorf("stored = %+v", first)
	}

	dup := candidate("Volcanoes 101", types.SourcePBS)
	dup.Description = "changed"
	second, inserted, err := s.InsertIfAbsent(ctx, "u1", dup)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("duplicate insert should not report inserted")
	}
	if second.ID != first.ID || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("duplicate returned %+v, want canonical %+v", second, first)
	}
	if second.Description != "About Volcanoes 101" {
		t.Errorf("existing record must not be updated, description = %q", second.Description)
	}

	n, err := s.Count(ctx, Filter{OwnerID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestNaturalKeyScopesByOwnerAndSource(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	inserts := []struct {
		owner  string
		source types.Source
	}{
		{"u1", types.SourcePBS},
		{"u1", types.SourceCK12},
		{"u2", types.SourcePBS},
	}
	for _, in := range inserts {
		_, inserted, err := s.InsertIfAbsent(ctx, in.owner, candidate("Volcanoes", in.source))
		if err != nil {
			t.Fatal(err)
		}
		if !inserted {
			t.Errorf("%s/%s should be a new record", in.owner, in.source)
		}
	}

	if _, found, _ := s.FindByKey(ctx, types.NaturalKey{Title: "Volcanoes", Source: types.SourceCK12, OwnerID: "u2"}); found {
		t.Error("u2 has no CK12 record")
	}
	r, found, err := s.FindByKey(ctx, types.NaturalKey{Title: "Volcanoes", Source: types.SourcePBS, OwnerID: "u2"})
	if err != nil || !found {
		t.Fatalf("FindByKey: found=%v err=%v", found, err)
	}
	if r.OwnerID != "u2" {
		t.Errorf("owner = %q", r.OwnerID)
	}
}

func TestInsertIfAbsentRejectsEmptyTitle(t *testing.T) {
	s := testStore(t)
	if _, _, err := s.InsertIfAbsent(context.Background(), "u1", candidate("  ", types.SourcePBS)); err == nil {
		t.Error("expected error for empty title")
	}
}

func TestInsertIfAbsentConcurrent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, _, err := s.InsertIfAbsent(ctx, "u1", candidate("Race", types.SourceCK12))
			ids[i], errs[i] = r.ID, err
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Errorf("goroutine %d got id %s, want %s", i, ids[i], ids[0])
		}
	}
	if n, _ := s.Count(ctx, Filter{OwnerID: "u1"}); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestCreatedAtStrictlyIncreases(t *testing.T) {
	s := testStore(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ctx := context.Background()
	a, _, _ := s.InsertIfAbsent(ctx, "u1", candidate("A", types.SourcePBS))
	b, _, _ := s.InsertIfAbsent(ctx, "u1", candidate("B", types.SourcePBS))
	if !b.CreatedAt.After(a.CreatedAt) {
		t.Errorf("created_at not increasing: %v then %v", a.CreatedAt, b.CreatedAt)
	}
}

// --- Count / List ---

func seed(t *testing.T, s *Store, owner string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, _, err := s.InsertIfAbsent(context.Background(), owner, candidate(fmt.Sprintf("Item %02d", i), types.SourcePBS)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListNewestFirstWithPaging(t *testing.T) {
	s := testStore(t)
	seed(t, s, "u1", 25)
	seed(t, s, "u2", 3)
	ctx := context.Background()

	n, err := s.Count(ctx, Filter{OwnerID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 25 {
		t.Fatalf("count = %d, want 25", n)
	}

	page3, err := s.List(ctx, Filter{OwnerID: "u1"}, 10, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(page3) != 5 {
		t.Fatalf("page 3 has %d rows, want 5", len(page3))
	}
	if page3[0].Title != "Item 04" || page3[4].Title != "Item 00" {
		t.Errorf("page 3 = %s .. %s, want Item 04 .. Item 00", page3[0].Title, page3[4].Title)
	}

	first, err := s.List(ctx, Filter{OwnerID: "u1"}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if first[0].Title != "Item 24" {
		t.Errorf("newest = %s, want Item 24", first[0].Title)
	}
	for i := 1; i < len(first); i++ {
		if first[i].CreatedAt.After(first[i-1].CreatedAt) {
			t.Errorf("row %d newer than row %d", i, i-1)
		}
	}

	empty, err := s.List(ctx, Filter{OwnerID: "u1"}, 10, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("past last page returned %d rows", len(empty))
	}
}

func TestFilterMatchesTitleOrDescriptionCaseInsensitive(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	mustInsert := func(c types.CandidateResult) {
		t.Helper()
		if _, _, err := s.InsertIfAbsent(ctx, "u1", c); err != nil {
			t.Fatal(err)
		}
	}
	mustInsert(types.CandidateResult{Title: "VOLCANOES of Hawaii", ContentType: types.ContentVideo, Source: types.SourcePBS})
	mustInsert(types.CandidateResult{Title: "Lava flows", Description: "How volcanoes erupt", ContentType: types.ContentArticle, Source: types.SourceCK12})
	mustInsert(types.CandidateResult{Title: "Photosynthesis", ContentType: types.ContentArticle, Source: types.SourceCK12})
	mustInsert(types.CandidateResult{Title: "100% Science", ContentType: types.ContentQuiz, Source: types.SourcePBS})
	mustInsert(types.CandidateResult{Title: "1000 Facts", ContentType: types.ContentQuiz, Source: types.SourcePBS})
	mustInsert(types.CandidateResult{Title: "ÉRUPTIONS Volcaniques", Description: "Über Vulkane", ContentType: types.ContentVideo, Source: types.SourceCK12})

	tests := []struct {
		text string
		want int
	}{
		{"volcanoes", 2},
		{"Volcanoes", 2},
		{"photo", 1},
		{"", 6},
		{"   ", 6},
		{"éruptions", 1},
		{"ÉRUPTIONS", 1},
		{"Éruptions", 1},
		{"über", 1},
		{"VULKANE", 1},
		{"volcaniques", 1},
		{"100%", 1},
		{"_", 0},
		{"glaciers", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			n, err := s.Count(ctx, Filter{OwnerID: "u1", Text: tt.text})
			if err != nil {
				t.Fatal(err)
			}
			if n != tt.want {
				t.Errorf("Count(%q) = %d, want %d", tt.text, n, tt.want)
			}
			rows, err := s.List(ctx, Filter{OwnerID: "u1", Text: tt.text}, 100, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != tt.want {
				t.Errorf("List(%q) returned %d rows, want %d", tt.text, len(rows), tt.want)
			}
		})
	}
}

func TestCountBySource(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for _, c := range []types.CandidateResult{
		candidate("a", types.SourceCK12),
		candidate("b", types.SourceCK12),
		candidate("c", types.SourcePBS),
	} {
		if _, _, err := s.InsertIfAbsent(ctx, "u1", c); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.CountBySource(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Source != types.SourceCK12 || got[0].Count != 2 || got[1].Count != 1 {
		t.Errorf("CountBySource = %+v", got)
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &Store{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

// --- Export ---

func TestExport(t *testing.T) {
	s := testStore(t)
	seed(t, s, "u1", 3)
	ctx := context.Background()

	var jb bytes.Buffer
	if err := s.Export(ctx, "u1", FormatJSON, &jb); err != nil {
		t.Fatal(err)
	}
	var doc ExportDocument
	if err := json.Unmarshal(jb.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.Total != 3 || len(doc.Results) != 3 || doc.OwnerID != "u1" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.Results[0].Title != "Item 02" {
		t.Errorf("first exported = %q, want newest", doc.Results[0].Title)
	}

	var yb bytes.Buffer
	if err := s.Export(ctx, "u1", FormatYAML, &yb); err != nil {
		t.Fatal(err)
	}
	var ydoc ExportDocument
	if err := yaml.Unmarshal(yb.Bytes(), &ydoc); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if ydoc.Total != 3 {
		t.Errorf("yaml total = %d", ydoc.Total)
	}

	if err := s.Export(ctx, "u1", "csv", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestExportReadsEveryBatch(t *testing.T) {
	s := testStore(t)
	seed(t, s, "u1", 7)

	old := exportBatch
	exportBatch = 3
	t.Cleanup(func() { exportBatch = old })

	var b bytes.Buffer
	if err := s.Export(context.Background(), "u1", FormatJSON, &b); err != nil {
		t.Fatal(err)
	}
	var doc ExportDocument
	if err := json.Unmarshal(b.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Total != 7 || len(doc.Results) != 7 {
		t.Fatalf("total = %d, results = %d, want 7", doc.Total, len(doc.Results))
	}
	seen := map[string]bool{}
	for _, r := range doc.Results {
		if seen[r.ID] {
			t.Errorf("result %s exported twice", r.ID)
		}
		seen[r.ID] = true
	}
	if doc.Results[0].Title != "Item 06" || doc.Results[6].Title != "Item 00" {
		t.Errorf("order = %q .. %q, want newest first", doc.Results[0].Title, doc.Results[6].Title)
	}
}
