// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pdiddy/edusearch/pkg/types"
)

const pbsFixture = `{
  "objects": [
    {
      "title": "Volcanoes 101",
      "description": "<p>How <b>volcanoes</b> form &amp; erupt.</p>",
      "canonical_url": "https://www.pbslearningmedia.org/resource/volcanoes-101/",
      "poster_images": [{"url": "https://image.pbs.org/volcano.jpg"}],
      "media_type": ["Video"]
    },
    {
      "title": "Plate Tectonics Explorer",
      "description": "Drag the plates.",
      "canonical_url": "https://www.pbslearningmedia.org/resource/plates/",
      "poster_images": [],
      "media_type": ["Interactive"]
    },
    {
      "title": "Rock Cycle Check",
      "canonical_url": "https://www.pbslearningmedia.org/resource/rocks/",
      "media_type": ["Self-Paced Quiz"]
    },
    {
      "title": "Teaching Tips",
      "canonical_url": "https://www.pbslearningmedia.org/resource/tips/",
      "media_type": ["Document"]
    },
    {
      "title": "  ",
      "canonical_url": "https://www.pbslearningmedia.org/resource/untitled/"
    }
  ]
}`

func withPBSServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	old := pbsSearchBase
	pbsSearchBase = ts.URL
	t.Cleanup(func() { pbsSearchBase = old })
}

func TestPBSFetchNormalizes(t *testing.T) {
	var gotQuery, gotUA string
	withPBSServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.UserAgent()
		if r.URL.Query().Get("rank_by") != "recency" {
			t.Errorf("rank_by = %q, want recency", r.URL.Query().Get("rank_by"))
		}
		if r.URL.Query().Get("facet_by") != pbsFacets {
			t.Errorf("facet_by = %q", r.URL.Query().Get("facet_by"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, pbsFixture)
	})

	b := &PBSBackend{Client: http.DefaultClient, UserAgent: "edusearch-test/1.0"}
	results, err := b.Fetch(context.Background(), "volcanoes & lava")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotQuery != "volcanoes & lava" {
		t.Errorf("q = %q, query must be encoded, not concatenated", gotQuery)
	}
	if gotUA != "edusearch-test/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}

	if len(results) != 4 {
		t.Fatalf("got %d results, want 4 (blank title dropped)", len(results))
	}

	v := results[0]
	if v.Title != "Volcanoes 101" || v.Source != types.SourcePBS {
		t.Errorf("first = %+v", v)
	}
	if v.Description != "How volcanoes form & erupt." {
		t.Errorf("description = %q, want markup stripped", v.Description)
	}
	if v.ImageURL != "https://image.pbs.org/volcano.jpg" {
		t.Errorf("image = %q", v.ImageURL)
	}
	if v.Link != "https://www.pbslearningmedia.org/resource/volcanoes-101/" {
		t.Errorf("link = %q", v.Link)
	}

	wantTypes := []types.ContentType{
		types.ContentVideo,
		types.ContentInteractiveLesson,
		types.ContentQuiz,
		types.ContentArticle,
	}
	for i, want := range wantTypes {
		if results[i].ContentType != want {
			t.Errorf("results[%d].ContentType = %q, want %q", i, results[i].ContentType, want)
		}
	}

	if results[1].ImageURL != types.PlaceholderImageURL {
		t.Errorf("missing poster should use placeholder, got %q", results[1].ImageURL)
	}
	if results[2].Description != "" {
		t.Errorf("missing description = %q, want empty", results[2].Description)
	}
}

func TestPBSFetchEmptyObjects(t *testing.T) {
	withPBSServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"objects": []}`)
	})
	results, err := (&PBSBackend{}).Fetch(context.Background(), "zzzz")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestPBSFetchMissingObjects(t *testing.T) {
	withPBSServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"meta": {}}`)
	})
	if _, err := (&PBSBackend{}).Fetch(context.Background(), "volcanoes"); err == nil {
		t.Error("expected error for response without objects")
	}
}

func TestPBSFetchHTTPError(t *testing.T) {
	withPBSServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	if _, err := (&PBSBackend{}).Fetch(context.Background(), "volcanoes"); err == nil {
		t.Error("expected error for HTTP 500")
	}
}

func TestPBSFetchMalformedJSON(t *testing.T) {
	withPBSServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"objects": [`)
	})
	if _, err := (&PBSBackend{}).Fetch(context.Background(), "volcanoes"); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestPBSFetchRetriesThrottle(t *testing.T) {
	var calls atomic.Int32
	withPBSServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, pbsFixture)
	})
	results, err := (&PBSBackend{}).Fetch(context.Background(), "volcanoes")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if len(results) == 0 {
		t.Error("expected results after retry")
	}
}

func TestPBSCustomClassifier(t *testing.T) {
	withPBSServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, pbsFixture)
	})
	b := &PBSBackend{Classify: func(string) types.ContentType { return types.ContentWorksheet }}
	results, err := b.Fetch(context.Background(), "volcanoes")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	for _, r := range results {
		if r.ContentType != types.ContentWorksheet {
			t.Errorf("%q classified as %q, want Worksheet", r.Title, r.ContentType)
		}
	}
}
