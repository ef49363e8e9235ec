// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/edusearch/pkg/types"
)

// ck12SearchBase is the CK12 modality search endpoint. Declared as a var
// so tests can substitute an httptest server.
var ck12SearchBase = "https://api-prod.ck12.org/flx/search/direct/modality"

// ck12SiteBase prefixes artifact handles to form resource links.
var ck12SiteBase = "https://www.ck12.org"

const ck12PageSize = "10"

var errCK12Shape = errors.New("CK12 response has no artifact result list")

// CK12Backend queries the CK12 FlexBook API.
type CK12Backend struct {
	Client    *http.Client
	UserAgent string

	// Classify maps artifact types; nil uses CK12Classifier.
	Classify Classifier
}

// Name returns the source identifier.
func (b *CK12Backend) Name() types.Source { return types.SourceCK12 }

// Fetch returns up to one page of CK12 artifacts for query. Artifacts
// without a title are dropped.
func (b *CK12Backend) Fetch(ctx context.Context, query string) ([]types.CandidateResult, error) {
	params := url.Values{
		"q":                     {query},
		"pageNum":               {"1"},
		"specialSearch":         {"false"},
		"filters":               {"false"},
		"ck12only":              {"true"},
		"pageSize":              {ck12PageSize},
		"includeEIDs":           {"1"},
		"includeSpecialMatches": {"true"},
		"expirationAge":         {"hourly"},
	}

	var cr ck12Response
	if err := getJSON(ctx, b.Client, b.UserAgent, ck12SearchBase+"?"+params.Encode(), "CK12", &cr); err != nil {
		return nil, err
	}
	if cr.Response == nil || cr.Response.Artifacts == nil || cr.Response.Artifacts.Result == nil {
		return nil, errCK12Shape
	}

	classify := b.Classify
	if classify == nil {
		classify = CK12Classifier
	}

	var results []types.CandidateResult
	for _, a := range cr.Response.Artifacts.Result {
		title := strings.TrimSpace(a.Title)
		if title == "" {
			continue
		}
		results = append(results, types.CandidateResult{
			Title:       title,
			Description: ck12Description(a, title),
			ImageURL:    imageOrPlaceholder(a.CoverImage),
			Link:        ck12Link(a.Handle),
			ContentType: classify(ck12Hint(a)),
			Source:      types.SourceCK12,
		})
	}
	return results, nil
}

// ck12Hint folds a video cover image into the artifact type so that
// rule order decides between a lesson and a video.
func ck12Hint(a ck12Artifact) string {
	hint := a.ArtifactType
	if strings.Contains(a.CoverImage, "video") {
		hint += " video"
	}
	return hint
}

// ck12Description prefers the summary, then "<branch> - <title>".
func ck12Description(a ck12Artifact, title string) string {
	if s := StripMarkup(a.Summary); s != "" {
		return s
	}
	if a.Domain != nil && a.Domain.BranchInfo != nil && a.Domain.BranchInfo.Name != "" {
		return a.Domain.BranchInfo.Name + " - " + title
	}
	return ""
}

func ck12Link(handle string) string {
	handle = strings.Trim(handle, "/ ")
	if handle == "" {
		return ck12SiteBase
	}
	return ck12SiteBase + "/" + handle
}

type ck12Response struct {
	Response *struct {
		Artifacts *struct {
			Result []ck12Artifact `json:"result"`
		} `json:"Artifacts"`
	} `json:"response"`
}

type ck12Artifact struct {
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	CoverImage   string `json:"coverImage"`
	Handle       string `json:"handle"`
	ArtifactType string `json:"artifactType"`
	Domain       *struct {
		BranchInfo *struct {
			Name string `json:"name"`
		} `json:"branchInfo"`
	} `json:"domain"`
}
