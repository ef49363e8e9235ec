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

// pbsSearchBase is the PBS LearningMedia search endpoint. Declared as a var
// so tests can substitute an httptest server.
var pbsSearchBase = "https://www.pbslearningmedia.org/api/v2/search/"

// pbsFacets lists the facets PBS computes alongside the hits.
const pbsFacets = "accessibility,additional_features,cp,cs,ct,grades,subject,language,media_type,duration"

var errPBSShape = errors.New("PBS response has no objects list")

// PBSBackend queries PBS LearningMedia.
type PBSBackend struct {
	Client    *http.Client
	UserAgent string

	// Classify maps media_type values; nil uses PBSClassifier.
	Classify Classifier
}

// Name returns the source identifier.
func (b *PBSBackend) Name() types.Source { return types.SourcePBS }

// Fetch returns PBS resources for query, most recent first.
func (b *PBSBackend) Fetch(ctx context.Context, query string) ([]types.CandidateResult, error) {
	params := url.Values{
		"rank_by":  {"recency"},
		"q":        {query},
		"start":    {"0"},
		"facet_by": {pbsFacets},
	}

	var pr pbsResponse
	if err := getJSON(ctx, b.Client, b.UserAgent, pbsSearchBase+"?"+params.Encode(), "PBS", &pr); err != nil {
		return nil, err
	}
	if pr.Objects == nil {
		return nil, errPBSShape
	}

	classify := b.Classify
	if classify == nil {
		classify = PBSClassifier
	}

	results := make([]types.CandidateResult, 0, len(pr.Objects))
	for _, obj := range pr.Objects {
		title := strings.TrimSpace(obj.Title)
		if title == "" {
			continue
		}
		var image string
		if len(obj.PosterImages) > 0 {
			image = obj.PosterImages[0].URL
		}
		var mediaType string
		if len(obj.MediaType) > 0 {
			mediaType = obj.MediaType[0]
		}
		results = append(results, types.CandidateResult{
			Title:       title,
			Description: StripMarkup(obj.Description),
			ImageURL:    imageOrPlaceholder(image),
			Link:        obj.CanonicalURL,
			ContentType: classify(mediaType),
			Source:      types.SourcePBS,
		})
	}
	return results, nil
}

type pbsResponse struct {
	Objects []pbsObject `json:"objects"`
}

type pbsObject struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	CanonicalURL string `json:"canonical_url"`
	PosterImages []struct {
		URL string `json:"url"`
	} `json:"poster_images"`
	MediaType []string `json:"media_type"`
}
