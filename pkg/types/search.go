// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the edusearch pipeline:
// candidates produced by source backends, results persisted per owner, and
// the paginated page returned to callers.
package types

import "time"

// ContentType classifies an educational resource.
type ContentType string

const (
	ContentArticle           ContentType = "Article"
	ContentVideo             ContentType = "Video"
	ContentInteractiveLesson ContentType = "Interactive Lesson"
	ContentQuiz              ContentType = "Quiz"
	ContentWorksheet         ContentType = "Worksheet"
)

// Valid reports whether c is one of the known content types.
func (c ContentType) Valid() bool {
	switch c {
	case ContentArticle, ContentVideo, ContentInteractiveLesson, ContentQuiz, ContentWorksheet:
		return true
	}
	return false
}

// Source identifies the provider a result came from. It is part of the
// natural key, so the stored strings must stay stable.
type Source string

const (
	SourcePBS         Source = "PBS"
	SourceCK12        Source = "CK12"
	SourceKhanAcademy Source = "Khan Academy"
)

// PlaceholderImageURL is used when a provider omits an image.
const PlaceholderImageURL = "https://placehold.co/400x300?text=No+Image"

// CandidateResult is a normalized search hit from one source backend. It
// carries no identity and is never persisted as-is.
type CandidateResult struct {
	// Title is the resource title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// Description is plain text; providers' markup is stripped.
	Description string `json:"description" yaml:"description"`

	// ImageURL is a thumbnail or PlaceholderImageURL.
	ImageURL string `json:"image_url" yaml:"image_url"`

	// Link is the canonical URL of the resource.
	Link string `json:"link" yaml:"link"`

	ContentType ContentType `json:"type" yaml:"type"`
	Source      Source      `json:"source" yaml:"source"`
}

// StoredResult is a CandidateResult persisted for one owner. At most one
// StoredResult exists per (Title, Source, OwnerID).
type StoredResult struct {
	CandidateResult `yaml:",inline"`

	// ID is assigned by the store on insert.
	ID string `json:"id" yaml:"id"`

	// OwnerID is the identity the result was first stored for.
	OwnerID string `json:"owner_id" yaml:"owner_id"`

	// CreatedAt is assigned by the store on insert and never changes.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NaturalKey identifies a StoredResult for deduplication.
type NaturalKey struct {
	Title   string
	Source  Source
	OwnerID string
}

// Key returns the natural key of r.
func (r StoredResult) Key() NaturalKey {
	return NaturalKey{Title: r.Title, Source: r.Source, OwnerID: r.OwnerID}
}

// PublicResult is the projection of a StoredResult returned to clients.
type PublicResult struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Image       string    `json:"image" yaml:"image"`
	Type        string    `json:"type" yaml:"type"`
	Source      string    `json:"source" yaml:"source"`
	URL         string    `json:"url" yaml:"url"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Public projects r for clients.
func (r StoredResult) Public() PublicResult {
	return PublicResult{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Image:       r.ImageURL,
		Type:        string(r.ContentType),
		Source:      string(r.Source),
		URL:         r.Link,
		CreatedAt:   r.CreatedAt,
	}
}
