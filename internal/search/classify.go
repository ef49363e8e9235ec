// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/pdiddy/edusearch/pkg/types"
)

// Classifier maps a provider's content hint onto the closed set of
// content types. Backends carry one so the mapping can be swapped without
// touching the fetch code.
type Classifier func(hint string) types.ContentType

// KeywordRule assigns Type when the lower-cased hint contains Substring.
type KeywordRule struct {
	Substring string
	Type      types.ContentType
}

// KeywordClassifier returns a Classifier that applies rules in order and
// falls back when none match.
func KeywordClassifier(fallback types.ContentType, rules ...KeywordRule) Classifier {
	return func(hint string) types.ContentType {
		h := strings.ToLower(hint)
		for _, r := range rules {
			if strings.Contains(h, r.Substring) {
				return r.Type
			}
		}
		return fallback
	}
}

// PBSClassifier classifies PBS media_type values.
var PBSClassifier = KeywordClassifier(types.ContentArticle,
	KeywordRule{"video", types.ContentVideo},
	KeywordRule{"interactive", types.ContentInteractiveLesson},
	KeywordRule{"quiz", types.ContentQuiz},
)

// CK12Classifier classifies CK12 artifact types. Lessons win over videos,
// and videos win over assessments.
var CK12Classifier = KeywordClassifier(types.ContentArticle,
	KeywordRule{"lesson", types.ContentInteractiveLesson},
	KeywordRule{"video", types.ContentVideo},
	KeywordRule{"quiz", types.ContentQuiz},
	KeywordRule{"assessment", types.ContentQuiz},
	KeywordRule{"worksheet", types.ContentWorksheet},
)

// KhanClassifier classifies the type label shown on Khan Academy results.
var KhanClassifier = KeywordClassifier(types.ContentArticle,
	KeywordRule{"video", types.ContentVideo},
	KeywordRule{"exercise", types.ContentQuiz},
	KeywordRule{"quiz", types.ContentQuiz},
	KeywordRule{"interactive", types.ContentInteractiveLesson},
)

// StripMarkup reduces an HTML fragment to its text with entities decoded
// and whitespace collapsed. Script and style bodies are dropped.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseSpace(s)
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapseSpace(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				switch tt {
				case html.StartTagToken:
					skip++
				case html.EndTagToken:
					if skip > 0 {
						skip--
					}
				}
				continue
			}
			if blockTags[tag] {
				b.WriteByte(' ')
			}
		}
	}
}

var blockTags = map[string]bool{
	"p": true, "br": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "td": true, "th": true,
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// imageOrPlaceholder returns the trimmed URL, or the placeholder image
// when the provider supplied none.
func imageOrPlaceholder(u string) string {
	if u = strings.TrimSpace(u); u != "" {
		return u
	}
	return types.PlaceholderImageURL
}
