// Package page decides whether a rendered page is a job posting and extracts its context.
package page

import "strings"

const (
	// MaxDescriptionLength bounds JobContext.JobDescription, in runes.
	MaxDescriptionLength = 12000
	// MarkerThreshold is the number of distinct markers a job page must contain.
	MarkerThreshold = 2

	unknownCompany = "Unknown Company"
)

// Markers are matched case-insensitively against the page text.
var Markers = []string{"apply", "job description", "responsibilities", "qualifications"}

// JobContext describes a detected job posting.
type JobContext struct {
	URL            string `json:"url"`
	JobTitle       string `json:"jobTitle"`
	Company        string `json:"company"`
	JobDescription string `json:"jobDescription"`
}

// Extractor turns page html into a job context when the page looks like a posting.
type Extractor interface {
	Detect(pageURL, html string) (*JobContext, bool, error)
}

// MatchedMarkers returns the markers present in text.
func MatchedMarkers(text string) []string {
	text = strings.ToLower(text)

	var matched []string
	for _, marker := range Markers {
		if strings.Contains(text, marker) {
			matched = append(matched, marker)
		}
	}
	return matched
}

// LooksLikeJobPage reports whether text contains at least MarkerThreshold markers.
func LooksLikeJobPage(text string) bool {
	return len(MatchedMarkers(text)) >= MarkerThreshold
}
