package models

import "strings"

// JobStatus is the lifecycle state of a scrape job record.
//
//	Pending ──create──▶ InProgress ──update──▶ Completed
//	                         │
//	                         └──markFailed──▶ Failed
//
// Pending exists only before the row is inserted and is never persisted.
type JobStatus string

const (
	StatusPending    JobStatus = "Pending"
	StatusInProgress JobStatus = "In Progress"
	StatusCompleted  JobStatus = "Completed"
	StatusFailed     JobStatus = "Failed"
)

// Placeholders written when no strategy resolves a field.
const (
	DefaultTitle      = "No title found"
	DefaultLocation   = "No location found"
	DefaultPrice      = "No price found"
	DefaultPictureURL = "No image found"
)

// Field names shared by the extractor, metrics labels and ExtractionResult.Sources.
const (
	FieldTitle      = "title"
	FieldLocation   = "location"
	FieldPrice      = "price"
	FieldPictureURL = "picture_url"
)

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is expected.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a job in state s may move to next.
// Re-marking a Failed job as Failed is allowed so the failure marker stays idempotent.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed
	case StatusFailed:
		return next == StatusFailed
	}
	return false
}

// ScrapeJob is one row of property_listings.
type ScrapeJob struct {
	ID         int64     `json:"id" db:"id"`
	URL        string    `json:"url" db:"url"`
	Title      *string   `json:"title" db:"title"`
	Location   *string   `json:"location" db:"location"`
	Price      *string   `json:"price" db:"price"`
	PictureURL *string   `json:"picture_url" db:"picture_url"`
	Status     JobStatus `json:"status" db:"status"`
}

// Listing holds the four extracted values written together with Completed.
type Listing struct {
	Title      string `json:"title"`
	Location   string `json:"location"`
	Price      string `json:"price"`
	PictureURL string `json:"picture_url"`
}

// Complete reports whether every field carries a value. Placeholders count.
func (l Listing) Complete() bool {
	return strings.TrimSpace(l.Title) != "" &&
		strings.TrimSpace(l.Location) != "" &&
		strings.TrimSpace(l.Price) != "" &&
		strings.TrimSpace(l.PictureURL) != ""
}

// Set assigns a value by field name. Unknown names are ignored.
func (l *Listing) Set(field, value string) {
	switch field {
	case FieldTitle:
		l.Title = value
	case FieldLocation:
		l.Location = value
	case FieldPrice:
		l.Price = value
	case FieldPictureURL:
		l.PictureURL = value
	}
}

// ExtractionResult is what one extraction session produces for the pipeline.
type ExtractionResult struct {
	Listing Listing

	// Sources maps field name to the strategy that produced the value
	// ("default" when the placeholder was used).
	Sources map[string]string

	// FinalURL is the document URL after redirects, when known.
	FinalURL string
}
