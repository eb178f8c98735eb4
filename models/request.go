package models

// ScrapeRequest is the payload for POST /scrape.
//
// URL is validated by the pipeline rather than by gin binding so that a
// missing, empty or blank value all produce the same "URL is required" reply.
type ScrapeRequest struct {
	// URL is the listing page to scrape. Required.
	URL string `json:"url"`
}
