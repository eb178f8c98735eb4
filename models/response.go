package models

// ScrapeResponse is the 200 body for POST /scrape.
type ScrapeResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

// ScrapeErrorResponse is the 4xx/5xx body for POST /scrape.
// Details and Code are only set for pipeline failures.
type ScrapeErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ListErrorResponse is the 500 body for GET /properties.
type ListErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser context pool.
type PoolStats struct {
	MaxContexts    int `json:"max_contexts"`
	ActiveContexts int `json:"active_contexts"`
}
