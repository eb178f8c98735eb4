package extractor

import (
	"errors"
	"time"
)

// ErrNoMatch is returned by a Page when a selector matches nothing.
var ErrNoMatch = errors.New("extractor: no matching element")

// Page is the read-only view of a loaded listing page that strategies query.
//
// Implementations must not block except in WaitText, and WaitText must give up
// after timeout. Both the live rod page (package scraper) and Document satisfy it.
type Page interface {
	// Title returns document.title.
	Title() (string, error)

	// Attr returns attribute name of the first element matching selector.
	Attr(selector, name string) (string, error)

	// Attrs returns attribute name of every matching element that has it.
	Attrs(selector, name string) ([]string, error)

	// Texts returns the textContent of every element matching selector.
	Texts(selector string) ([]string, error)

	// WaitText waits up to timeout for selector to appear and returns its text.
	WaitText(selector string, timeout time.Duration) (string, error)

	// HTML returns the serialized document.
	HTML() (string, error)

	// URL returns the document URL, or "" if unknown.
	URL() string
}
