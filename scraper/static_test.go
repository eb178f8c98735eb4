package scraper

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/propscrape/config"
	"github.com/use-agent/propscrape/engine"
	"github.com/use-agent/propscrape/extractor"
	"github.com/use-agent/propscrape/models"
)

const listingURL = "https://listings.example.test/flat-7"

const listingHTML = `<html><head>
<meta property="og:title" content="Flat in City">
<meta name="description" content="Property Sale Price - ₹50,00,000 ✓">
<script type="application/ld+json">{"address":{"streetAddress":"4 Lake Rd","addressLocality":"Bhopal"}}</script>
</head><body><img src="https://img.staticmb.com/mbphoto/property/a.jpg"></body></html>`

func newStaticSession(t *testing.T) (*StaticSession, *httpmock.MockTransport) {
	t.Helper()
	opts, err := extractor.OptionsFromConfig(config.Load().Extract)
	require.NoError(t, err)

	e := engine.NewHTTPEngine(engine.HTTPOptions{UserAgent: "test", AcceptLanguage: "en"})
	transport := httpmock.NewMockTransport()
	e.Client().Transport = transport

	return NewStaticSession(e, extractor.New(extractor.DefaultFields(opts)...), 5*time.Second), transport
}

func TestStaticSessionExtractsListing(t *testing.T) {
	s, transport := newStaticSession(t)
	resp := httpmock.NewStringResponse(200, listingHTML)
	resp.Header.Set("Content-Type", "text/html")
	transport.RegisterResponder(http.MethodGet, listingURL, httpmock.ResponderFromResponse(resp))

	res, err := s.Execute(context.Background(), listingURL)
	require.NoError(t, err)
	assert.Equal(t, models.Listing{
		Title:      "Flat in City",
		Location:   "4 Lake Rd, Bhopal",
		Price:      "₹50,00,000",
		PictureURL: "https://img.staticmb.com/mbphoto/property/a.jpg",
	}, res.Listing)
}

func TestStaticSessionFailures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		code      string
	}{
		{"error status", httpmock.NewStringResponder(502, "bad gateway"), models.ErrCodeNavigation},
		{"network error", httpmock.NewErrorResponder(errors.New("no route to host")), models.ErrCodeNavigation},
		{"deadline", httpmock.NewErrorResponder(context.DeadlineExceeded), models.ErrCodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, transport := newStaticSession(t)
			transport.RegisterResponder(http.MethodGet, listingURL, tt.responder)

			res, err := s.Execute(context.Background(), listingURL)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.code, models.CodeOf(err))
			assert.True(t, models.IsExtractionFatal(err))
			assert.NotEmpty(t, models.PublicMessage(err))
		})
	}
}

func TestCategorizeError(t *testing.T) {
	assert.Equal(t, models.ErrCodeTimeout, categorizeError(context.DeadlineExceeded, "x").Code)
	assert.Equal(t, models.ErrCodeTimeout, categorizeError(context.Canceled, "x").Code)
	assert.Equal(t, models.ErrCodeNavigation, categorizeError(errors.New("dns"), "x").Code)
}

func TestBlockedSet(t *testing.T) {
	got := blockedSet([]string{"Stylesheet", "Font", "Bogus"})
	assert.Len(t, got, 2)
	assert.Contains(t, got, proto.NetworkResourceTypeStylesheet)
	assert.Contains(t, got, proto.NetworkResourceTypeFont)
	assert.Empty(t, blockedSet(nil))
}
