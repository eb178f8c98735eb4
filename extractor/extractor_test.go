package extractor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/propscrape/config"
	"github.com/use-agent/propscrape/models"
)

const cdnImage = "https://img.staticmb.com/mbphoto/property/cropped_images/2024/abc.jpg"

const fullListing = `<!DOCTYPE html>
<html><head>
<title>Fallback Title | Listings</title>
<meta property="og:title" content="Flat in City">
<meta name="description" content="2 BHK Flat. Property Sale Price - ₹50,00,000 ✓ Ready to move">
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Apartment","name":"Flat",
 "address":{"@type":"PostalAddress","streetAddress":"12 Park Street","addressLocality":"Kolkata","addressRegion":"WB","postalCode":700016}}
</script>
</head><body>
<img src="https://cdn.example.com/logo.png">
<img src="` + cdnImage + `">
</body></html>`

const sparseListing = `<!DOCTYPE html>
<html><head>
<meta property="og:title" content="Flat in City">
<meta name="description" content="A lovely flat, call for details">
</head><body>
<img data-src="` + cdnImage + `">
</body></html>`

func defaultExtractor(t *testing.T) *Extractor {
	t.Helper()
	opts, err := OptionsFromConfig(config.Load().Extract)
	require.NoError(t, err)
	return New(DefaultFields(opts)...)
}

func mustDocument(t *testing.T, raw string) *Document {
	t.Helper()
	doc, err := NewDocument(raw, "https://listings.example.com/flat-1")
	require.NoError(t, err)
	return doc
}

func TestRunResolvesEveryField(t *testing.T) {
	res := defaultExtractor(t).Run(mustDocument(t, fullListing))

	assert.Equal(t, models.Listing{
		Title:      "Flat in City",
		Location:   "12 Park Street, Kolkata, WB, 700016",
		Price:      "₹50,00,000",
		PictureURL: cdnImage,
	}, res.Listing)
	assert.Equal(t, "og_title", res.Sources[models.FieldTitle])
	assert.Equal(t, "jsonld_address", res.Sources[models.FieldLocation])
	assert.Equal(t, "meta_description", res.Sources[models.FieldPrice])
	assert.Equal(t, "listing_image", res.Sources[models.FieldPictureURL])
	assert.Equal(t, "https://listings.example.com/flat-1", res.FinalURL)
	assert.True(t, res.Listing.Complete())
}

func TestRunIsolatesFieldFailures(t *testing.T) {
	res := defaultExtractor(t).Run(mustDocument(t, sparseListing))

	assert.Equal(t, "Flat in City", res.Listing.Title)
	assert.Equal(t, models.DefaultLocation, res.Listing.Location)
	assert.Equal(t, models.DefaultPrice, res.Listing.Price)
	assert.Equal(t, cdnImage, res.Listing.PictureURL)
	assert.Equal(t, SourceDefault, res.Sources[models.FieldLocation])
	assert.Equal(t, SourceDefault, res.Sources[models.FieldPrice])
	assert.True(t, res.Listing.Complete())
}

func TestRunOnEmptyPageUsesDefaults(t *testing.T) {
	res := defaultExtractor(t).Run(mustDocument(t, "<html><body><p>nothing here</p></body></html>"))

	assert.Equal(t, models.DefaultLocation, res.Listing.Location)
	assert.Equal(t, models.DefaultPrice, res.Listing.Price)
	assert.Equal(t, models.DefaultPictureURL, res.Listing.PictureURL)
	assert.NotEmpty(t, res.Listing.Title)
}

func TestFallbackChains(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		field  string
		want   string
		source string
	}{
		{
			name:   "title from document title",
			html:   `<html><head><title> Villa by the Lake </title></head></html>`,
			field:  models.FieldTitle,
			want:   "Villa by the Lake",
			source: "document_title",
		},
		{
			name:   "price from og description",
			html:   `<html><head><meta property="og:description" content="Sale Price: $420,000 ✓"></head></html>`,
			field:  models.FieldPrice,
			want:   "$420,000",
			source: "og_description",
		},
		{
			name:   "price from element",
			html:   `<html><body><div class="property-price">  ₹ 1.2 Cr  </div></body></html>`,
			field:  models.FieldPrice,
			want:   "₹ 1.2 Cr",
			source: "price_element",
		},
		{
			name:   "location from address element",
			html:   `<html><body><span class="property-address">Sector 45, Gurgaon</span></body></html>`,
			field:  models.FieldLocation,
			want:   "Sector 45, Gurgaon",
			source: "address_element",
		},
		{
			name:   "image from og image",
			html:   `<html><head><meta property="og:image" content="https://example.com/og.jpg"></head><body><img src="/x.png"></body></html>`,
			field:  models.FieldPictureURL,
			want:   "https://example.com/og.jpg",
			source: "og_image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := defaultExtractor(t).Run(mustDocument(t, tt.html))
			assert.Equal(t, tt.source, res.Sources[tt.field])
			switch tt.field {
			case models.FieldTitle:
				assert.Equal(t, tt.want, res.Listing.Title)
			case models.FieldLocation:
				assert.Equal(t, tt.want, res.Listing.Location)
			case models.FieldPrice:
				assert.Equal(t, tt.want, res.Listing.Price)
			case models.FieldPictureURL:
				assert.Equal(t, tt.want, res.Listing.PictureURL)
			}
		})
	}
}

func TestExtractShortCircuits(t *testing.T) {
	var calls []string
	counting := func(name, value string, err error) Strategy {
		return Strategy{Name: name, Run: func(Page) (string, error) {
			calls = append(calls, name)
			return value, err
		}}
	}

	f := Field{
		Name: "test",
		Strategies: []Strategy{
			counting("errors", "", errors.New("boom")),
			counting("blank", "   ", nil),
			counting("hit", "value", nil),
			counting("never", "other", nil),
		},
		Default: "fallback",
	}

	r := f.Extract(mustDocument(t, "<html></html>"))
	assert.Equal(t, Resolution{Value: "value", Source: "hit"}, r)
	assert.Equal(t, []string{"errors", "blank", "hit"}, calls)
}

func TestExtractRecoversPanics(t *testing.T) {
	f := Field{
		Name: "test",
		Strategies: []Strategy{
			{Name: "panics", Run: func(Page) (string, error) { panic("selector engine exploded") }},
			{Name: "ok", Run: func(Page) (string, error) { return "survived", nil }},
		},
		Default: "fallback",
	}

	var r Resolution
	require.NotPanics(t, func() { r = f.Extract(mustDocument(t, "<html></html>")) })
	assert.Equal(t, "survived", r.Value)
}

func TestExtractFallsBackToDefault(t *testing.T) {
	f := Field{
		Name:       "test",
		Strategies: []Strategy{MetaContent("missing", `meta[name="nope"]`)},
		Default:    "fallback",
	}
	r := f.Extract(mustDocument(t, "<html></html>"))
	assert.Equal(t, Resolution{Value: "fallback", Source: SourceDefault}, r)
}

func TestInvalidSelectorIsAMiss(t *testing.T) {
	f := Field{
		Name:       "test",
		Strategies: []Strategy{SelectorText("broken", "div[")},
		Default:    "fallback",
	}
	r := f.Extract(mustDocument(t, "<html><body><div>x</div></body></html>"))
	assert.Equal(t, "fallback", r.Value)
}

func TestOptionsFromConfigRejectsPatternWithoutGroup(t *testing.T) {
	cfg := config.Load().Extract
	cfg.PricePattern = `Sale Price \S+`
	_, err := OptionsFromConfig(cfg)
	require.Error(t, err)
}
