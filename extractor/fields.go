package extractor

import (
	"fmt"
	nurl "net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/propscrape/config"
	"github.com/use-agent/propscrape/models"
)

// Options parameterizes the default strategy tables.
type Options struct {
	ElementWait     time.Duration
	AddressSelector string
	PriceSelector   string
	PricePattern    *regexp.Regexp
	ImagePattern    *regexp.Regexp
}

// OptionsFromConfig compiles the patterns in cfg. cfg should already have
// passed config.Validate.
func OptionsFromConfig(cfg config.ExtractConfig) (Options, error) {
	price, err := regexp.Compile(cfg.PricePattern)
	if err != nil {
		return Options{}, fmt.Errorf("extractor: price pattern: %w", err)
	}
	if price.NumSubexp() < 1 {
		return Options{}, fmt.Errorf("extractor: price pattern %q has no capture group", cfg.PricePattern)
	}
	image, err := regexp.Compile(cfg.ImagePattern)
	if err != nil {
		return Options{}, fmt.Errorf("extractor: image pattern: %w", err)
	}
	return Options{
		ElementWait:     cfg.ElementWait,
		AddressSelector: cfg.AddressSelector,
		PriceSelector:   cfg.PriceSelector,
		PricePattern:    price,
		ImagePattern:    image,
	}, nil
}

// DefaultFields returns the four listing fields with their fallback chains.
func DefaultFields(opts Options) []Field {
	return []Field{
		{
			Name: models.FieldTitle,
			Strategies: []Strategy{
				MetaContent("og_title", `meta[property="og:title"]`),
				DocumentTitle(),
				ReadabilityTitle(),
			},
			Default: models.DefaultTitle,
		},
		{
			Name: models.FieldLocation,
			Strategies: []Strategy{
				JSONLDAddress(),
				WaitForText("address_element", opts.AddressSelector, opts.ElementWait),
			},
			Default: models.DefaultLocation,
		},
		{
			Name: models.FieldPrice,
			Strategies: []Strategy{
				MetaPattern("meta_description", `meta[name="description"]`, opts.PricePattern),
				MetaPattern("og_description", `meta[property="og:description"]`, opts.PricePattern),
				SelectorText("price_element", opts.PriceSelector),
			},
			Default: models.DefaultPrice,
		},
		{
			Name: models.FieldPictureURL,
			Strategies: []Strategy{
				ImageSource("listing_image", opts.ImagePattern),
				MetaContent("og_image", `meta[property="og:image"]`),
			},
			Default: models.DefaultPictureURL,
		},
	}
}

// MetaContent reads the content attribute of the first element matching selector.
func MetaContent(name, selector string) Strategy {
	return Strategy{
		Name: name,
		Run: func(p Page) (string, error) {
			return p.Attr(selector, "content")
		},
	}
}

// DocumentTitle reads document.title.
func DocumentTitle() Strategy {
	return Strategy{
		Name: "document_title",
		Run: func(p Page) (string, error) {
			return p.Title()
		},
	}
}

// ReadabilityTitle runs the readability heuristics over the serialized page,
// which also consider h1 and structured headings when <title> is absent.
func ReadabilityTitle() Strategy {
	return Strategy{
		Name: "readability_title",
		Run: func(p Page) (string, error) {
			raw, err := p.HTML()
			if err != nil {
				return "", err
			}
			pageURL, err := nurl.Parse(p.URL())
			if err != nil {
				pageURL = &nurl.URL{}
			}
			article, err := readability.FromReader(strings.NewReader(raw), pageURL)
			if err != nil {
				return "", err
			}
			return article.Title, nil
		},
	}
}

// JSONLDAddress assembles a location from the first structured-data block
// that carries a postal address.
func JSONLDAddress() Strategy {
	return Strategy{
		Name: "jsonld_address",
		Run: func(p Page) (string, error) {
			blocks, err := p.Texts(`script[type="application/ld+json"]`)
			if err != nil {
				return "", err
			}
			if addr := parseJSONLDAddress(blocks); addr != "" {
				return addr, nil
			}
			return "", ErrNoMatch
		},
	}
}

// WaitForText waits up to timeout for selector and returns its trimmed text.
func WaitForText(name, selector string, timeout time.Duration) Strategy {
	return Strategy{
		Name: name,
		Run: func(p Page) (string, error) {
			return p.WaitText(selector, timeout)
		},
	}
}

// SelectorText returns the first non-blank text of any element matching selector.
func SelectorText(name, selector string) Strategy {
	return Strategy{
		Name: name,
		Run: func(p Page) (string, error) {
			texts, err := p.Texts(selector)
			if err != nil {
				return "", err
			}
			for _, t := range texts {
				if t = collapseSpace(t); t != "" {
					return t, nil
				}
			}
			return "", ErrNoMatch
		},
	}
}

// MetaPattern applies re to the content attribute of selector and returns
// capture group 1.
func MetaPattern(name, selector string, re *regexp.Regexp) Strategy {
	return Strategy{
		Name: name,
		Run: func(p Page) (string, error) {
			content, err := p.Attr(selector, "content")
			if err != nil {
				return "", err
			}
			m := re.FindStringSubmatch(content)
			if len(m) < 2 {
				return "", ErrNoMatch
			}
			return m[1], nil
		},
	}
}

// ImageSource returns the first img src or data-src matching re. Lazy-loaded
// images keep the real URL in data-src.
func ImageSource(name string, re *regexp.Regexp) Strategy {
	return Strategy{
		Name: name,
		Run: func(p Page) (string, error) {
			for _, attr := range []string{"src", "data-src"} {
				srcs, err := p.Attrs("img", attr)
				if err != nil {
					return "", err
				}
				for _, src := range srcs {
					if src = strings.TrimSpace(src); re.MatchString(src) {
						return src, nil
					}
				}
			}
			return "", ErrNoMatch
		},
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
