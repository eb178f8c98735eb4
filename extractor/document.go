package extractor

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Document is a Page over a static HTML snapshot. It backs the HTTP fetch
// mode and stands in for a browser page in tests.
type Document struct {
	root *html.Node
	doc  *goquery.Document
	raw  string
	url  string
}

var _ Page = (*Document)(nil)

// NewDocument parses rawHTML. pageURL is reported by URL and used to resolve
// relative links in the readability pass.
func NewDocument(rawHTML, pageURL string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extractor: parse html: %w", err)
	}
	return &Document{
		root: root,
		doc:  goquery.NewDocumentFromNode(root),
		raw:  rawHTML,
		url:  pageURL,
	}, nil
}

// query matches selector against the whole document in document order.
func (d *Document) query(selector string) (*goquery.Selection, error) {
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("extractor: invalid selector %q: %w", selector, err)
	}
	return d.doc.FindNodes(cascadia.QueryAll(d.root, sel)...), nil
}

func (d *Document) Title() (string, error) {
	return strings.TrimSpace(d.doc.Find("title").First().Text()), nil
}

func (d *Document) Attr(selector, name string) (string, error) {
	s, err := d.query(selector)
	if err != nil {
		return "", err
	}
	for i := range s.Nodes {
		if v, ok := s.Eq(i).Attr(name); ok {
			return v, nil
		}
	}
	return "", ErrNoMatch
}

func (d *Document) Attrs(selector, name string) ([]string, error) {
	s, err := d.query(selector)
	if err != nil {
		return nil, err
	}
	var out []string
	s.Each(func(_ int, el *goquery.Selection) {
		if v, ok := el.Attr(name); ok {
			out = append(out, v)
		}
	})
	return out, nil
}

func (d *Document) Texts(selector string) ([]string, error) {
	s, err := d.query(selector)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, s.Length())
	s.Each(func(_ int, el *goquery.Selection) {
		out = append(out, el.Text())
	})
	return out, nil
}

// WaitText does not wait: a static snapshot never changes.
func (d *Document) WaitText(selector string, _ time.Duration) (string, error) {
	s, err := d.query(selector)
	if err != nil {
		return "", err
	}
	if s.Length() == 0 {
		return "", ErrNoMatch
	}
	return s.First().Text(), nil
}

func (d *Document) HTML() (string, error) {
	return d.raw, nil
}

func (d *Document) URL() string {
	return d.url
}
