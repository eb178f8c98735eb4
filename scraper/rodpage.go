package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/use-agent/propscrape/extractor"
)

// rodPage adapts a live rod page to extractor.Page. Every call except
// WaitText queries the current DOM once without retrying.
type rodPage struct {
	page *rod.Page
	url  string
}

var _ extractor.Page = (*rodPage)(nil)

func newRodPage(page *rod.Page, finalURL string) *rodPage {
	return &rodPage{page: page, url: finalURL}
}

func (r *rodPage) Title() (string, error) {
	res, err := r.page.Eval(`() => document.title`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (r *rodPage) Attr(selector, name string) (string, error) {
	els, err := r.page.Elements(selector)
	if err != nil {
		return "", err
	}
	for _, el := range els {
		v, err := el.Attribute(name)
		if err != nil {
			return "", err
		}
		if v != nil {
			return *v, nil
		}
	}
	return "", extractor.ErrNoMatch
}

func (r *rodPage) Attrs(selector, name string) ([]string, error) {
	els, err := r.page.Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(els))
	for _, el := range els {
		v, err := el.Attribute(name)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *rodPage) Texts(selector string) ([]string, error) {
	els, err := r.page.Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(els))
	for _, el := range els {
		// textContent, not innerText: script bodies are not rendered text.
		v, err := el.Property("textContent")
		if err != nil {
			return nil, err
		}
		out = append(out, v.Str())
	}
	return out, nil
}

func (r *rodPage) WaitText(selector string, timeout time.Duration) (string, error) {
	el, err := r.page.Timeout(timeout).Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s not present after %s", extractor.ErrNoMatch, selector, timeout)
		}
		return "", err
	}
	text, err := el.CancelTimeout().Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (r *rodPage) HTML() (string, error) {
	return r.page.HTML()
}

func (r *rodPage) URL() string {
	return r.url
}
