package fanfou

import (
	"fmt"
	"io"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed HTML page together with the URL it was fetched from
type Document struct {
	doc *goquery.Document
	URL *url.URL
}

// Element is a single node of a Document
type Element struct {
	sel *goquery.Selection
}

// NewDocument parses HTML from r. pageURL is used to resolve relative links.
func NewDocument(r io.Reader, pageURL string) (*Document, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc, URL: u}, nil
}

// SelectByClass returns every element carrying the class name, in document order
func (d *Document) SelectByClass(name string) []Element {
	var out []Element
	d.doc.Find("." + name).Each(func(_ int, s *goquery.Selection) {
		out = append(out, Element{sel: s})
	})
	return out
}

// Resolve turns a possibly relative reference into an absolute URL string
func (d *Document) Resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || d.URL == nil {
		return ref
	}
	return d.URL.ResolveReference(u).String()
}

// Attr returns the attribute value, or "" when it is absent
func (e Element) Attr(name string) string {
	v, _ := e.sel.Attr(name)
	return v
}

// Find returns the element itself when it has the given tag, otherwise its
// first descendant with that tag
func (e Element) Find(tag string) (Element, bool) {
	if e.sel.Is(tag) {
		return e, true
	}
	s := e.sel.Find(tag).First()
	if s.Length() == 0 {
		return Element{}, false
	}
	return Element{sel: s}, true
}
