package gop

import (
	"context"
	"gop-scraper/lib/browser"
	"gop-scraper/lib/htmlutil"
	"gop-scraper/lib/textutil"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PageState int

const (
	// the current page's rows are available for extraction
	OnPage PageState = iota
	// a next control was triggered and the following page is loading
	Advancing
	// terminal, there are no more pages
	Exhausted
)

func (s PageState) String() string {
	switch s {
	case OnPage:
		return "OnPage"
	case Advancing:
		return "Advancing"
	case Exhausted:
		return "Exhausted"
	}
	return "Unknown"
}

// Paginator drives a page through the record table, one page at a time
// and strictly forward.
type Paginator struct {
	page      browser.Page
	selectors Selectors
	index     int
	state     PageState
	visited   map[string]struct{}
}

// NewPaginator expects page to already show the first page of the table.
func NewPaginator(page browser.Page, selectors Selectors) *Paginator {
	p := &Paginator{
		page:      page,
		selectors: selectors,
		index:     1,
		state:     OnPage,
		visited:   map[string]struct{}{},
	}
	p.markVisited(page.URL().String())
	return p
}

func (p *Paginator) Index() int       { return p.index }
func (p *Paginator) State() PageState { return p.state }

func (p *Paginator) markVisited(u string) {
	p.visited[strings.TrimSuffix(u, "#")] = struct{}{}
}

func (p *Paginator) wasVisited(u string) bool {
	_, ok := p.visited[strings.TrimSuffix(u, "#")]
	return ok
}

// Next advances to the following page. it returns false once the table is
// exhausted, a PaginationDetectionError when no paginator could be found on
// the first page and a NavigationError when the next page failed to load.
// after any non-advancing return the paginator is Exhausted.
func (p *Paginator) Next(ctx context.Context) (bool, error) {
	if p.state == Exhausted {
		return false, nil
	}

	ctx, span := tracer.Start(ctx, "Paginator:Next")
	defer span.End()
	span.SetAttributes(attribute.Int("page", p.index))

	doc := p.page.Document()
	if doc == nil {
		p.state = Exhausted
		return false, &PaginationDetectionError{Page: p.index, Url: p.page.URL().String()}
	}

	control, paginatorFound := findNextControl(doc, p.selectors)
	if control == nil {
		p.state = Exhausted
		if !paginatorFound && p.index == 1 {
			err := &PaginationDetectionError{Page: p.index, Url: p.page.URL().String()}
			span.SetStatus(codes.Error, err.Error())
			return false, err
		}
		slog.DebugContext(ctx, "no next control, table exhausted", "page", p.index)
		return false, nil
	}

	if isDisabled(control) {
		p.state = Exhausted
		slog.DebugContext(ctx, "next control disabled, table exhausted", "page", p.index)
		return false, nil
	}

	target := p.page.URL().ResolveReference(mustParseRef(control.AttrOr("href", ""))).String()
	if goquery.NodeName(control) == "a" && p.wasVisited(target) {
		p.state = Exhausted
		slog.WarnContext(ctx, "next control points at an already visited page", "page", p.index, "url", target)
		return false, nil
	}

	p.state = Advancing
	err := p.page.Click(ctx, control)
	if err != nil {
		p.state = Exhausted
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load next page")
		return false, &NavigationError{Url: target, Err: err}
	}

	p.index++
	p.markVisited(target)
	p.markVisited(p.page.URL().String())
	p.state = OnPage
	pagesVisited.Add(ctx, 1)
	return true, nil
}

// looks for the next control with the configured selectors first, then by
// matching labels inside the paginator. the second return value tells if a
// paginator container or next-like control exists at all.
func findNextControl(doc *goquery.Document, selectors Selectors) (*goquery.Selection, bool) {
	for _, selector := range selectors.NextControl {
		found := doc.Find(selector)
		if found.Length() > 0 {
			return found.First(), true
		}
	}

	paginatorFound := false
	var control *goquery.Selection
	for _, selector := range selectors.Paginator {
		container := doc.Find(selector)
		if container.Length() == 0 {
			continue
		}
		paginatorFound = true

		container.Find("a, button, span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			labels := []string{
				htmlutil.VisibleText(s),
				s.AttrOr("aria-label", ""),
				s.AttrOr("title", ""),
			}
			for _, label := range labels {
				if textutil.MatchLabel(label, selectors.NextLabels) {
					control = s
					return false
				}
			}
			return true
		})
		if control != nil {
			return control, true
		}
	}
	return nil, paginatorFound
}

// disabled and absent next controls are treated the same.
func isDisabled(control *goquery.Selection) bool {
	if control.HasClass("disabled") || control.Closest("li").HasClass("disabled") {
		return true
	}
	if _, ok := control.Attr("disabled"); ok {
		return true
	}
	if strings.EqualFold(control.AttrOr("aria-disabled", ""), "true") {
		return true
	}

	switch goquery.NodeName(control) {
	case "a":
		return !isFollowable(control.AttrOr("href", ""))
	case "button":
		return false
	}
	// plain text markers like <span>&raquo;</span> are what the grid renders
	// in place of a link on the last page
	return true
}

func mustParseRef(href string) *url.URL {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return &url.URL{}
	}
	return ref
}
