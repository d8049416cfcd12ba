// Package browser defines the capabilities the scrapers need from a browsing
// session. Scrapers only depend on these interfaces so the underlying driver
// can be swapped without touching pagination or extraction logic.
//
// Pages expose their rendered DOM as goquery selections, reading text is
// done on the returned selections.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrSelectorNotFound = errors.New("selector not found")
	ErrNotClickable     = errors.New("element is not clickable")
	ErrNotFillable      = errors.New("element is not fillable")
	ErrNoDocument       = errors.New("page has no document loaded")
	ErrSessionClosed    = errors.New("session is closed")
	// a download answered with a web page instead of a file
	ErrNotAFile = errors.New("response is a web page, not a file")
)

// StatusError is returned when the server answers a navigation or download
// with a non successful status.
type StatusError struct {
	Url    string
	Status int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Url, e.Status)
}

// Session is a single authenticated browsing context, all of its pages
// share cookies.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

type Page interface {
	// Navigate loads the given url, relative urls are resolved against the
	// current page.
	Navigate(ctx context.Context, rawUrl string) error
	// URL is the location of the current document after redirects.
	URL() *url.URL
	// Document returns the current DOM, or nil before the first navigation.
	Document() *goquery.Document
	// WaitForSelector returns the matches of selector once they are present,
	// or an error wrapping ErrSelectorNotFound when the wait bound runs out.
	WaitForSelector(ctx context.Context, selector string) (*goquery.Selection, error)
	// Fill sets the value of a form control.
	Fill(target *goquery.Selection, value string) error
	// Click activates a link or a form submit control.
	Click(ctx context.Context, target *goquery.Selection) error
	// Download saves the target of rawUrl inside dir and returns the path
	// of the written file.
	Download(ctx context.Context, rawUrl string, dir string) (string, error)
	// HTML renders the current document, used for diagnostics.
	HTML() (string, error)
}
