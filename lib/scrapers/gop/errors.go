package gop

import (
	"errors"
	"fmt"
)

// AuthenticationError is fatal to a run, it is returned when the portal
// rejects the credentials or the post-login view never shows up.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// NavigationError is fatal to a run, it is returned when a page that the
// traversal depends on cannot be loaded.
type NavigationError struct {
	Url string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %s", e.Url, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// PaginationDetectionError stops traversal early without failing the run,
// records extracted so far are kept.
type PaginationDetectionError struct {
	Page int
	Url  string
}

func (e *PaginationDetectionError) Error() string {
	return fmt.Sprintf("could not detect a paginator on page %d (%s)", e.Page, e.Url)
}

// ExtractionError only affects the row it was raised for.
type ExtractionError struct {
	Page   int
	Row    int
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("page %d row %d: %s", e.Page, e.Row, e.Reason)
}

var (
	ErrNoDetailLink   = errors.New("record has no detail link")
	ErrNoDocumentLink = errors.New("no document link on detail page")
)

// DownloadError only affects the record it was raised for, it never leaves
// the document fetcher.
type DownloadError struct {
	SystemNumber string
	Url          string
	Err          error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download for %q from %q failed: %s", e.SystemNumber, e.Url, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
