package gop

import (
	"context"
	"errors"
	"gop-scraper/lib/browser"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Options struct {
	LoginUrl    string
	TraysUrl    string
	Credentials Credentials
	Selectors   Selectors

	// enables the document fetcher
	DownloadDocuments bool
	DownloadDir       string

	// called with a page's html when a diagnostic snapshot is warranted
	// (rejected login, empty first page), nil disables snapshots
	Snapshot func(ctx context.Context, name string, page browser.Page)
}

type Result struct {
	Records []Record
	Pages   int
	// rows dropped because of ExtractionErrors
	Skipped int
	// records that got a document
	Documents int
	// true once the table view was reached, from that point on the
	// records collected so far are worth exporting even if the run fails
	Started bool
	// non-nil when traversal stopped early without failing the run
	Stopped error
}

// Scrape logs in, walks every page of the record table and returns the
// records in traversal order. the returned error is fatal to the run, see
// Result.Started to tell if the partial result should still be exported.
func Scrape(ctx context.Context, session browser.Session, opts Options) (Result, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	var result Result

	page, err := session.NewPage(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open page")
		return result, err
	}

	err = Login(ctx, page, opts.LoginUrl, opts.Credentials, opts.Selectors)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) && opts.Snapshot != nil {
			opts.Snapshot(ctx, "login_screen", page)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return result, err
	}

	err = page.Navigate(ctx, opts.TraysUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open record table")
		return result, &NavigationError{Url: opts.TraysUrl, Err: err}
	}
	result.Started = true
	pagesVisited.Add(ctx, 1)

	var fetcher *DocumentFetcher
	if opts.DownloadDocuments {
		fetcher, err = NewDocumentFetcher(ctx, session, opts.DownloadDir, opts.Selectors.DownloadMarkers)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to open detail page")
			return result, err
		}
	}

	paginator := NewPaginator(page, opts.Selectors)
	for {
		records, rowErrs := ExtractRows(ctx, page.Document(), page.URL(), opts.Selectors, paginator.Index())
		for _, rowErr := range rowErrs {
			slog.WarnContext(ctx, "skipping row", "err", rowErr)
		}
		if fetcher != nil {
			for i := range records {
				if fetcher.Augment(ctx, &records[i]) {
					result.Documents++
				}
			}
		}
		result.Records = append(result.Records, records...)
		result.Skipped += len(rowErrs)
		result.Pages = paginator.Index()

		slog.InfoContext(
			ctx, "page extracted",
			"page", paginator.Index(),
			"records", len(records),
			"skipped", len(rowErrs),
		)
		if paginator.Index() == 1 && len(records) == 0 && opts.Snapshot != nil {
			opts.Snapshot(ctx, "my_trays_screen", page)
		}

		advanced, err := paginator.Next(ctx)
		if err != nil {
			var detectErr *PaginationDetectionError
			if errors.As(err, &detectErr) {
				slog.WarnContext(ctx, "stopping traversal", "err", err)
				result.Stopped = err
				break
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "traversal failed")
			return result, err
		}
		if !advanced {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("pages", result.Pages),
		attribute.Int("records", len(result.Records)),
	)
	return result, nil
}
