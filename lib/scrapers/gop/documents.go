package gop

import (
	"context"
	"gop-scraper/lib/browser"
	"gop-scraper/lib/htmlutil"
	"gop-scraper/lib/textutil"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DocumentFetcher opens record detail views in its own page of the session,
// so the table page being paginated is never navigated away from.
type DocumentFetcher struct {
	page    browser.Page
	dir     string
	markers []string
}

func NewDocumentFetcher(ctx context.Context, session browser.Session, dir string, markers []string) (*DocumentFetcher, error) {
	page, err := session.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return &DocumentFetcher{
		page:    page,
		dir:     dir,
		markers: markers,
	}, nil
}

// directory name for a record's documents
func recordDirName(systemNumber string) string {
	name := strings.TrimSpace(systemNumber)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "sin_numero"
	}
	return name
}

func (f *DocumentFetcher) isDocumentLink(a htmlutil.Anchor) bool {
	if !isFollowable(a.Selection.AttrOr("href", "")) {
		return false
	}
	// markers must appear verbatim, a fuzzy hit could follow "Descartar"
	if textutil.ContainsLabel(a.Name, f.markers) {
		return true
	}
	link, err := url.Parse(a.Href)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(link.Path), ".pdf")
}

// Fetch downloads the first document linked from the record's detail view
// and returns where it was saved. every failure is a *DownloadError.
func (f *DocumentFetcher) Fetch(ctx context.Context, record Record) (string, error) {
	ctx, span := tracer.Start(ctx, "DocumentFetcher:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("system_number", record.SystemNumber))

	fail := func(href string, err error) (string, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "document fetch abandoned")
		return "", &DownloadError{SystemNumber: record.SystemNumber, Url: href, Err: err}
	}

	if record.DetailUrl == "" {
		return fail("", ErrNoDetailLink)
	}
	err := f.page.Navigate(ctx, record.DetailUrl)
	if err != nil {
		return fail(record.DetailUrl, err)
	}

	doc := f.page.Document()
	var target *htmlutil.Anchor
	for _, a := range htmlutil.GetAnchors(ctx, f.page.URL(), doc.Find("a[href]")) {
		if f.isDocumentLink(a) {
			target = &a
			break
		}
	}
	if target == nil {
		return fail(record.DetailUrl, ErrNoDocumentLink)
	}

	path, err := f.page.Download(ctx, target.Href, filepath.Join(f.dir, recordDirName(record.SystemNumber)))
	if err != nil {
		return fail(target.Href, err)
	}

	documentsDownloaded.Add(ctx, 1)
	return path, nil
}

// Augment is the best-effort entry point used during a scrape: it sets the
// record's document path on success and only logs on failure.
func (f *DocumentFetcher) Augment(ctx context.Context, record *Record) bool {
	path, err := f.Fetch(ctx, *record)
	if err != nil {
		slog.WarnContext(ctx, "document not downloaded", "system_number", record.SystemNumber, "err", err)
		return false
	}
	record.DocumentPath = path
	slog.DebugContext(ctx, "document downloaded", "system_number", record.SystemNumber, "path", path)
	return true
}
