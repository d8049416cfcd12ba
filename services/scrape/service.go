package scrape

import (
	"context"
	"errors"
	"fmt"
	"gop-scraper/internal/config"
	"gop-scraper/lib/browser"
	"gop-scraper/lib/browser/httpdriver"
	"gop-scraper/lib/export"
	"gop-scraper/lib/scrapers/gop"
	"gop-scraper/lib/telemetry"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("gop.services.scrape")

type Summary struct {
	Pages     int
	Records   int
	Skipped   int
	Documents int
	// empty when nothing was exported
	ExportPath string
	// why traversal ended early, if it did
	Stopped  error
	Duration time.Duration
}

// Run performs one full scrape: login, traversal, optional document
// downloads and the export. records collected before a failure that happens
// after the table was reached are still exported, the failure is returned
// alongside the summary.
func Run(ctx context.Context, cfg config.Config) (Summary, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	start := time.Now()
	summary := Summary{}

	loginUrl, err := cfg.LoginUrl()
	if err != nil {
		return summary, err
	}
	traysUrl, err := cfg.TraysUrl()
	if err != nil {
		return summary, err
	}

	slog.InfoContext(ctx, "starting scrape", configAttrs(cfg)...)
	if !cfg.IsHeadless() {
		slog.InfoContext(ctx, "headed mode was requested but the http driver renders no window, running headless")
	}

	session, err := httpdriver.NewSession(httpdriver.Options{
		BaseUrl:           cfg.BaseUrl,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		CloudflareBypass:  cfg.CloudflareBypass,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create session")
		return summary, err
	}
	defer session.Close()

	result, scrapeErr := gop.Scrape(ctx, session, gop.Options{
		LoginUrl: loginUrl,
		TraysUrl: traysUrl,
		Credentials: gop.Credentials{
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Selectors:         cfg.Selectors,
		DownloadDocuments: cfg.ShouldDownloadPdfs(),
		DownloadDir:       cfg.DownloadDir,
		Snapshot:          snapshotWriter(cfg.SnapshotDir),
	})

	summary.Pages = result.Pages
	summary.Records = len(result.Records)
	summary.Skipped = result.Skipped
	summary.Documents = result.Documents
	summary.Stopped = result.Stopped

	if result.Started {
		batch := export.NewBatch(cfg.OutputDir)
		batch.Append(result.Records...)
		path, err := batch.Flush(ctx)
		if err != nil {
			scrapeErr = errors.Join(scrapeErr, fmt.Errorf("export: %w", err))
		}
		summary.ExportPath = path
	}
	summary.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("records", summary.Records),
		attribute.String("export", summary.ExportPath),
	)
	if scrapeErr != nil {
		span.RecordError(scrapeErr)
		span.SetStatus(codes.Error, "scrape failed")
		return summary, scrapeErr
	}
	return summary, nil
}

// log attributes for a run, credentials masked
func configAttrs(cfg config.Config) []any {
	return []any{
		"base_url", cfg.BaseUrl,
		"username", telemetry.Mask(cfg.Username, 2),
		"password", telemetry.Mask(cfg.Password, 0),
		"download_pdfs", cfg.ShouldDownloadPdfs(),
		"headless", cfg.IsHeadless(),
	}
}

// writes the page's html to <dir>/<name>.html, failures are only logged
func snapshotWriter(dir string) func(ctx context.Context, name string, page browser.Page) {
	if dir == "" {
		return nil
	}
	return func(ctx context.Context, name string, page browser.Page) {
		// a login that failed after filling still carries the password
		if doc := page.Document(); doc != nil {
			doc.Find(`input[type="password"]`).RemoveAttr("value")
		}
		contents, err := page.HTML()
		if err != nil {
			slog.WarnContext(ctx, "could not render diagnostic snapshot", "name", name, "err", err)
			return
		}
		err = os.MkdirAll(dir, 0777)
		if err != nil {
			slog.WarnContext(ctx, "could not create snapshot dir", "dir", dir, "err", err)
			return
		}
		path := filepath.Join(dir, name+".html")
		err = os.WriteFile(path, []byte(contents), 0666)
		if err != nil {
			slog.WarnContext(ctx, "could not write diagnostic snapshot", "path", path, "err", err)
			return
		}
		slog.InfoContext(ctx, "wrote diagnostic snapshot", "path", path, "url", page.URL().String())
	}
}
