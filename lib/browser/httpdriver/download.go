package httpdriver

import (
	"context"
	"errors"
	"fmt"
	"gop-scraper/lib/browser"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// filename for a download, preferring Content-Disposition, then the last
// segment of the url path.
func downloadFilename(header http.Header, urlPath string, now time.Time) string {
	if disposition := header.Get("Content-Disposition"); disposition != "" {
		_, params, err := mime.ParseMediaType(disposition)
		if err == nil {
			if name := sanitizeFilename(params["filename"]); name != "" {
				return name
			}
		}
	}
	if name := sanitizeFilename(path.Base(urlPath)); name != "" && path.Ext(name) != "" {
		return name
	}
	return fmt.Sprintf("archivo_%d.pdf", now.Unix())
}

func isWebPage(header http.Header) bool {
	mediaType, _, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(path.Base(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

func (p *page) Download(ctx context.Context, rawUrl string, dir string) (string, error) {
	ctx, span := tracer.Start(ctx, "page:Download")
	defer span.End()

	if p.session.closed {
		return "", browser.ErrSessionClosed
	}
	target, err := p.resolve(rawUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve url")
		return "", err
	}
	span.SetAttributes(attribute.String("url", target.String()))

	res, err := p.session.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(target.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return "", err
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() != http.StatusOK {
		err := browser.StatusError{Url: target.String(), Status: res.StatusCode()}
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if isWebPage(res.Header()) {
		err := fmt.Errorf("%w: %s served %s", browser.ErrNotAFile, target.String(), res.Header().Get("Content-Type"))
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	err = os.MkdirAll(dir, 0777)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create download dir")
		return "", err
	}
	filename := downloadFilename(res.Header(), target.Path, time.Now())
	destination := filepath.Join(dir, filename)

	// written under a temporary name so an interrupted stream never leaves
	// a truncated file at the destination
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create temp file")
		return "", err
	}
	n, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(tmp.Name())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write download")
		return "", err
	}
	if res.RawResponse.ContentLength > 0 && n != res.RawResponse.ContentLength {
		os.Remove(tmp.Name())
		err := fmt.Errorf("download truncated: got %d of %d bytes", n, res.RawResponse.ContentLength)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	err = os.Rename(tmp.Name(), destination)
	if err != nil {
		os.Remove(tmp.Name())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to move download into place")
		return "", err
	}
	span.SetAttributes(attribute.Int64("bytes", n))
	return destination, nil
}
