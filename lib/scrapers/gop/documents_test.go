package gop

import (
	"context"
	"errors"
	"fmt"
	"gop-scraper/lib/browser"
	"gop-scraper/lib/browser/httpdriver"
	"gop-scraper/lib/testutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDocumentFetcher(t *testing.T) {
	testutil.Setup(t, testutil.SetupParams{Name: "gop"})

	ok := testutil.SystemNumber(1, 0)
	noLink := testutil.SystemNumber(1, 1)
	failing := testutil.SystemNumber(1, 2)
	portal := testutil.NewPortal(t, testutil.PortalOptions{
		Username:        "arq",
		Password:        "secreto",
		Pages:           1,
		RowsPerPage:     3,
		NoDocument:      map[string]bool{noLink: true},
		FailingDownload: map[string]bool{failing: true},
	})

	ctx := context.Background()
	session := testutil.NewSession(t, portal)
	page, err := session.NewPage(ctx)
	require.NoError(t, err)
	err = Login(ctx, page, portal.LoginUrl(), Credentials{Username: "arq", Password: "secreto"}, DefaultSelectors())
	require.NoError(t, err)
	err = page.Navigate(ctx, portal.TraysUrl())
	require.NoError(t, err)

	records, errs := ExtractRows(ctx, page.Document(), page.URL(), DefaultSelectors(), 1)
	require.Empty(t, errs)
	require.Len(t, records, 3)

	dir := t.TempDir()
	fetcher, err := NewDocumentFetcher(ctx, session, dir, DefaultSelectors().DownloadMarkers)
	require.NoError(t, err)

	path, err := fetcher.Fetch(ctx, records[0])
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, ok, "expediente_"+ok+".pdf"), path)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, testutil.DocumentContents(ok), string(contents))

	_, err = fetcher.Fetch(ctx, records[1])
	var downloadErr *DownloadError
	require.True(t, errors.As(err, &downloadErr))
	require.ErrorIs(t, err, ErrNoDocumentLink)
	require.Equal(t, noLink, downloadErr.SystemNumber)

	require.False(t, fetcher.Augment(ctx, &records[2]))
	require.Empty(t, records[2].DocumentPath)
	_, err = os.Stat(filepath.Join(dir, failing, "expediente_"+failing+".pdf"))
	require.True(t, os.IsNotExist(err))

	_, err = fetcher.Fetch(ctx, Record{SystemNumber: "x"})
	require.ErrorIs(t, err, ErrNoDetailLink)

	// the table page was never navigated away from
	require.Equal(t, testutil.TraysPath, page.URL().Path)
}

func TestDocumentFetcherIgnoresLookalikeActions(t *testing.T) {
	testutil.Setup(t, testutil.SetupParams{Name: "gop"})

	var mu sync.Mutex
	hits := map[string]int{}
	mux := http.NewServeMux()
	handle := func(path string, handler http.HandlerFunc) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			hits[r.URL.Path]++
			mu.Unlock()
			handler(w, r)
		})
	}
	handle("/view", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		switch r.URL.Query().Get("id") {
		case "1":
			fmt.Fprint(w, `<html><body>
				<a href="/formality/discard?id=1">Descartar</a>
				<a href="/files/doc.pdf">Descargar</a>
			</body></html>`)
		case "2":
			fmt.Fprint(w, `<html><body><a href="/formality/discard?id=2">Descartar</a></body></html>`)
		case "3":
			fmt.Fprint(w, `<html><body><a href="/files/expired">Descargar</a></body></html>`)
		}
	})
	handle("/formality/discard", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		fmt.Fprint(w, `<html><body>Expediente descartado</body></html>`)
	})
	handle("/files/doc.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4 doc")
	})
	handle("/files/expired", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		fmt.Fprint(w, `<html><body>Su sesión ha expirado</body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	session, err := httpdriver.NewSession(httpdriver.Options{
		BaseUrl: server.URL,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	ctx := context.Background()
	dir := t.TempDir()
	fetcher, err := NewDocumentFetcher(ctx, session, dir, DefaultSelectors().DownloadMarkers)
	require.NoError(t, err)

	path, err := fetcher.Fetch(ctx, Record{SystemNumber: "1", DetailUrl: server.URL + "/view?id=1"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "1", "doc.pdf"), path)

	_, err = fetcher.Fetch(ctx, Record{SystemNumber: "2", DetailUrl: server.URL + "/view?id=2"})
	require.ErrorIs(t, err, ErrNoDocumentLink)

	_, err = fetcher.Fetch(ctx, Record{SystemNumber: "3", DetailUrl: server.URL + "/view?id=3"})
	var downloadErr *DownloadError
	require.True(t, errors.As(err, &downloadErr))
	require.ErrorIs(t, err, browser.ErrNotAFile)
	_, err = os.Stat(filepath.Join(dir, "3"))
	require.True(t, os.IsNotExist(err))

	mu.Lock()
	defer mu.Unlock()
	require.Zero(t, hits["/formality/discard"])
	require.Equal(t, 1, hits["/files/doc.pdf"])
}

func TestRecordDirName(t *testing.T) {
	cases := []struct {
		in     string
		expect string
	}{
		{in: "1001", expect: "1001"},
		{in: " 12/2024 ", expect: "12_2024"},
		{in: "", expect: "sin_numero"},
		{in: "..", expect: "sin_numero"},
	}
	for _, test := range cases {
		require.Equal(t, test.expect, recordDirName(test.in))
	}
}
