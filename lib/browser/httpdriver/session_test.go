package httpdriver

import (
	"context"
	"errors"
	"fmt"
	"gop-scraper/lib/browser"
	"gop-scraper/lib/telemetry"
	"html"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/form", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<form method="post" action="/submit">
				<input type="hidden" name="_csrf" value="tok">
				<input name="user">
				<textarea name="note"></textarea>
				<select name="kind"><option value="a">A</option><option value="b" selected>B</option></select>
				<input type="checkbox" name="remember" value="1" checked>
				<input type="checkbox" name="skip" value="1">
				<button type="submit" name="go" value="yes">Ingresar</button>
				<button type="button" id="noop">Nada</button>
			</form>
			<a id="next" href="/landing?page=2">next</a>
			<a id="hash" href="#">hash</a>
		</body></html>`)
	})
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: r.PostForm.Get("user")})
		http.Redirect(w, r, fmt.Sprintf(
			"/landing?csrf=%s&note=%s&kind=%s&remember=%s&skip=%s&go=%s",
			r.PostForm.Get("_csrf"),
			r.PostForm.Get("note"),
			r.PostForm.Get("kind"),
			r.PostForm.Get("remember"),
			r.PostForm.Get("skip"),
			r.PostForm.Get("go"),
		), http.StatusFound)
	})
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie("sid"); err == nil {
			sid = c.Value
		}
		fmt.Fprintf(w, `<html><body><p id="sid">%s</p><p id="query">%s</p></body></html>`, sid, html.EscapeString(r.URL.RawQuery))
	})
	mux.HandleFunc("/files/report.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4 fake")
	})
	mux.HandleFunc("/files/attachment", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="plano final.pdf"`)
		fmt.Fprint(w, "%PDF-1.4 other")
	})
	mux.HandleFunc("/files/missing.pdf", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/files/expired", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		fmt.Fprint(w, `<html><body><p>Su sesión ha expirado</p></body></html>`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestPage(t *testing.T, server *httptest.Server) (*Session, browser.Page) {
	session, err := NewSession(Options{
		BaseUrl: server.URL,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	page, err := session.NewPage(context.Background())
	require.NoError(t, err)
	return session, page
}

func TestFormSubmit(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:httpdriver")
	defer cleanup()

	ctx := context.Background()
	server := newTestServer(t)
	_, page := newTestPage(t, server)

	require.NoError(t, page.Navigate(ctx, "/form"))

	user, err := page.WaitForSelector(ctx, `input[name="user"]`)
	require.NoError(t, err)
	require.NoError(t, page.Fill(user, "alice"))

	note, err := page.WaitForSelector(ctx, "textarea")
	require.NoError(t, err)
	require.NoError(t, page.Fill(note, "hola"))

	noop, err := page.WaitForSelector(ctx, "#noop")
	require.NoError(t, err)
	require.ErrorIs(t, page.Click(ctx, noop), browser.ErrNotClickable)

	submit, err := page.WaitForSelector(ctx, `button[type="submit"]`)
	require.NoError(t, err)
	require.NoError(t, page.Click(ctx, submit))

	require.Equal(t, "/landing", page.URL().Path)
	require.Equal(t, "alice", page.Document().Find("#sid").Text())
	require.Equal(
		t,
		"csrf=tok&note=hola&kind=b&remember=1&skip=&go=yes",
		page.Document().Find("#query").Text(),
	)
}

func TestClickAnchor(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)
	_, page := newTestPage(t, server)

	require.NoError(t, page.Navigate(ctx, server.URL+"/form"))

	hash, err := page.WaitForSelector(ctx, "#hash")
	require.NoError(t, err)
	require.ErrorIs(t, page.Click(ctx, hash), browser.ErrNotClickable)

	next, err := page.WaitForSelector(ctx, "#next")
	require.NoError(t, err)
	require.NoError(t, page.Click(ctx, next))
	require.Equal(t, "page=2", page.URL().RawQuery)

	_, err = page.WaitForSelector(ctx, "#next")
	require.ErrorIs(t, err, browser.ErrSelectorNotFound)
}

func TestNavigateStatus(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)
	_, page := newTestPage(t, server)

	err := page.Navigate(ctx, "/nowhere")
	var statusErr browser.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.Status)
	require.Nil(t, page.Document())
}

func TestDownload(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)
	_, page := newTestPage(t, server)
	dir := filepath.Join(t.TempDir(), "downloads", "1234")

	path, err := page.Download(ctx, "/files/report.pdf", dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "report.pdf"), path)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake", string(contents))

	path, err = page.Download(ctx, "/files/attachment", dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "plano final.pdf"), path)

	_, err = page.Download(ctx, "/files/missing.pdf", dir)
	var statusErr browser.StatusError
	require.True(t, errors.As(err, &statusErr))

	_, err = page.Download(ctx, "/files/expired", dir)
	require.ErrorIs(t, err, browser.ErrNotAFile)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2, "failed downloads must not leave files behind")
}

func TestClosedSession(t *testing.T) {
	server := newTestServer(t)
	session, page := newTestPage(t, server)
	require.NoError(t, session.Close())

	require.ErrorIs(t, page.Navigate(context.Background(), "/form"), browser.ErrSessionClosed)
	_, err := session.NewPage(context.Background())
	require.ErrorIs(t, err, browser.ErrSessionClosed)
}

func TestDownloadFilename(t *testing.T) {
	now := time.Unix(1700000000, 0)
	header := http.Header{}
	require.Equal(t, "a.pdf", downloadFilename(header, "/x/a.pdf", now))
	require.Equal(t, "archivo_1700000000.pdf", downloadFilename(header, "/x/download", now))

	header.Set("Content-Disposition", `attachment; filename="..\..\evil.pdf"`)
	require.Equal(t, "evil.pdf", downloadFilename(header, "/x/download", now))
}
