package testutil

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const (
	LoginPath    = "/frontend/web/site/login"
	TraysPath    = "/frontend/web/formality/index-all"
	DetailPath   = "/frontend/web/formality/view"
	DownloadPath = "/frontend/web/formality/download"

	sessionCookie = "PHPSESSID"
	csrfToken     = "csrf-token-value"
)

type LastPageStyle int

const (
	// the last page renders <li class="next disabled"><span>&raquo;</span></li>
	LastPageDisabled LastPageStyle = iota
	// the last page renders no next control at all
	LastPageAbsent
)

// PortalOptions describes the fake GOP portal served by NewPortal.
type PortalOptions struct {
	Username string
	Password string

	Pages       int
	RowsPerPage int
	LastPage    LastPageStyle
	// renders the table without any pagination markup
	NoPaginator bool

	// page -> row indexes (0 based) rendered with missing columns
	BrokenRows map[int][]int
	// system numbers whose detail page has no document link
	NoDocument map[string]bool
	// system numbers whose document download answers 500
	FailingDownload map[string]bool
	// grid pages that answer 500
	FailingPages map[int]bool
}

// Portal is an httptest server mimicking the Yii based GOP portal: a login
// form with a csrf token, a paginated grid of records and detail pages with
// document links.
type Portal struct {
	*httptest.Server
	opts PortalOptions

	mu       sync.Mutex
	requests map[string]int
	logins   int
}

func NewPortal(t testing.TB, opts PortalOptions) *Portal {
	p := &Portal{opts: opts, requests: map[string]int{}}

	mux := http.NewServeMux()
	mux.HandleFunc(LoginPath, p.login)
	mux.HandleFunc("/frontend/web/site/index", p.authenticated(p.home))
	mux.HandleFunc(TraysPath, p.authenticated(p.trays))
	mux.HandleFunc(DetailPath, p.authenticated(p.detail))
	mux.HandleFunc(DownloadPath, p.authenticated(p.download))

	p.Server = httptest.NewServer(p.count(mux))
	t.Cleanup(p.Server.Close)
	return p
}

func (p *Portal) LoginUrl() string { return p.URL + LoginPath }
func (p *Portal) TraysUrl() string { return p.URL + TraysPath }

// Requests returns how many requests hit the given path.
func (p *Portal) Requests(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[path]
}

// LoginAttempts counts credential submissions.
func (p *Portal) LoginAttempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logins
}

// SystemNumber is the nro_sistema rendered for a row, pages are 1 based.
func SystemNumber(page, row int) string {
	return fmt.Sprintf("%d%03d", page, row)
}

func (p *Portal) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.requests[r.URL.Path]++
		p.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (p *Portal) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value != "ok" {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		next(w, r)
	}
}

const loginTemplate = `<!DOCTYPE html>
<html><head><title>Ingreso</title></head><body>
<form id="login-form" action="%s" method="post">
	<input type="hidden" name="_csrf-frontend" value="%s">
	<div class="form-group field-loginform-username required">
		<label class="control-label" for="loginform-username">Nombre de Usuario</label>
		<input type="text" id="loginform-username" class="form-control" name="LoginForm[username]" placeholder="Nombre de Usuario">
	</div>
	<div class="form-group field-loginform-password required">
		<label class="control-label" for="loginform-password">Contraseña</label>
		<input type="password" id="loginform-password" class="form-control" name="LoginForm[password]">
		<p class="help-block help-block-error">%s</p>
	</div>
	<button type="submit" class="btn btn-primary" name="login-button">Ingresar</button>
</form>
</body></html>`

func (p *Portal) renderLogin(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	fmt.Fprintf(w, loginTemplate, LoginPath, csrfToken, html.EscapeString(message))
}

func (p *Portal) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		p.renderLogin(w, "")
		return
	}

	p.mu.Lock()
	p.logins++
	p.mu.Unlock()

	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("_csrf-frontend") != csrfToken {
		http.Error(w, "Bad Request: invalid csrf", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("LoginForm[username]") != p.opts.Username ||
		r.PostForm.Get("LoginForm[password]") != p.opts.Password {
		p.renderLogin(w, "Usuario o contraseña incorrectos.")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "ok", Path: "/"})
	http.Redirect(w, r, "/frontend/web/site/index", http.StatusFound)
}

func (p *Portal) home(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, `<html><body><nav><a href="%s">Mis Bandejas</a></nav><h1>Bienvenido</h1></body></html>`, TraysPath)
}

func (p *Portal) isBroken(page, row int) bool {
	for _, r := range p.opts.BrokenRows[page] {
		if r == row {
			return true
		}
	}
	return false
}

func (p *Portal) trays(w http.ResponseWriter, r *http.Request) {
	pageNo := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > p.opts.Pages {
			http.NotFound(w, r)
			return
		}
		pageNo = n
	}
	if p.opts.FailingPages[pageNo] {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var body strings.Builder
	body.WriteString(`<!DOCTYPE html><html><body><h1>Mis Bandejas</h1><div id="w0" class="grid-view">`)
	body.WriteString(`<table class="table table-striped table-bordered"><thead><tr>`)
	for _, h := range []string{"Nro Sistema", "Expediente", "Estado", "Profesional", "Nomenclatura", "Bandeja Actual", "Fecha Entrada", "Usuario Asignado", ""} {
		fmt.Fprintf(&body, "<th>%s</th>", h)
	}
	body.WriteString(`</tr></thead><tbody>`)

	if p.opts.Pages == 0 || p.opts.RowsPerPage == 0 {
		body.WriteString(`<tr><td colspan="9"><div class="empty">No se encontraron resultados.</div></td></tr>`)
	}
	for row := 0; row < p.opts.RowsPerPage && p.opts.Pages > 0; row++ {
		number := SystemNumber(pageNo, row)
		if p.isBroken(pageNo, row) {
			fmt.Fprintf(&body, `<tr data-key="%s"><td>%s</td><td>EXP-%s</td></tr>`, number, number, number)
			continue
		}
		fmt.Fprintf(
			&body,
			`<tr data-key="%[1]s"><td>%[1]s</td><td>EXP-%[1]s/2024</td><td>En revisión</td><td>Arq. Pérez</td>`+
				`<td>NC-%[1]s</td><td>Visado</td><td>2024-05-%02[2]d</td><td>jgomez</td>`+
				`<td><a href="%[3]s?id=%[1]s" title="Ver"><span class="glyphicon glyphicon-eye-open"></span></a></td></tr>`,
			number, row+1, DetailPath,
		)
	}
	body.WriteString(`</tbody></table>`)

	if !p.opts.NoPaginator && p.opts.Pages > 0 {
		body.WriteString(p.pager(pageNo))
	}
	body.WriteString(`</div></body></html>`)

	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	fmt.Fprint(w, body.String())
}

func pageHref(n int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(n))
	return TraysPath + "?" + q.Encode()
}

func (p *Portal) pager(current int) string {
	var out strings.Builder
	out.WriteString(`<ul class="pagination">`)
	if current == 1 {
		out.WriteString(`<li class="prev disabled"><span>&laquo;</span></li>`)
	} else {
		fmt.Fprintf(&out, `<li class="prev"><a href="%s" data-page="%d">&laquo;</a></li>`, pageHref(current-1), current-2)
	}
	for n := 1; n <= p.opts.Pages; n++ {
		class := ""
		if n == current {
			class = ` class="active"`
		}
		fmt.Fprintf(&out, `<li%s><a href="%s" data-page="%d">%d</a></li>`, class, pageHref(n), n-1, n)
	}
	switch {
	case current < p.opts.Pages:
		fmt.Fprintf(&out, `<li class="next"><a href="%s" data-page="%d">&raquo;</a></li>`, pageHref(current+1), current)
	case p.opts.LastPage == LastPageDisabled:
		out.WriteString(`<li class="next disabled"><span>&raquo;</span></li>`)
	}
	out.WriteString(`</ul>`)
	return out.String()
}

func (p *Portal) detail(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")

	links := `<a href="` + TraysPath + `">Volver</a>`
	if !p.opts.NoDocument[id] {
		links += fmt.Sprintf(`<a class="btn" href="%s?id=%s">Descargar PDF</a>`, DownloadPath, url.QueryEscape(id))
	}
	fmt.Fprintf(w, `<html><body><h1>Expediente %s</h1><p>Detalle</p>%s</body></html>`, html.EscapeString(id), links)
}

// DocumentContents is the body served for a record's document.
func DocumentContents(systemNumber string) string {
	return "%PDF-1.4 expediente " + systemNumber
}

func (p *Portal) download(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if p.opts.FailingDownload[id] {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="expediente_%s.pdf"`, id))
	fmt.Fprint(w, DocumentContents(id))
}
