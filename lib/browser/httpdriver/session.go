// Package httpdriver implements browser.Session over plain HTTP: pages are
// fetched with resty, rendered into goquery documents, links are followed and
// forms are submitted the way a browser without scripting would.
package httpdriver

import (
	"context"
	"fmt"
	"gop-scraper/lib/browser"
	"gop-scraper/lib/telemetry"
	"net/http/cookiejar"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	// used to resolve the first relative navigation and to restrict redirects
	BaseUrl string
	// bound of every request, including reading the body
	Timeout time.Duration
	// 0 disables pacing
	RequestsPerSecond float64
	UserAgent         string
	CloudflareBypass  bool
}

type Session struct {
	baseUrl *url.URL
	http    *resty.Client
	closed  bool
}

var _ browser.Session = (*Session)(nil)

func NewSession(opts Options) (*Session, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !baseUrl.IsAbs() {
		return nil, fmt.Errorf("base url must be absolute: %q", opts.BaseUrl)
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)
	client.SetHeader("accept-language", "es-AR,es;q=0.9")
	client.SetRedirectPolicy(
		resty.FlexibleRedirectPolicy(10),
		resty.DomainCheckRedirectPolicy(baseUrl.Hostname()),
	)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	if opts.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	telemetry.InstrumentResty(client, "gop.lib.browser.httpdriver/http")

	return &Session{
		baseUrl: baseUrl,
		http:    client,
	}, nil
}

func (s *Session) NewPage(ctx context.Context) (browser.Page, error) {
	if s.closed {
		return nil, browser.ErrSessionClosed
	}
	return &page{session: s, url: s.baseUrl}, nil
}

func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.http.GetClient().CloseIdleConnections()
	return nil
}
