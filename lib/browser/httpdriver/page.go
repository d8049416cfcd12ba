package httpdriver

import (
	"bytes"
	"context"
	"fmt"
	"gop-scraper/lib/browser"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type page struct {
	session *Session
	url     *url.URL
	doc     *goquery.Document
}

func (p *page) resolve(rawUrl string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(rawUrl))
	if err != nil {
		return nil, err
	}
	return p.url.ResolveReference(ref), nil
}

func (p *page) URL() *url.URL {
	copied := *p.url
	return &copied
}

func (p *page) Document() *goquery.Document {
	return p.doc
}

func (p *page) HTML() (string, error) {
	if p.doc == nil {
		return "", browser.ErrNoDocument
	}
	return p.doc.Html()
}

func (p *page) Navigate(ctx context.Context, rawUrl string) error {
	ctx, span := tracer.Start(ctx, "page:Navigate")
	defer span.End()

	if p.session.closed {
		return browser.ErrSessionClosed
	}
	target, err := p.resolve(rawUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve url")
		return err
	}
	span.SetAttributes(attribute.String("url", target.String()))

	res, err := p.session.http.R().
		SetContext(ctx).
		Get(target.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return err
	}
	return p.load(res)
}

func (p *page) load(res *resty.Response) error {
	finalUrl := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	if res.StatusCode() != http.StatusOK {
		return browser.StatusError{Url: finalUrl, Status: res.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	location, err := url.Parse(finalUrl)
	if err != nil {
		return err
	}

	p.doc = doc
	p.url = location
	return nil
}

// the document of a fetched page never changes, so the wait is bounded by
// the navigation that produced it and the lookup is immediate.
func (p *page) WaitForSelector(ctx context.Context, selector string) (*goquery.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.doc == nil {
		return nil, browser.ErrNoDocument
	}
	sel := p.doc.Find(selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrSelectorNotFound, selector)
	}
	return sel, nil
}

func (p *page) Fill(target *goquery.Selection, value string) error {
	if target == nil || target.Length() == 0 {
		return browser.ErrNotFillable
	}
	el := target.First()
	switch goquery.NodeName(el) {
	case "textarea":
		el.SetText(value)
		return nil
	case "input":
		switch inputType(el) {
		case "submit", "image", "button", "reset", "file", "checkbox", "radio":
			return browser.ErrNotFillable
		}
		el.SetAttr("value", value)
		return nil
	}
	return browser.ErrNotFillable
}

func (p *page) Click(ctx context.Context, target *goquery.Selection) error {
	if target == nil || target.Length() == 0 {
		return browser.ErrNotClickable
	}
	el := target.First()

	switch goquery.NodeName(el) {
	case "a":
		href := strings.TrimSpace(el.AttrOr("href", ""))
		if !isFollowableHref(href) {
			return browser.ErrNotClickable
		}
		return p.Navigate(ctx, href)
	case "button":
		if strings.ToLower(el.AttrOr("type", "submit")) != "submit" {
			return browser.ErrNotClickable
		}
	case "input":
		typ := inputType(el)
		if typ != "submit" && typ != "image" {
			return browser.ErrNotClickable
		}
	default:
		return browser.ErrNotClickable
	}

	if _, disabled := el.Attr("disabled"); disabled {
		return browser.ErrNotClickable
	}
	form := owningForm(p.doc, el)
	if form.Length() == 0 {
		return browser.ErrNotClickable
	}
	return p.submit(ctx, form, el)
}

func isFollowableHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(href), "javascript:")
}
