package httpdriver

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func inputType(el *goquery.Selection) string {
	return strings.ToLower(el.AttrOr("type", "text"))
}

// the form a control belongs to, honoring the `form` attribute
func owningForm(doc *goquery.Document, el *goquery.Selection) *goquery.Selection {
	if id := el.AttrOr("form", ""); id != "" && doc != nil {
		form := doc.Find("form").FilterFunction(func(_ int, f *goquery.Selection) bool {
			return f.AttrOr("id", "") == id
		})
		if form.Length() > 0 {
			return form.First()
		}
	}
	return el.Closest("form")
}

// serializes the successful controls of a form, in document order, plus the
// control used to submit it.
func formValues(form, submitter *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input, select, textarea").Each(func(_ int, el *goquery.Selection) {
		name := el.AttrOr("name", "")
		if name == "" {
			return
		}
		if _, disabled := el.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(el) {
		case "input":
			switch inputType(el) {
			case "submit", "image", "button", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := el.Attr("checked"); !checked {
					return
				}
				values.Add(name, el.AttrOr("value", "on"))
			default:
				values.Add(name, el.AttrOr("value", ""))
			}
		case "textarea":
			values.Add(name, el.Text())
		case "select":
			option := el.Find("option[selected]").First()
			if option.Length() == 0 {
				option = el.Find("option").First()
			}
			if option.Length() == 0 {
				return
			}
			value, ok := option.Attr("value")
			if !ok {
				value = strings.TrimSpace(option.Text())
			}
			values.Add(name, value)
		}
	})

	if submitter != nil {
		if name := submitter.AttrOr("name", ""); name != "" {
			values.Add(name, submitter.AttrOr("value", ""))
		}
	}
	return values
}

func (p *page) submit(ctx context.Context, form, submitter *goquery.Selection) error {
	ctx, span := tracer.Start(ctx, "page:submit")
	defer span.End()

	action, err := p.resolve(form.AttrOr("action", ""))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve form action")
		return err
	}
	method := strings.ToUpper(form.AttrOr("method", "GET"))
	values := formValues(form, submitter)

	span.SetAttributes(
		attribute.String("url", action.String()),
		attribute.String("method", method),
	)

	req := p.session.http.R().SetContext(ctx)
	if method == "POST" {
		res, err := req.SetFormDataFromValues(values).Post(action.String())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to submit form")
			return err
		}
		return p.load(res)
	}

	action.RawQuery = values.Encode()
	res, err := req.Get(action.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit form")
		return err
	}
	return p.load(res)
}
