package gop

import (
	"context"
	"errors"
	"gop-scraper/lib/browser"
	"gop-scraper/lib/htmlutil"
	"gop-scraper/lib/textutil"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

type Credentials struct {
	Username string
	Password string
}

// finds a form field by trying the css selectors in order, then a <label>
// whose text matches `label`, then an input whose placeholder matches
// `placeholder`.
func findField(ctx context.Context, page browser.Page, selectors []string, label, placeholder string) *goquery.Selection {
	for _, selector := range selectors {
		sel, err := page.WaitForSelector(ctx, selector)
		if err == nil {
			return sel.First()
		}
	}

	doc := page.Document()
	if doc == nil {
		return nil
	}

	if label != "" {
		var found *goquery.Selection
		doc.Find("label").EachWithBreak(func(_ int, l *goquery.Selection) bool {
			if !textutil.MatchLabel(htmlutil.VisibleText(l), []string{label}) {
				return true
			}
			if id := l.AttrOr("for", ""); id != "" {
				target := doc.Find("input, textarea").FilterFunction(func(_ int, s *goquery.Selection) bool {
					return s.AttrOr("id", "") == id
				})
				if target.Length() > 0 {
					found = target.First()
					return false
				}
			}
			if nested := l.Find("input"); nested.Length() > 0 {
				found = nested.First()
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}

	if placeholder != "" {
		target := doc.Find("input[placeholder]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return textutil.MatchLabel(s.AttrOr("placeholder", ""), []string{placeholder})
		})
		if target.Length() > 0 {
			return target.First()
		}
	}

	return nil
}

func findSubmit(ctx context.Context, page browser.Page, form *goquery.Selection, selectors Selectors) *goquery.Selection {
	for _, selector := range selectors.LoginSubmit {
		if form != nil && form.Length() > 0 {
			scoped := form.Find(selector)
			if scoped.Length() > 0 {
				return scoped.First()
			}
			continue
		}
		sel, err := page.WaitForSelector(ctx, selector)
		if err == nil {
			return sel.First()
		}
	}

	doc := page.Document()
	if doc == nil {
		return nil
	}
	candidates := doc.Find("button, input[type=submit]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		text := htmlutil.VisibleText(s)
		if goquery.NodeName(s) == "input" {
			text = s.AttrOr("value", "")
		}
		return textutil.MatchLabel(text, selectors.SubmitLabels)
	})
	if candidates.Length() == 0 {
		return nil
	}
	return candidates.First()
}

func samePath(a, b *url.URL) bool {
	return strings.TrimSuffix(a.Path, "/") == strings.TrimSuffix(b.Path, "/")
}

// Login submits the credentials on the login page and verifies that the
// portal let us in. the page is left on whatever the portal redirected to.
func Login(ctx context.Context, page browser.Page, loginUrl string, creds Credentials, selectors Selectors) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	if creds.Username == "" || creds.Password == "" {
		err := &AuthenticationError{Reason: "missing credentials"}
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err := page.Navigate(ctx, loginUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open login page")
		return &NavigationError{Url: loginUrl, Err: err}
	}
	loginLocation := page.URL()

	userField := findField(ctx, page, selectors.LoginUser, selectors.UserLabel, selectors.UserPlaceholder)
	passField := findField(ctx, page, selectors.LoginPassword, selectors.PasswordLabel, selectors.PasswordPlaceholder)
	if userField == nil || passField == nil {
		err := &AuthenticationError{Reason: "could not locate the login form fields"}
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err = errors.Join(
		page.Fill(userField, creds.Username),
		page.Fill(passField, creds.Password),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fill login form")
		return &AuthenticationError{Reason: "could not fill the login form", Err: err}
	}

	submit := findSubmit(ctx, page, passField.Closest("form"), selectors)
	if submit == nil {
		err := &AuthenticationError{Reason: "could not locate the login submit control"}
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	slog.DebugContext(ctx, "submitting login form", "url", loginLocation.String())
	err = page.Click(ctx, submit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit login form")
		return &AuthenticationError{Reason: "login submission did not complete", Err: err}
	}

	err = verifyLogin(ctx, page, loginLocation, selectors)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// a login succeeded when the password field is gone and either the portal
// moved away from the login path or the record table is already visible.
func verifyLogin(ctx context.Context, page browser.Page, loginLocation *url.URL, selectors Selectors) error {
	doc := page.Document()
	if doc == nil {
		return &AuthenticationError{Reason: "no page after login"}
	}

	passwordStillThere := false
	for _, selector := range selectors.LoginPassword {
		if doc.Find(selector).Length() > 0 {
			passwordStillThere = true
			break
		}
	}
	onLoginPath := samePath(page.URL(), loginLocation)
	tableVisible := doc.Find(selectors.TableRows).Length() > 0

	if !passwordStillThere && (!onLoginPath || tableVisible) {
		slog.InfoContext(ctx, "logged in", "landing", page.URL().String())
		return nil
	}

	reason := "credentials rejected"
	if selectors.LoginErrors != "" {
		message := htmlutil.VisibleText(doc.Find(selectors.LoginErrors))
		if message != "" {
			reason = "credentials rejected: " + message
		}
	}
	return &AuthenticationError{Reason: reason}
}
