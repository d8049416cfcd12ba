package gop

import (
	"context"
	"fmt"
	"gop-scraper/lib/htmlutil"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// column order of the "Mis Bandejas" grid
const (
	colSystemNumber = iota
	colFileNumber
	colStatus
	colProfessional
	colNomenclature
	colCurrentTray
	colEntryDate
	colAssignedUser
	colDetail

	requiredColumns = colAssignedUser + 1
)

// ExtractRows maps the visible rows of a table page to records, in row
// order. rows that cannot be mapped are reported as ExtractionErrors and
// left out, they never affect their siblings.
func ExtractRows(ctx context.Context, doc *goquery.Document, base *url.URL, selectors Selectors, pageIndex int) ([]Record, []*ExtractionError) {
	ctx, span := tracer.Start(ctx, "ExtractRows")
	defer span.End()

	var records []Record
	var errs []*ExtractionError

	doc.Find(selectors.TableRows).Each(func(i int, row *goquery.Selection) {
		// the grid renders a single placeholder row when it has no data
		if selectors.EmptyTable != "" && row.Find(selectors.EmptyTable).Length() > 0 {
			return
		}

		record, err := extractRow(ctx, row, base)
		if err != nil {
			errs = append(errs, &ExtractionError{
				Page:   pageIndex,
				Row:    i + 1,
				Reason: err.Error(),
			})
			return
		}
		records = append(records, record)
	})

	span.SetAttributes(
		attribute.Int("page", pageIndex),
		attribute.Int("records", len(records)),
		attribute.Int("skipped", len(errs)),
	)
	recordsExtracted.Add(ctx, int64(len(records)))
	rowsSkipped.Add(ctx, int64(len(errs)))

	return records, errs
}

func extractRow(ctx context.Context, row *goquery.Selection, base *url.URL) (Record, error) {
	cells := row.ChildrenFiltered("td")
	if cells.Length() < requiredColumns {
		return Record{}, fmt.Errorf("expected at least %d columns, got %d", requiredColumns, cells.Length())
	}
	cell := func(i int) string {
		return htmlutil.VisibleText(cells.Eq(i))
	}

	record := Record{
		SystemNumber: cell(colSystemNumber),
		FileNumber:   cell(colFileNumber),
		Status:       cell(colStatus),
		Professional: cell(colProfessional),
		Nomenclature: cell(colNomenclature),
		CurrentTray:  cell(colCurrentTray),
		EntryDate:    cell(colEntryDate),
		AssignedUser: cell(colAssignedUser),
	}
	if record.SystemNumber == "" && record.FileNumber == "" {
		return Record{}, fmt.Errorf("row has neither a system number nor a file number")
	}

	if cells.Length() > colDetail {
		anchors := htmlutil.GetAnchors(ctx, base, cells.Eq(colDetail).Find("a[href]"))
		for _, a := range anchors {
			if isFollowable(a.Selection.AttrOr("href", "")) {
				record.DetailUrl = a.Href
				break
			}
		}
	}

	return record, nil
}

func isFollowable(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(href), "javascript:")
}
