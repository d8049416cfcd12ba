package gop

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const rowsFixture = `<table><tbody>
<tr>
	<td>1001</td><td>EXP-1/2024</td><td>En revisión</td><td>Arq. Pérez</td>
	<td>NC-1</td><td>Visado</td><td>2024-05-01</td><td>jgomez</td>
	<td><a href="view?id=1001"><span class="glyphicon"></span></a></td>
</tr>
<tr><td>1002</td><td>EXP-2/2024</td></tr>
<tr>
	<td></td><td>  </td><td>x</td><td>x</td><td>x</td><td>x</td><td>x</td><td>x</td><td></td>
</tr>
<tr>
	<td>1004</td><td>EXP-4/2024</td><td>Aprobado</td><td>Ing.  Ruiz</td>
	<td>NC-4</td><td>Archivo</td><td>02/05/2024</td><td>mlopez</td>
	<td><a href="#">-</a><a href="javascript:void(0)">-</a></td>
</tr>
</tbody></table>`

func TestExtractRows(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rowsFixture))
	require.NoError(t, err)
	base, err := url.Parse("https://portal.example/frontend/web/formality/index-all")
	require.NoError(t, err)

	records, errs := ExtractRows(context.Background(), doc, base, DefaultSelectors(), 3)

	expected := []Record{
		{
			SystemNumber: "1001",
			FileNumber:   "EXP-1/2024",
			Status:       "En revisión",
			Professional: "Arq. Pérez",
			Nomenclature: "NC-1",
			CurrentTray:  "Visado",
			EntryDate:    "2024-05-01",
			AssignedUser: "jgomez",
			DetailUrl:    "https://portal.example/frontend/web/formality/view?id=1001",
		},
		{
			SystemNumber: "1004",
			FileNumber:   "EXP-4/2024",
			Status:       "Aprobado",
			Professional: "Ing. Ruiz",
			Nomenclature: "NC-4",
			CurrentTray:  "Archivo",
			EntryDate:    "02/05/2024",
			AssignedUser: "mlopez",
		},
	}
	if diff := cmp.Diff(expected, records); diff != "" {
		t.Fatal(diff)
	}

	require.Len(t, errs, 2)
	require.Equal(t, 3, errs[0].Page)
	require.Equal(t, 2, errs[0].Row)
	require.Equal(t, 3, errs[1].Row)
}

func TestExtractRowsEmptyTable(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tbody><tr><td colspan="9"><div class="empty">No se encontraron resultados.</div></td></tr></tbody></table>`,
	))
	require.NoError(t, err)

	records, errs := ExtractRows(context.Background(), doc, &url.URL{}, DefaultSelectors(), 1)
	require.Empty(t, records)
	require.Empty(t, errs)
}
