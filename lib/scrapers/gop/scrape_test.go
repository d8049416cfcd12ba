package gop

import (
	"context"
	"errors"
	"gop-scraper/lib/browser"
	"gop-scraper/lib/testutil"
	"testing"

	"github.com/stretchr/testify/require"
)

func scrapeOptions(portal *testutil.Portal, password string) Options {
	return Options{
		LoginUrl:    portal.LoginUrl(),
		TraysUrl:    portal.TraysUrl(),
		Credentials: Credentials{Username: "arq", Password: password},
		Selectors:   DefaultSelectors(),
	}
}

func TestScrape(t *testing.T) {
	testutil.Setup(t, testutil.SetupParams{Name: "gop"})
	portal := testutil.NewPortal(t, testutil.PortalOptions{
		Username:    "arq",
		Password:    "secreto",
		Pages:       2,
		RowsPerPage: 10,
		BrokenRows:  map[int][]int{2: {4}},
		FailingDownload: map[string]bool{
			testutil.SystemNumber(1, 3): true,
		},
	})

	opts := scrapeOptions(portal, "secreto")
	opts.DownloadDocuments = true
	opts.DownloadDir = t.TempDir()

	result, err := Scrape(context.Background(), testutil.NewSession(t, portal), opts)
	require.NoError(t, err)
	require.True(t, result.Started)
	require.NoError(t, result.Stopped)
	require.Equal(t, 2, result.Pages)
	require.Equal(t, 1, result.Skipped)
	require.Len(t, result.Records, 19)
	require.Equal(t, 18, result.Documents)

	seen := map[string]bool{}
	for i, r := range result.Records {
		require.False(t, seen[r.SystemNumber], "duplicate %s", r.SystemNumber)
		seen[r.SystemNumber] = true
		if r.SystemNumber == testutil.SystemNumber(1, 3) {
			require.Empty(t, r.DocumentPath)
			continue
		}
		require.NotEmpty(t, r.DocumentPath, "record %d", i)
	}
	require.Equal(t, testutil.SystemNumber(1, 0), result.Records[0].SystemNumber)
	require.Equal(t, testutil.SystemNumber(2, 9), result.Records[18].SystemNumber)
}

func TestScrapeWithoutDocuments(t *testing.T) {
	testutil.Setup(t, testutil.SetupParams{Name: "gop"})
	portal := testutil.NewPortal(t, testutil.PortalOptions{
		Username:    "arq",
		Password:    "secreto",
		Pages:       2,
		RowsPerPage: 3,
	})

	result, err := Scrape(context.Background(), testutil.NewSession(t, portal), scrapeOptions(portal, "secreto"))
	require.NoError(t, err)
	require.Len(t, result.Records, 6)
	require.Zero(t, portal.Requests(testutil.DetailPath))
	require.Zero(t, portal.Requests(testutil.DownloadPath))
}

func TestScrapeRejectedLogin(t *testing.T) {
	testutil.Setup(t, testutil.SetupParams{Name: "gop"})
	portal := testutil.NewPortal(t, testutil.PortalOptions{
		Username:    "arq",
		Password:    "secreto",
		Pages:       1,
		RowsPerPage: 3,
	})

	var snapshots []string
	opts := scrapeOptions(portal, "incorrecta")
	opts.Snapshot = func(_ context.Context, name string, _ browser.Page) {
		snapshots = append(snapshots, name)
	}

	result, err := Scrape(context.Background(), testutil.NewSession(t, portal), opts)
	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr), "expected AuthenticationError, got %v", err)
	require.False(t, result.Started)
	require.Empty(t, result.Records)
	require.Equal(t, []string{"login_screen"}, snapshots)
	require.Zero(t, portal.Requests(testutil.TraysPath))
}

func TestScrapeEmptyTable(t *testing.T) {
	testutil.Setup(t, testutil.SetupParams{Name: "gop"})
	portal := testutil.NewPortal(t, testutil.PortalOptions{
		Username: "arq",
		Password: "secreto",
	})

	var snapshots []string
	opts := scrapeOptions(portal, "secreto")
	opts.Snapshot = func(_ context.Context, name string, _ browser.Page) {
		snapshots = append(snapshots, name)
	}

	result, err := Scrape(context.Background(), testutil.NewSession(t, portal), opts)
	require.NoError(t, err)
	require.True(t, result.Started)
	require.Empty(t, result.Records)
	require.Equal(t, []string{"my_trays_screen"}, snapshots)

	var detectErr *PaginationDetectionError
	require.True(t, errors.As(result.Stopped, &detectErr))
}
