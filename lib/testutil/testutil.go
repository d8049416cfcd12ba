package testutil

import (
	"database/sql"
	"fmt"
	"gop-scraper/lib/browser/httpdriver"
	"gop-scraper/lib/telemetry"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

type SetupParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type SetupResult struct {
	DB *sql.DB
}

// Setup initializes telemetry for a test and optionally an sqlite database
// with the given schema applied.
func Setup(t testing.TB, params SetupParams) SetupResult {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))
	t.Cleanup(cleanup)

	if params.DbSchema == "" {
		return SetupResult{}
	}

	dbpath := ":memory:"
	if params.DbPath != "" {
		dbpath = params.DbPath
	}
	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(params.DbSchema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		t.Fatal(err)
	}
	return SetupResult{DB: db}
}

// NewSession opens an http browsing session against the portal.
func NewSession(t testing.TB, portal *Portal) *httpdriver.Session {
	session, err := httpdriver.NewSession(httpdriver.Options{
		BaseUrl: portal.URL,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}
