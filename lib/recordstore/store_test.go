package recordstore

import (
	"context"
	"gop-scraper/lib/scrapers/gop"
	"gop-scraper/lib/testutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseEntryDate(t *testing.T) {
	cases := []struct {
		in     string
		expect string
		ok     bool
	}{
		{in: "2024-05-03", expect: "2024-05-03", ok: true},
		{in: "03/05/2024", expect: "2024-05-03", ok: true},
		{in: " 03-05-2024 ", expect: "2024-05-03", ok: true},
		{in: "3 de mayo", ok: false},
		{in: "", ok: false},
		{in: "nan", ok: false},
	}
	for _, test := range cases {
		date, ok := ParseEntryDate(test.in)
		require.Equal(t, test.ok, ok, test.in)
		require.Equal(t, test.expect, date, test.in)
	}
}

func TestSync(t *testing.T) {
	res := testutil.Setup(t, testutil.SetupParams{Name: "recordstore", DbSchema: Schema})
	store := NewStore(res.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first := time.Date(2024, time.May, 3, 10, 0, 0, 0, time.UTC)
	stats, err := store.Sync(ctx, []gop.Record{
		{SystemNumber: "1001", FileNumber: "EXP-1", Status: "En revisión", EntryDate: "03/05/2024", DocumentPath: "downloads/1001/a.pdf"},
		{SystemNumber: "1002", FileNumber: "EXP-2", EntryDate: "pronto"},
		{SystemNumber: "  ", FileNumber: "EXP-3"},
	}, first)
	require.NoError(t, err)
	require.Equal(t, SyncStats{Found: 3, Inserted: 2, Skipped: 1}, stats)

	second := first.Add(24 * time.Hour)
	stats, err = store.Sync(ctx, []gop.Record{
		{SystemNumber: "1001", FileNumber: "EXP-1", Status: "Aprobado", EntryDate: "2024-05-03"},
		{SystemNumber: "1003", FileNumber: "EXP-3", EntryDate: "04-05-2024"},
	}, second)
	require.NoError(t, err)
	require.Equal(t, SyncStats{Found: 2, Inserted: 1, Updated: 1}, stats)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	stored, err := store.Get(ctx, "1001")
	require.NoError(t, err)
	require.Equal(t, "Aprobado", stored.Status)
	require.Equal(t, "2024-05-03", stored.EntryDate)
	// a later sync without a document keeps the one already known
	require.Equal(t, "downloads/1001/a.pdf", stored.DocumentPath)
	require.Equal(t, second.Unix(), stored.SyncedAt.Unix())

	stored, err = store.Get(ctx, "1002")
	require.NoError(t, err)
	require.Empty(t, stored.EntryDate)

	_, err = store.Get(ctx, "9999")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpenDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gop.db")
	db, err := ParseTarget(path, "").OpenDB()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))
	// migrating twice is harmless
	require.NoError(t, store.Migrate(ctx))

	stats, err := store.Sync(ctx, []gop.Record{{SystemNumber: "1"}}, time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Inserted)
}

func TestParseTarget(t *testing.T) {
	require.Equal(t, DBConfig{File: "data/gop.db"}, ParseTarget("data/gop.db", "tok"))
	require.Equal(t, DBConfig{File: "gop.db"}, ParseTarget("file:gop.db", ""))
	require.Equal(
		t,
		DBConfig{Url: "libsql://gop.turso.io", AuthToken: "tok"},
		ParseTarget("libsql://gop.turso.io", "tok"),
	)
}
