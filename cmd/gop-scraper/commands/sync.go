package commands

import (
	"context"
	"database/sql"
	"fmt"
	"gop-scraper/lib/export"
	"gop-scraper/lib/recordstore"
	"gop-scraper/lib/timezone"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	syncDb        string
	syncAuthToken string
)

func init() {
	for _, cmd := range []*cobra.Command{syncCmd, showCmd} {
		cmd.Flags().StringVar(&syncDb, "db", "gop.db", "A sqlite file or a libsql:// url holding the synced records.")
		cmd.Flags().StringVar(&syncAuthToken, "auth-token", os.Getenv("LIBSQL_AUTH_TOKEN"), "Auth token for a remote libsql database.")
		rootCmd.AddCommand(cmd)
	}
}

// opens the --db target with the schema applied
func openStore(ctx context.Context) (recordstore.Store, *sql.DB, error) {
	db, err := recordstore.ParseTarget(syncDb, syncAuthToken).OpenDB()
	if err != nil {
		return recordstore.Store{}, nil, fmt.Errorf("open db: %w", err)
	}
	store := recordstore.NewStore(db)
	err = store.Migrate(ctx)
	if err != nil {
		db.Close()
		return recordstore.Store{}, nil, fmt.Errorf("migrate: %w", err)
	}
	return store, db, nil
}

var syncCmd = &cobra.Command{
	Use:   "sync <expedientes.csv> [--db <path or libsql url>]",
	Short: "Upserts an exported csv into a database keyed by nro_sistema.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		records, err := export.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read export: %w", err)
		}

		store, db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := store.Sync(ctx, records, timezone.Now())
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		stored, err := store.Count(ctx)
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		slog.InfoContext(ctx, "synced export", "file", args[0], "found", stats.Found, "stored", stored)

		t := newTable()
		t.AppendHeader(table.Row{"Found", "Inserted", "Updated", "Skipped", "Errors", "Stored"})
		t.AppendRow(table.Row{stats.Found, stats.Inserted, stats.Updated, stats.Skipped, len(stats.Errors), stored})
		t.Render()

		if len(stats.Errors) > 0 {
			errTable := newTable()
			errTable.AppendHeader(table.Row{"nro_sistema", "Error"})
			for _, rowErr := range stats.Errors {
				errTable.AppendRow(table.Row{rowErr.SystemNumber, rowErr.Err.Error()})
			}
			errTable.Render()
			return fmt.Errorf("%d records could not be synced", len(stats.Errors))
		}
		return nil
	},
}
