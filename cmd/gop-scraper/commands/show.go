package commands

import (
	"errors"
	"fmt"
	"gop-scraper/lib/recordstore"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <nro_sistema> [--db <path or libsql url>]",
	Short: "Prints a synced record.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		record, err := store.Get(ctx, args[0])
		if errors.Is(err, recordstore.ErrNotFound) {
			return fmt.Errorf("nro_sistema %q has not been synced", args[0])
		}
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendRows([]table.Row{
			{"nro_sistema", record.SystemNumber},
			{"expediente", record.FileNumber},
			{"estado", record.Status},
			{"profesional", record.Professional},
			{"nomenclatura", record.Nomenclature},
			{"bandeja_actual", record.CurrentTray},
			{"fecha_entrada", record.EntryDate},
			{"usuario_asignado", record.AssignedUser},
			{"url_detalle", record.DetailUrl},
			{"documento", record.DocumentPath},
			{"ultima_sincronizacion", record.SyncedAt.Format(time.DateTime)},
		})
		t.Render()
		return nil
	},
}
