package commands

import (
	"context"
	"fmt"
	"gop-scraper/internal/config"
	"gop-scraper/lib/telemetry"
	"gop-scraper/services/scrape"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configFile string
	envFile    string
	verbose    bool
)

var tel telemetry.Telemetry

var rootCmd = &cobra.Command{
	Use:   "gop-scraper",
	Short: "gop-scraper logs into the GOP portal and exports the records of \"Mis Bandejas\" to csv.",
	Args:  cobra.NoArgs,
	// errors are reported once by ExecuteContext
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), "gop-scraper")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		telemetry.InstrumentPerfStats(cmd.Context(), 5*time.Second)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.LoadOptions{
			File:   configFile,
			DotEnv: envFile,
		})
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		summary, err := scrape.Run(cmd.Context(), cfg)
		printSummary(summary)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "gop.json5", "The config file, <name>.local.<ext> is merged on top of it.")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Read USER_MUNI, PASS_MUNI, DOWNLOAD_PDFS and HEADLESS from this file when unset.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func printSummary(summary scrape.Summary) {
	t := newTable()
	t.AppendHeader(table.Row{"Pages", "Records", "Skipped rows", "Documents", "Export", "Duration"})
	export := summary.ExportPath
	if export == "" {
		export = "-"
	}
	t.AppendRow(table.Row{
		summary.Pages,
		summary.Records,
		summary.Skipped,
		summary.Documents,
		export,
		summary.Duration.Round(time.Millisecond),
	})
	if summary.Stopped != nil {
		t.AppendFooter(table.Row{"Stopped early", summary.Stopped.Error()})
	}
	t.Render()
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := tel.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}

	if err != nil {
		slog.Error("gop-scraper failed", "err", err)
		os.Exit(1)
	}
}
