package commands

import (
	"context"
	"kontomanager/internal/components/chrono"
	"kontomanager/internal/components/telemetry"
	"kontomanager/internal/snapshot"
	"kontomanager/lib/serviceutil"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	exportDb  *string
	watchDb   *string
	watchCron *string
)

func init() {
	exportDb = exportCmd.Flags().String("db", "kontomanager.db", "The sqlite database to write the export to.")
	watchDb = watchCmd.Flags().String("db", "kontomanager.db", "The sqlite database to write the exports to.")
	watchCron = watchCmd.Flags().String("cron", "0 */6 * * *", "The cron schedule (Europe/Vienna) exports run on.")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
}

func openStore(path string) snapshot.Store {
	store, err := snapshot.Open(path, chrono.StandardTime{}, telemetry.SlogAPI{})
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	return store
}

var exportCmd = &cobra.Command{
	Use:   "export [--db <path/to/output.db>]",
	Short: "Scrapes the overview, bills and call history once and writes them to a database.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		defer client.Close()
		store := openStore(*exportDb)
		defer store.Close()

		result, err := store.Collect(cmd.Context(), client)
		if err != nil {
			serviceutil.Fatal("failed to export", err)
		}

		render(result, func(t table.Writer) {
			t.AppendHeader(table.Row{"Snapshot", "Bills", "New call history"})
			t.AppendRow(table.Row{result.SnapshotId, result.Bills, result.NewCallHistory})
		})
	},
}

func collectOnce(ctx context.Context, collector *snapshot.Collector) {
	result, ran, err := collector.Run(ctx)
	if err != nil || !ran {
		// already reported by the store, the next tick tries again
		return
	}
	slog.Info(
		"exported",
		"snapshot", result.SnapshotId,
		"bills", result.Bills,
		"new_call_history", result.NewCallHistory,
	)
}

var watchCmd = &cobra.Command{
	Use:   "watch [--db <path/to/output.db>] [--cron <schedule>]",
	Short: "Runs export on a schedule until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		defer client.Close()
		store := openStore(*watchDb)
		defer store.Close()

		cron := chrono.NewStandardCron(telemetry.SlogAPI{})
		defer cron.Stop()

		collector := snapshot.NewCollector(store, client)
		err := cron.Cron(*watchCron, func() {
			collectOnce(cmd.Context(), collector)
		})
		if err != nil {
			serviceutil.Fatal("invalid cron schedule", err)
		}

		slog.Info("watching", "cron", *watchCron, "db", *watchDb)
		collectOnce(cmd.Context(), collector)
		<-cmd.Context().Done()
		slog.Info("stopping")
	},
}
