package commands

import (
	"fmt"
	"kontomanager/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists the call and SMS history of the current billing period.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		defer client.Close()

		entries, err := client.ListCallHistory(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list call history", err)
		}

		render(entries, func(t table.Writer) {
			t.AppendHeader(table.Row{"Time", "Type", "Number", "Duration", "Cost"})
			var total float64
			for _, e := range entries {
				total += e.Cost
				t.AppendRow(table.Row{
					e.Timestamp.Format("02.01.2006 15:04:05"),
					e.Type,
					e.Number,
					e.Duration,
					fmt.Sprintf("%.2f €", e.Cost),
				})
			}
			t.AppendFooter(table.Row{"", "", "", "Total", fmt.Sprintf("%.2f €", total)})
		})
	},
}
