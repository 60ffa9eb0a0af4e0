package commands

import (
	"fmt"
	"kontomanager/internal/scrapers/kontomanager"
	"kontomanager/lib/serviceutil"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	billType *string
	billOut  *string
)

func init() {
	billType = billDownloadCmd.Flags().String("type", string(kontomanager.DocumentBill), "The document to download, either bill or egn.")
	billOut = billDownloadCmd.Flags().String("out", "", "The file to write the PDF to, defaults to <bill number>[-egn].pdf.")
	billsCmd.AddCommand(billDownloadCmd)
	rootCmd.AddCommand(billsCmd)
}

var billsCmd = &cobra.Command{
	Use:   "bills",
	Short: "Lists the bills of the account.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		defer client.Close()

		bills, err := client.ListBills(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list bills", err)
		}

		render(bills, func(t table.Writer) {
			t.AppendHeader(table.Row{"Number", "Date", "Amount", "EGN"})
			for _, b := range bills {
				t.AppendRow(table.Row{
					b.BillNumber,
					b.Date.Format("02.01.2006"),
					fmt.Sprintf("%.2f %s", b.Amount, b.Currency),
					b.HasEgn,
				})
			}
		})
	},
}

var billDownloadCmd = &cobra.Command{
	Use:   "download <bill number> [--type bill|egn] [--out <path>]",
	Short: "Downloads the PDF of a bill or its itemized record.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		docType, err := kontomanager.ParseDocumentType(*billType)
		if err != nil {
			serviceutil.Fatal("invalid document type", err)
		}

		client := createClient()
		defer client.Close()

		pdf, err := client.GetBill(cmd.Context(), args[0], docType)
		if err != nil {
			serviceutil.Fatal("failed to download bill", err)
		}

		out := *billOut
		if out == "" {
			out = args[0] + ".pdf"
			if docType == kontomanager.DocumentEgn {
				out = args[0] + "-egn.pdf"
			}
		}
		err = os.WriteFile(out, pdf, 0644)
		if err != nil {
			serviceutil.Fatal("failed to write pdf", err)
		}
		slog.Info("downloaded bill", "bill", args[0], "type", docType, "path", out, "bytes", len(pdf))
	},
}
