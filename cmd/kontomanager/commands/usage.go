package commands

import (
	"fmt"
	"kontomanager/internal/scrapers/kontomanager"
	"kontomanager/lib/serviceutil"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(usageCmd)
}

func formatQuota(q *kontomanager.UnitQuota) string {
	if q == nil {
		return "-"
	}
	if q.Unlimited {
		return fmt.Sprintf("%g %s / unlimited", q.Used, q.Unit)
	}
	return fmt.Sprintf("%g / %g %s", q.Used, q.Total, q.Unit)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02.01.2006")
}

func formatEuro(value *float64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f €", *value)
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Prints the account overview of the active phone number.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		defer client.Close()

		usage, err := client.GetAccountUsage(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to get account usage", err)
		}

		render(usage, func(t table.Writer) {
			t.SetTitle(fmt.Sprintf("%s (prepaid: %v, admin: %v)", usage.PhoneNumber, usage.IsPrepaid, usage.IsAdmin))
			t.AppendHeader(table.Row{"Package", "Valid until", "Minutes", "SMS", "Data", "Data (EU)", "Carried over", "Cost"})
			for _, pkg := range usage.Packages {
				t.AppendRow(table.Row{
					pkg.Name,
					formatDate(pkg.ValidUntil),
					formatQuota(pkg.Minutes),
					formatQuota(pkg.Sms),
					formatQuota(pkg.DataDomestic),
					formatQuota(pkg.DataEu),
					formatQuota(pkg.DataCarriedOver),
					formatEuro(pkg.MonthlyCost),
				})
			}
			t.AppendFooter(table.Row{"Current costs", fmt.Sprintf("%.2f €", usage.CurrentCosts)})
			if usage.IsPrepaid {
				t.AppendFooter(table.Row{"Credit", formatEuro(usage.Credit)})
				t.AppendFooter(table.Row{"SIM valid until", formatDate(usage.SimValidUntil)})
				t.AppendFooter(table.Row{"Last recharge", formatDate(usage.LastRecharge)})
			} else {
				t.AppendFooter(table.Row{"Next bill", formatDate(usage.NextBillDate)})
			}
		})
	},
}
