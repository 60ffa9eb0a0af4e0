package commands

import (
	"kontomanager/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(numbersCmd)
	rootCmd.AddCommand(switchCmd)
}

var numbersCmd = &cobra.Command{
	Use:   "numbers",
	Short: "Lists the phone numbers that can be switched to.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		defer client.Close()

		numbers, err := client.GetPhoneNumbers(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to get phone numbers", err)
		}

		render(numbers, func(t table.Writer) {
			t.AppendHeader(table.Row{"Active", "Name", "Number", "Subscriber id"})
			for _, n := range numbers {
				active := ""
				if n.IsActive {
					active = "*"
				}
				t.AppendRow(table.Row{active, n.Name, n.Number, n.SubscriberId})
			}
		})
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch <subscriber id>",
	Short: "Switches the active phone number, subscriber ids are listed by `numbers`.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		defer client.Close()

		number, err := client.SwitchActivePhoneNumber(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to switch phone number", err)
		}
		confirm("Switched to " + number + ".")
	},
}
