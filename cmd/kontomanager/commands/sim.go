package commands

import (
	"kontomanager/internal/scrapers/kontomanager"
	"kontomanager/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	simCmd.AddCommand(simSetCmd)
	rootCmd.AddCommand(simCmd)
	rootCmd.AddCommand(roamingCmd)
}

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Prints the SIM settings (barrings) of the active phone number.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		defer client.Close()

		settings, err := client.GetSimSettings(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to get sim settings", err)
		}

		render(settings, func(t table.Writer) {
			t.AppendHeader(table.Row{"Setting", "Enabled"})
			for _, name := range kontomanager.SimSettingNames() {
				value, ok := settings.Get(name)
				if !ok {
					t.AppendRow(table.Row{name, "-"})
					continue
				}
				t.AppendRow(table.Row{name, value})
			}
		})
	},
}

var simSetCmd = &cobra.Command{
	Use:   "set <setting> <on|off>",
	Short: "Enables or disables a SIM setting.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		name, err := kontomanager.ResolveSimSettingName(args[0])
		if err != nil {
			serviceutil.Fatal("unknown sim setting", err)
		}
		enabled := parseBool(name, args[1])

		client := createClient()
		defer client.Close()

		message, err := client.SetSimSetting(cmd.Context(), name, enabled)
		if err != nil {
			serviceutil.Fatal("failed to set sim setting", err)
		}
		confirm(message)
	},
}

var roamingCmd = &cobra.Command{
	Use:   "roaming <on|off>",
	Short: "Allows or bars roaming.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		enabled := parseBool("roaming", args[0])

		client := createClient()
		defer client.Close()

		message, err := client.ToggleRoaming(cmd.Context(), enabled)
		if err != nil {
			serviceutil.Fatal("failed to toggle roaming", err)
		}
		confirm(message)
	},
}
