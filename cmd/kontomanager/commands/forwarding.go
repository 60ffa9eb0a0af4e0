package commands

import (
	"errors"
	"fmt"
	"kontomanager/internal/scrapers/kontomanager"
	"kontomanager/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	forwardTarget *string
	forwardNumber *string
	forwardDelay  *int
)

func init() {
	forwardTarget = forwardingSetCmd.Flags().String("target", string(kontomanager.TargetDeactivated), "Where calls go: d (deactivated), b (voicemail) or a (number).")
	forwardNumber = forwardingSetCmd.Flags().String("number", "", "The number calls are forwarded to, required for --target a.")
	forwardDelay = forwardingSetCmd.Flags().Int("delay", 0, "Seconds to ring before forwarding, only for the nann condition.")
	forwardingCmd.AddCommand(forwardingSetCmd)
	rootCmd.AddCommand(forwardingCmd)
}

var targetNames = map[kontomanager.CallForwardingTarget]string{
	kontomanager.TargetDeactivated: "deactivated",
	kontomanager.TargetVoicemail:   "voicemail",
	kontomanager.TargetNumber:      "number",
}

var forwardingCmd = &cobra.Command{
	Use:   "forwarding",
	Short: "Prints the call forwarding rules.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		defer client.Close()

		settings, err := client.GetCallForwardingSettings(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to get call forwarding settings", err)
		}

		render(settings, func(t table.Writer) {
			t.SetTitle(fmt.Sprintf(
				"editable on phone: %v, voicemail hides caller: %v",
				settings.EditableOnPhone, settings.VoicemailPlayCliDisable,
			))
			t.AppendHeader(table.Row{"Condition", "Target", "Number", "Delay"})
			for _, r := range settings.Rules {
				delay := "-"
				if r.DelaySeconds != nil {
					delay = fmt.Sprintf("%ds", *r.DelaySeconds)
				}
				t.AppendRow(table.Row{r.Condition, targetNames[r.Target], r.TargetNumber, delay})
			}
		})
	},
}

var forwardingSetCmd = &cobra.Command{
	Use:   "set <alle|nann|wtel|nerr> --target d|b|a [--number <number>] [--delay <seconds>]",
	Short: "Updates the forwarding rule of a single condition.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rule := kontomanager.CallForwardingRule{
			Condition:    kontomanager.CallForwardingCondition(args[0]),
			Target:       kontomanager.CallForwardingTarget(*forwardTarget),
			TargetNumber: *forwardNumber,
		}
		if cmd.Flags().Changed("delay") {
			rule.DelaySeconds = forwardDelay
		}
		err := rule.Validate()
		if err != nil {
			serviceutil.Fatal("invalid forwarding rule", err)
		}

		client := createClient()
		defer client.Close()

		message, err := client.SetCallForwardingRule(cmd.Context(), rule)
		if errors.Is(err, kontomanager.ErrUnexpectedResponse) {
			serviceutil.Fatal("the portal rejected the forwarding rule", err)
		}
		if err != nil {
			serviceutil.Fatal("failed to set call forwarding rule", err)
		}
		confirm(message)
	},
}
