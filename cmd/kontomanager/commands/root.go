package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"kontomanager/internal/components/telemetry"
	"kontomanager/internal/scrapers/kontomanager"
	"kontomanager/lib/configutil"
	"kontomanager/lib/restyutil"
	"kontomanager/lib/serviceutil"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath *string
	jsonOutput *bool
	verbose    *bool
	dumpDir    *string
)

var rootCmd = &cobra.Command{
	Use:   "kontomanager",
	Short: "kontomanager is a CLI for the Kontomanager customer portal of yesss!, georg and xoxo.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "kontomanager.json5", "The json5 config file, <name>.local.json5 is merged on top of it.")
	jsonOutput = rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON instead of tables.")
	verbose = rootCmd.PersistentFlags().Bool("verbose", false, "Log requests and debug information to stderr.")
	dumpDir = rootCmd.PersistentFlags().String("dump-dir", "", "Write a transcript of every request to this directory, the password is redacted.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var envOverrides = map[string]func(*kontomanager.Config, string){
	"KONTOMANAGER_BRAND":    func(c *kontomanager.Config, v string) { c.Brand = v },
	"KONTOMANAGER_USERNAME": func(c *kontomanager.Config, v string) { c.Username = v },
	"KONTOMANAGER_PASSWORD": func(c *kontomanager.Config, v string) { c.Password = v },
	"KONTOMANAGER_BASE_URL": func(c *kontomanager.Config, v string) { c.BaseUrl = v },
}

func readConfig() kontomanager.Config {
	cfg, err := configutil.Resolve(
		*configPath,
		kontomanager.Config{Brand: "yesss"},
		configutil.EnvOverrides(envOverrides),
	)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

func createClient() *kontomanager.Client {
	client, err := kontomanager.NewClient(readConfig(), telemetry.SlogAPI{})
	if err != nil {
		serviceutil.Fatal("failed to initialize kontomanager client", err)
	}
	if *dumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(*dumpDir)
		if err != nil {
			serviceutil.Fatal("failed to create dump directory", err)
		}
		restyutil.DumpExchanges(client.Http, output, kontomanager.PasswordField)
	}
	return client
}

// render prints `value` as JSON when --json is set, otherwise it calls `fill` to build a table.
func render(value any, fill func(t table.Writer)) {
	if *jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		err := encoder.Encode(value)
		if err != nil {
			serviceutil.Fatal("failed to encode output", err)
		}
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	fill(t)
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func confirm(message string) {
	if *jsonOutput {
		render(map[string]string{"message": message}, nil)
		return
	}
	fmt.Println(message)
}

func parseBool(name, value string) bool {
	switch value {
	case "on", "enable", "enabled":
		return true
	case "off", "disable", "disabled":
		return false
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		serviceutil.Fatal(fmt.Sprintf("invalid value for %s", name), err)
	}
	return parsed
}
