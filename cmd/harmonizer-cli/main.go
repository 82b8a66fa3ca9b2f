package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jenezis/harmonizer/client"
)

// Build-time variables set via ldflags.
var (
	version   = "0.1.0"
	commit    = ""
	buildDate = ""
)

const defaultURL = "http://localhost:8000"

var (
	apiClient *client.Client
	flagURL   string
	flagKey   string
	flagFmt   string
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("harmonizer version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("harmonizer version %s-dev", version)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "harmonizer",
		Short:   "Harmonizer CLI: skill normalization and ontology validation",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()
			opts := []client.Option{client.WithUserAgent("harmonizer-cli/" + version)}
			if flagKey != "" {
				opts = append(opts, client.WithAPIKey(flagKey))
			}
			apiClient = client.New(flagURL, opts...)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "Harmonizer server URL (env: HARMONIZER_URL)")
	rootCmd.PersistentFlags().StringVar(&flagKey, "api-key", "", "API token (env: HARMONIZER_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")

	initCmd := newInitCmd()
	initCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {} // skip client setup

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newHarmonizeCmd())
	rootCmd.AddCommand(newSuggestCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newAdminCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s %s: %v\n", errorLabel(), msg, err)
	os.Exit(1)
}
