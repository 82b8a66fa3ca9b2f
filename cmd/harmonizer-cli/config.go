package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jenezis/harmonizer/client"
)

// configFile is ~/.harmonizer/config.yaml. The flat url/api_key keys are
// read when no profile matches.
type configFile struct {
	URL           string                   `yaml:"url,omitempty"`
	APIKey        string                   `yaml:"api_key,omitempty"`
	Profiles      map[string]configProfile `yaml:"profiles,omitempty"`
	ActiveProfile string                   `yaml:"active_profile,omitempty"`
}

type configProfile struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key,omitempty"`
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".harmonizer", "config.yaml"), nil
}

func loadConfigFile() (string, *configFile, error) {
	cfgPath, err := configPath()
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfgPath, nil, err
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfgPath, nil, fmt.Errorf("parse %s: %w", cfgPath, err)
	}
	return cfgPath, &cfg, nil
}

// settings returns the URL and key the file resolves to.
func (cfg *configFile) settings() (url, apiKey string) {
	url, apiKey = cfg.URL, cfg.APIKey
	profile := cfg.ActiveProfile
	if profile == "" {
		profile = "default"
	}
	if p, ok := cfg.Profiles[profile]; ok {
		if p.URL != "" {
			url = p.URL
		}
		if p.APIKey != "" {
			apiKey = p.APIKey
		}
	}
	return url, apiKey
}

// resolveConfig fills flagURL and flagKey. Flag takes precedence, then env,
// then config file.
func resolveConfig() {
	if flagURL == defaultURL {
		if v := os.Getenv("HARMONIZER_URL"); v != "" {
			flagURL = v
		}
	}
	if flagKey == "" {
		flagKey = os.Getenv("HARMONIZER_API_KEY")
	}

	_, cfg, err := loadConfigFile()
	if err != nil {
		return
	}
	url, key := cfg.settings()
	if flagURL == defaultURL && url != "" {
		flagURL = url
	}
	if flagKey == "" && key != "" {
		flagKey = key
	}
}

func newInitCmd() *cobra.Command {
	var (
		initURL    string
		initAPIKey string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up harmonizer CLI configuration",
		Long:  "Interactive setup that creates ~/.harmonizer/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			nonInteractive := initURL != "" || initAPIKey != ""
			return runInit(initURL, initAPIKey, nonInteractive)
		},
	}

	cmd.Flags().StringVar(&initURL, "url", "", "Server URL (non-interactive mode)")
	cmd.Flags().StringVar(&initAPIKey, "api-key", "", "API token (non-interactive mode)")
	return cmd
}

func runInit(url, apiKey string, nonInteractive bool) error {
	if !nonInteractive {
		fmt.Println("\n  Harmonizer Setup")
		fmt.Println()

		reader := bufio.NewReader(os.Stdin)

		fmt.Printf("  Server URL [%s]: ", defaultURL)
		line, _ := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			url = line
		}

		fmt.Print("  API token (blank if the server has none): ")
		keyLine, _ := reader.ReadString('\n')
		apiKey = strings.TrimSpace(keyLine)
	}

	if url == "" {
		url = defaultURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.New(url, client.WithAPIKey(apiKey)).Health(ctx)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	if !nonInteractive {
		fmt.Printf("\n  %s Connected (v%s)\n", okMark(), health.Version)
	}

	cfgPath, err := writeConfig(url, apiKey)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Config saved to %s\n", cfgPath)
	return nil
}

func writeConfig(url, apiKey string) (string, error) {
	cfgPath, err := configPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return "", err
	}

	cfg := configFile{
		Profiles:      map[string]configProfile{"default": {URL: url, APIKey: apiKey}},
		ActiveProfile: "default",
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", err
	}
	return cfgPath, nil
}
