package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var configPath string

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Manage configuration for the Azure cost export tool.`,
	}

	generateConfigCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a default configuration file",
		Long:  `Generate a default configuration file with placeholders for the Azure subscription, credentials and export settings.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := generateDefaultConfig(configPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error generating config: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Configuration file generated at: %s\n", configPath)
		},
	}

	generateConfigCmd.Flags().StringVarP(&configPath, "path", "f", ".azure-cost-export.yaml", "Path to save the configuration file (default is $HOME/.azure-cost-export.yaml)")

	configCmd.AddCommand(generateConfigCmd)
	rootCmd.AddCommand(configCmd)
}

func generateDefaultConfig(path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not determine home directory: %w", err)
		}
		path = filepath.Join(home, ".azure-cost-export.yaml")
	}

	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists at %s, use --path to specify a different location or delete the existing file", path)
	}

	defaultConfig := `# Azure Cost Export Configuration

# Log level (debug, info, warn, error)
log_level: info

azure:
  # Azure subscription and resource group to query
  subscription_id: YOUR_SUBSCRIPTION_ID
  resource_group: YOUR_RESOURCE_GROUP
  # Authentication type: bearer_token or client_credentials
  auth_type: bearer_token
  # For bearer_token auth; recommended via environment variable:
  # export AZURE_BEARER_TOKEN=your_token
  # bearer_token: YOUR_TOKEN
  # For client_credentials auth:
  # tenant_id: YOUR_TENANT_ID
  # client_id: YOUR_CLIENT_ID
  # client_secret: YOUR_CLIENT_SECRET

request:
  timeout_seconds: 30
  max_retries: 3
  retry_delay_seconds: 2
  top_value: 5000

export:
  path: output/azure_costs.csv
  delimiter: ";"
  decimal_separator: ","
  cost_threshold: 0.0

# Service resource IDs or names to filter by
# services:
#   - my-service-account
`

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create directory %s: %w", dir, err)
	}

	// Write config file
	if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("could not write configuration file: %w", err)
	}

	return nil
}
