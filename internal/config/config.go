package config

import (
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"

	"github.com/ilhicas/azure-cost-export/internal/azure"
)

// Config holds the application configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	Azure   AzureConfig   `mapstructure:"azure"`
	Request RequestConfig `mapstructure:"request"`
	Export  ExportConfig  `mapstructure:"export"`
}

// AzureConfig holds the Azure endpoint and credential settings.
type AzureConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIVersion     string `mapstructure:"api_version"`
	AuthType       string `mapstructure:"auth_type"`
	TenantID       string `mapstructure:"tenant_id"`
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"client_secret"`
	BearerToken    string `mapstructure:"bearer_token"`
	SubscriptionID string `mapstructure:"subscription_id"`
	ResourceGroup  string `mapstructure:"resource_group"`
}

// RequestConfig holds HTTP retry and paging settings.
type RequestConfig struct {
	TimeoutSeconds    int `mapstructure:"timeout_seconds"`
	MaxRetries        int `mapstructure:"max_retries"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`
	TopValue          int `mapstructure:"top_value"`
}

// ExportConfig holds CSV output settings.
type ExportConfig struct {
	Path             string  `mapstructure:"path"`
	Delimiter        string  `mapstructure:"delimiter"`
	DecimalSeparator string  `mapstructure:"decimal_separator"`
	CostThreshold    float64 `mapstructure:"cost_threshold"`
}

// Load loads configuration from the viper-managed config file and
// environment variables.
func Load() (*Config, error) {
	setDefaults()

	// Azure credentials conventionally live in AZURE_* environment
	// variables rather than the prefixed form viper would expect.
	envOverrides := map[string]string{
		"azure.tenant_id":       "AZURE_TENANT_ID",
		"azure.client_id":       "AZURE_CLIENT_ID",
		"azure.client_secret":   "AZURE_CLIENT_SECRET",
		"azure.bearer_token":    "AZURE_BEARER_TOKEN",
		"azure.subscription_id": "AZURE_SUBSCRIPTION_ID",
		"azure.resource_group":  "AZURE_RESOURCE_GROUP",
	}
	for key, env := range envOverrides {
		if v := os.Getenv(env); v != "" {
			viper.Set(key, v)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("log_level", "info")

	viper.SetDefault("azure.base_url", "https://management.azure.com")
	viper.SetDefault("azure.api_version", "2021-10-01")
	viper.SetDefault("azure.auth_type", azure.AuthTypeBearerToken)

	viper.SetDefault("request.timeout_seconds", 30)
	viper.SetDefault("request.max_retries", 3)
	viper.SetDefault("request.retry_delay_seconds", 2)
	viper.SetDefault("request.top_value", 5000)

	viper.SetDefault("export.path", "output/azure_costs.csv")
	viper.SetDefault("export.delimiter", ";")
	viper.SetDefault("export.decimal_separator", ",")
	viper.SetDefault("export.cost_threshold", 0.0)
}

// Validate checks that the configuration is usable before any request is
// issued.
func (c *Config) Validate() error {
	if c.Azure.SubscriptionID == "" {
		return fmt.Errorf("azure.subscription_id must be set")
	}
	if c.Azure.ResourceGroup == "" {
		return fmt.Errorf("azure.resource_group must be set")
	}

	switch c.Azure.AuthType {
	case azure.AuthTypeBearerToken:
		if c.Azure.BearerToken == "" {
			return fmt.Errorf("azure.bearer_token must be set for %s authentication", azure.AuthTypeBearerToken)
		}
	case azure.AuthTypeClientCredentials:
		var missing []string
		if c.Azure.TenantID == "" {
			missing = append(missing, "tenant_id")
		}
		if c.Azure.ClientID == "" {
			missing = append(missing, "client_id")
		}
		if c.Azure.ClientSecret == "" {
			missing = append(missing, "client_secret")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing azure settings for %s authentication: %v", azure.AuthTypeClientCredentials, missing)
		}
	default:
		return fmt.Errorf("unsupported azure.auth_type: %q", c.Azure.AuthType)
	}

	if c.Request.MaxRetries < 1 {
		return fmt.Errorf("request.max_retries must be at least 1")
	}
	if c.Request.TimeoutSeconds < 1 {
		return fmt.Errorf("request.timeout_seconds must be at least 1")
	}
	if utf8.RuneCountInString(c.Export.Delimiter) != 1 {
		return fmt.Errorf("export.delimiter must be a single character")
	}

	return nil
}

// ClientOptions maps the configuration onto the Azure client options.
func (c *Config) ClientOptions() azure.Options {
	return azure.Options{
		BaseURL:      c.Azure.BaseURL,
		APIVersion:   c.Azure.APIVersion,
		AuthType:     c.Azure.AuthType,
		BearerToken:  c.Azure.BearerToken,
		TenantID:     c.Azure.TenantID,
		ClientID:     c.Azure.ClientID,
		ClientSecret: c.Azure.ClientSecret,
		MaxRetries:   c.Request.MaxRetries,
		RetryDelay:   time.Duration(c.Request.RetryDelaySeconds) * time.Second,
		Timeout:      time.Duration(c.Request.TimeoutSeconds) * time.Second,
		TopValue:     c.Request.TopValue,
	}
}

// DelimiterRune returns the configured CSV delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Export.Delimiter)
	return r
}
