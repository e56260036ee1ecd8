package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilhicas/azure-cost-export/internal/azure"
)

func loadClean(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func validConfig() *Config {
	return &Config{
		Azure: AzureConfig{
			BaseURL:        "https://management.azure.com",
			APIVersion:     "2021-10-01",
			AuthType:       azure.AuthTypeBearerToken,
			BearerToken:    "token",
			SubscriptionID: "sub-1",
			ResourceGroup:  "rg-1",
		},
		Request: RequestConfig{
			TimeoutSeconds:    30,
			MaxRetries:        3,
			RetryDelaySeconds: 2,
			TopValue:          5000,
		},
		Export: ExportConfig{
			Path:             "output/azure_costs.csv",
			Delimiter:        ";",
			DecimalSeparator: ",",
		},
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadClean(t)

	assert.Equal(t, "https://management.azure.com", cfg.Azure.BaseURL)
	assert.Equal(t, "2021-10-01", cfg.Azure.APIVersion)
	assert.Equal(t, azure.AuthTypeBearerToken, cfg.Azure.AuthType)
	assert.Equal(t, 30, cfg.Request.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Request.MaxRetries)
	assert.Equal(t, 2, cfg.Request.RetryDelaySeconds)
	assert.Equal(t, 5000, cfg.Request.TopValue)
	assert.Equal(t, "output/azure_costs.csv", cfg.Export.Path)
	assert.Equal(t, ";", cfg.Export.Delimiter)
	assert.Equal(t, ",", cfg.Export.DecimalSeparator)
	assert.Equal(t, 0.0, cfg.Export.CostThreshold)
}

func TestLoadAzureEnvironmentOverrides(t *testing.T) {
	t.Setenv("AZURE_SUBSCRIPTION_ID", "sub-from-env")
	t.Setenv("AZURE_RESOURCE_GROUP", "rg-from-env")
	t.Setenv("AZURE_BEARER_TOKEN", "token-from-env")
	t.Setenv("AZURE_TENANT_ID", "tenant-from-env")

	cfg := loadClean(t)

	assert.Equal(t, "sub-from-env", cfg.Azure.SubscriptionID)
	assert.Equal(t, "rg-from-env", cfg.Azure.ResourceGroup)
	assert.Equal(t, "token-from-env", cfg.Azure.BearerToken)
	assert.Equal(t, "tenant-from-env", cfg.Azure.TenantID)
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mutate        func(*Config)
		errorContains string
	}{
		"valid bearer token config": {
			mutate: func(c *Config) {},
		},
		"valid client credentials config": {
			mutate: func(c *Config) {
				c.Azure.AuthType = azure.AuthTypeClientCredentials
				c.Azure.BearerToken = ""
				c.Azure.TenantID = "tenant-1"
				c.Azure.ClientID = "client-1"
				c.Azure.ClientSecret = "secret-1"
			},
		},
		"missing subscription": {
			mutate:        func(c *Config) { c.Azure.SubscriptionID = "" },
			errorContains: "subscription_id",
		},
		"missing resource group": {
			mutate:        func(c *Config) { c.Azure.ResourceGroup = "" },
			errorContains: "resource_group",
		},
		"bearer auth without token": {
			mutate:        func(c *Config) { c.Azure.BearerToken = "" },
			errorContains: "bearer_token",
		},
		"client credentials incomplete": {
			mutate: func(c *Config) {
				c.Azure.AuthType = azure.AuthTypeClientCredentials
				c.Azure.TenantID = "tenant-1"
			},
			errorContains: "client_id",
		},
		"unknown auth type": {
			mutate:        func(c *Config) { c.Azure.AuthType = "managed_identity" },
			errorContains: "auth_type",
		},
		"retries below one": {
			mutate:        func(c *Config) { c.Request.MaxRetries = 0 },
			errorContains: "max_retries",
		},
		"zero timeout": {
			mutate:        func(c *Config) { c.Request.TimeoutSeconds = 0 },
			errorContains: "timeout",
		},
		"multi-character delimiter": {
			mutate:        func(c *Config) { c.Export.Delimiter = ";;" },
			errorContains: "delimiter",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestClientOptions(t *testing.T) {
	cfg := validConfig()
	opts := cfg.ClientOptions()

	assert.Equal(t, "https://management.azure.com", opts.BaseURL)
	assert.Equal(t, azure.AuthTypeBearerToken, opts.AuthType)
	assert.Equal(t, "token", opts.BearerToken)
	assert.Equal(t, 3, opts.MaxRetries)
	assert.Equal(t, 2*time.Second, opts.RetryDelay)
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.Equal(t, 5000, opts.TopValue)
}

func TestDelimiterRune(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, ';', cfg.DelimiterRune())

	cfg.Export.Delimiter = ","
	assert.Equal(t, ',', cfg.DelimiterRune())
}
