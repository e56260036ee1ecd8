package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "azure-cost-export",
	Short: "Export Azure Cost Management billing data to CSV",
	Long: `A CLI tool that queries the Azure Cost Management API for cost data over
a date range, normalizes the response into flat cost records and exports
them as a delimited CSV file.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	log.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.azure-cost-export.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Errorf("Error finding home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".azure-cost-export")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Infof("Using config file: %s", viper.ConfigFileUsed())
	}

	if level, err := logrus.ParseLevel(viper.GetString("log_level")); err == nil {
		log.SetLevel(level)
	}
}
