package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ilhicas/azure-cost-export/internal/azure"
	"github.com/ilhicas/azure-cost-export/internal/config"
	"github.com/ilhicas/azure-cost-export/internal/export"
	"github.com/ilhicas/azure-cost-export/internal/processor"
)

var (
	fromDate string
	toDate   string
	services []string
)

func init() {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch cost data and export it as a CSV file",
		Long: `Query the Azure Cost Management API for the configured services and date
range, normalize and aggregate the rows, and write the result to a
delimited CSV file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeExport()
		},
	}

	now := time.Now()
	defaultFrom := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")

	exportCmd.Flags().StringVar(&fromDate, "from-date", defaultFrom, "Start date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&toDate, "to-date", now.Format("2006-01-02"), "End date (YYYY-MM-DD)")
	exportCmd.Flags().StringSliceVar(&services, "services", nil, "Service resource IDs or names to filter by")
	exportCmd.Flags().StringP("output", "o", "", "Output CSV file path")
	exportCmd.Flags().Float64("cost-threshold", 0, "Include only resources with USD cost above this threshold")

	viper.BindPFlag("export.path", exportCmd.Flags().Lookup("output"))
	viper.BindPFlag("export.cost_threshold", exportCmd.Flags().Lookup("cost-threshold"))

	rootCmd.AddCommand(exportCmd)
}

func executeExport() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if len(services) == 0 {
		services = viper.GetStringSlice("services")
	}

	log.Infof("Authentication type: %s", cfg.Azure.AuthType)
	log.Infof("Period: from %s to %s", fromDate, toDate)
	log.Infof("Subscription ID: %s", cfg.Azure.SubscriptionID)
	log.Infof("Resource group: %s", cfg.Azure.ResourceGroup)

	client, err := azure.NewClient(cfg.Azure.SubscriptionID, cfg.Azure.ResourceGroup, cfg.ClientOptions(), log)
	if err != nil {
		return fmt.Errorf("error initializing Azure client: %w", err)
	}

	query := azure.Query{
		Services: azure.NormalizeServiceIDs(services, cfg.Azure.SubscriptionID, cfg.Azure.ResourceGroup),
		FromDate: fromDate,
		ToDate:   toDate,
	}

	response, err := client.FetchCostData(query)
	if err != nil {
		return fmt.Errorf("error fetching cost data: %w", err)
	}

	result := processor.New(log).Process(response)
	records := result.Records

	if threshold := cfg.Export.CostThreshold; threshold > 0 {
		filtered := processor.FilterByThreshold(records, threshold)
		if cut := len(records) - len(filtered); cut > 0 {
			log.Infof("Filtered out %d entries below cost threshold of $%.2f", cut, threshold)
		}
		records = filtered
	}

	if len(records) == 0 {
		log.Warn("No data to export")
		return nil
	}

	opts := export.CSVOptions{
		Delimiter:        cfg.DelimiterRune(),
		DecimalSeparator: cfg.Export.DecimalSeparator,
	}
	if err := export.WriteCSVFile(records, cfg.Export.Path, opts); err != nil {
		return fmt.Errorf("error exporting data: %w", err)
	}

	log.Infof("Exported %d entries to %s", len(records), cfg.Export.Path)
	if result.ErrorRows > 0 {
		log.Warnf("%d rows were skipped due to parse errors", result.ErrorRows)
	}

	export.WriteSummary(records, os.Stdout)

	totalUSD, total := export.Totals(records)
	log.Infof("Total cost: %.2f USD / %.2f in billing currency", totalUSD, total)

	return nil
}
