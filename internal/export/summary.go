package export

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/ilhicas/azure-cost-export/internal/processor"
)

// WriteSummary renders the exported records as a compact table with a totals
// footer.
func WriteSummary(records []processor.CostRecord, w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Resource", "Cost USD", "Cost"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnSeparator(" ")

	var totalUSD, total float64
	for _, r := range records {
		table.Append([]string{
			r.Date,
			r.ResourceName,
			fmt.Sprintf("%.2f", r.CostUSD),
			fmt.Sprintf("%.2f", r.Cost),
		})
		totalUSD += r.CostUSD
		total += r.Cost
	}

	table.SetFooter([]string{
		"",
		"TOTAL",
		fmt.Sprintf("%.2f", totalUSD),
		fmt.Sprintf("%.2f", total),
	})
	table.SetFooterAlignment(tablewriter.ALIGN_LEFT)

	table.Render()
}

// Totals sums both cost fields across the records.
func Totals(records []processor.CostRecord) (costUSD, cost float64) {
	for _, r := range records {
		costUSD += r.CostUSD
		cost += r.Cost
	}
	return costUSD, cost
}
