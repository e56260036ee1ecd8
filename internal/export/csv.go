package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ilhicas/azure-cost-export/internal/processor"
)

// CSVOptions control the delimited output format. The defaults follow the
// European convention: semicolon-delimited fields, comma decimal separator.
type CSVOptions struct {
	Delimiter        rune
	DecimalSeparator string
}

// WriteCSV writes the fixed four-column projection of the records: date,
// resource name, USD cost, billing-currency cost. Amounts are formatted with
// two decimals and the configured decimal separator.
func WriteCSV(records []processor.CostRecord, w io.Writer, opts CSVOptions) error {
	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}

	if err := cw.Write([]string{"Date", "ResourceName", "CostUSD", "Cost"}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.Date,
			r.ResourceName,
			formatAmount(r.CostUSD, opts.DecimalSeparator),
			formatAmount(r.Cost, opts.DecimalSeparator),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the records to path, creating parent directories as
// needed.
func WriteCSVFile(records []processor.CostRecord, path string, opts CSVOptions) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", path, err)
	}
	defer file.Close()

	return WriteCSV(records, file, opts)
}

func formatAmount(v float64, separator string) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if separator != "" && separator != "." {
		s = strings.Replace(s, ".", separator, 1)
	}
	return s
}
