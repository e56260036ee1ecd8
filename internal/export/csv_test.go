package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilhicas/azure-cost-export/internal/processor"
)

func sampleRecords() []processor.CostRecord {
	return []processor.CostRecord{
		{Date: "2023-02-01", ResourceName: "my-app", ResourceID: "/s/rg/providers/Microsoft.Web/sites/my-app", CostUSD: 10.5, Cost: 9.257},
		{Date: "2023-03-01", ResourceName: "my-db", ResourceID: "/s/rg/providers/Microsoft.Sql/servers/my-db", CostUSD: 0, Cost: 0},
	}
}

func TestWriteCSVEuropeanFormat(t *testing.T) {
	var buf bytes.Buffer

	opts := CSVOptions{Delimiter: ';', DecimalSeparator: ","}
	require.NoError(t, WriteCSV(sampleRecords(), &buf, opts))

	want := "Date;ResourceName;CostUSD;Cost\n" +
		"2023-02-01;my-app;10,50;9,26\n" +
		"2023-03-01;my-db;0,00;0,00\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVDefaults(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteCSV(sampleRecords(), &buf, CSVOptions{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,ResourceName,CostUSD,Cost", lines[0])
	assert.Equal(t, "2023-02-01,my-app,10.50,9.26", lines[1])
}

func TestWriteCSVEmptyRecords(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteCSV(nil, &buf, CSVOptions{Delimiter: ';'}))
	assert.Equal(t, "Date;ResourceName;CostUSD;Cost\n", buf.String())
}

func TestWriteCSVFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "costs.csv")

	opts := CSVOptions{Delimiter: ';', DecimalSeparator: ","}
	require.NoError(t, WriteCSVFile(sampleRecords(), path, opts))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2023-02-01;my-app;10,50;9,26")
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer

	WriteSummary(sampleRecords(), &buf)

	out := buf.String()
	assert.Contains(t, out, "my-app")
	assert.Contains(t, out, "my-db")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "10.50")
}

func TestTotals(t *testing.T) {
	costUSD, cost := Totals(sampleRecords())
	assert.InDelta(t, 10.5, costUSD, 1e-9)
	assert.InDelta(t, 9.257, cost, 1e-9)
}
