package processor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/ilhicas/azure-cost-export/internal/azure"
)

const unknownResource = "unknown-resource"

// CostRecord is one normalized, aggregated billing entry. CostUSD is the
// USD-normalized amount, Cost the amount in the billing currency.
type CostRecord struct {
	Date         string // YYYY-MM-DD
	ResourceName string
	ResourceID   string
	CostUSD      float64
	Cost         float64
}

// Result carries the normalized records plus the number of rows dropped
// because their date value could not be parsed.
type Result struct {
	Records   []CostRecord
	ErrorRows int
}

// Processor converts the provider's columns/rows payload into CostRecords.
type Processor struct {
	log logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Processor {
	return &Processor{log: log}
}

// Process normalizes every row of the response, then aggregates the result
// by (date, resource name) and sorts it. Row-level problems are logged and
// skipped; they never fail the batch.
func (p *Processor) Process(resp *azure.QueryResponse) Result {
	if resp == nil || len(resp.Properties.Rows) == 0 {
		p.log.Warn("No cost data rows found")
		return Result{}
	}

	columns := resp.Properties.Columns
	idx := resolveColumns(columns)

	if idx.date < 0 {
		p.log.Warnf("No date column found, available columns: %s", columnNames(columns))
		return Result{}
	}
	if idx.resourceID < 0 {
		p.log.Warnf("No resource id column found, available columns: %s", columnNames(columns))
		return Result{}
	}

	p.log.Infof("Processing %d cost data entries", len(resp.Properties.Rows))

	var records []CostRecord
	errorRows := 0

	for i, row := range resp.Properties.Rows {
		raw, ok := stringValue(row, idx.date)
		if !ok {
			p.log.Warnf("Row %d: missing date value", i)
			continue
		}

		date, ok := parseRowDate(raw)
		if !ok {
			p.log.Errorf("Row %d: unrecognized date format: %q", i, raw)
			errorRows++
			continue
		}

		resourceID, ok := stringValue(row, idx.resourceID)
		if !ok {
			p.log.Warnf("Row %d: missing resource id", i)
			continue
		}

		costUSD, ok := costValue(row, idx.costUSD)
		if !ok {
			p.log.Warnf("Row %d: invalid USD cost value, using 0", i)
		}
		cost, ok := costValue(row, idx.cost)
		if !ok {
			p.log.Warnf("Row %d: invalid cost value, using 0", i)
		}

		records = append(records, CostRecord{
			Date:         date,
			ResourceName: ExtractResourceName(resourceID),
			ResourceID:   resourceID,
			CostUSD:      costUSD,
			Cost:         cost,
		})
	}

	if errorRows > 0 {
		p.log.Warnf("%d rows could not be processed due to errors", errorRows)
	}

	aggregated := aggregate(records)
	p.log.Infof("Successfully processed %d cost data entries", len(aggregated))

	return Result{Records: aggregated, ErrorRows: errorRows}
}

// columnIndexes holds the positional index of each column role, -1 when the
// response has no column for that role.
type columnIndexes struct {
	date       int
	resourceID int
	costUSD    int
	cost       int
}

// Fallback date-column name fragments, tried in priority order when no
// BillingMonth column exists.
var dateColumnFallbacks = []string{"usagestart", "date", "timestamp", "period", "month"}

// resolveColumns maps column names to roles once per response. Matching is
// case-insensitive substring matching; the first matching column in the
// original column order wins for every role.
func resolveColumns(columns []azure.Column) columnIndexes {
	idx := columnIndexes{date: -1, resourceID: -1, costUSD: -1, cost: -1}

	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = strings.ToLower(col.Name)
	}

	for i, name := range names {
		if strings.Contains(name, "billingmonth") {
			idx.date = i
			break
		}
	}
	if idx.date < 0 {
	fallbacks:
		for _, fragment := range dateColumnFallbacks {
			for i, name := range names {
				if strings.Contains(name, fragment) {
					idx.date = i
					break fallbacks
				}
			}
		}
	}

	for i, name := range names {
		if strings.Contains(name, "resourceid") {
			idx.resourceID = i
			break
		}
	}

	for i, name := range names {
		if strings.Contains(name, "costusd") {
			if idx.costUSD < 0 {
				idx.costUSD = i
			}
			continue
		}
		if idx.cost < 0 && strings.Contains(name, "cost") && !strings.Contains(name, "usd") {
			idx.cost = i
		}
	}

	return idx
}

// Date layouts tried in priority order; the first successful parse wins.
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"200601",
	"20060102T150405Z",
	"20060102T150405-0700",
	"20060102T150405",
	"2006-01-02",
	"2006/01/02",
}

func parseRowDate(raw string) (string, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

var resourceNamePattern = regexp.MustCompile(`/providers/[^/]+/[^/]+/([^/]+)$`)

// ExtractResourceName derives a display name from an Azure resource ID: the
// trailing segment of the /providers/<namespace>/<type>/<name> tail, falling
// back to the last path segment.
func ExtractResourceName(resourceID string) string {
	if resourceID == "" {
		return unknownResource
	}
	if m := resourceNamePattern.FindStringSubmatch(resourceID); m != nil {
		return m[1]
	}
	parts := strings.Split(strings.Trim(resourceID, "/"), "/")
	if last := parts[len(parts)-1]; last != "" {
		return last
	}
	return unknownResource
}

// stringValue reads row[i] as a non-empty string. Numeric values are
// rendered without an exponent so YYYYMM dates arriving as JSON numbers
// still parse.
func stringValue(row []any, i int) (string, bool) {
	if i < 0 || i >= len(row) {
		return "", false
	}
	switch v := row[i].(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// costValue coerces row[i] to a float64. Missing columns and nulls are zero;
// unparseable values report false so the caller can log, but still yield
// zero rather than dropping the row.
func costValue(row []any, i int) (float64, bool) {
	if i < 0 || i >= len(row) {
		return 0, true
	}
	switch v := row[i].(type) {
	case nil:
		return 0, true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// aggregate groups records by (date, resource name), sums both cost fields,
// keeps the first resource ID seen per group, and sorts the result.
func aggregate(records []CostRecord) []CostRecord {
	groups := lo.GroupBy(records, func(r CostRecord) string {
		return r.Date + "\x00" + r.ResourceName
	})

	out := make([]CostRecord, 0, len(groups))
	for _, group := range groups {
		merged := group[0]
		for _, r := range group[1:] {
			merged.CostUSD += r.CostUSD
			merged.Cost += r.Cost
		}
		out = append(out, merged)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ResourceName < out[j].ResourceName
	})

	return out
}

// FilterByThreshold drops records whose USD cost is below the threshold. A
// zero or negative threshold keeps everything.
func FilterByThreshold(records []CostRecord, threshold float64) []CostRecord {
	if threshold <= 0 {
		return records
	}
	return lo.Filter(records, func(r CostRecord, _ int) bool {
		return r.CostUSD >= threshold
	})
}

func columnNames(columns []azure.Column) string {
	names := lo.Map(columns, func(c azure.Column, _ int) string { return c.Name })
	return strings.Join(names, ", ")
}
