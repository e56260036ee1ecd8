package azure

// queryRequest is the body of a Cost Management query: actual monthly costs
// summed in both the billing currency and USD, grouped by resource.
type queryRequest struct {
	Type       string     `json:"type"`
	Timeframe  string     `json:"timeframe"`
	TimePeriod timePeriod `json:"timePeriod"`
	DataSet    dataSet    `json:"dataSet"`
}

type timePeriod struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type dataSet struct {
	Granularity string                 `json:"granularity"`
	Aggregation map[string]aggregation `json:"aggregation"`
	Grouping    []grouping             `json:"grouping"`
	Filter      *dimensionFilter       `json:"filter,omitempty"`
}

type aggregation struct {
	Name     string `json:"name"`
	Function string `json:"function"`
}

type grouping struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// dimensionFilter restricts the query to specific resource IDs. The field
// casing follows the Cost Management API, not Go JSON conventions.
type dimensionFilter struct {
	Dimensions dimensionExpression `json:"Dimensions"`
}

type dimensionExpression struct {
	Name     string   `json:"Name"`
	Operator string   `json:"Operator"`
	Values   []string `json:"Values"`
}

func newQueryRequest(services []string, from, to string) queryRequest {
	req := queryRequest{
		Type:      "ActualCost",
		Timeframe: "Custom",
		TimePeriod: timePeriod{
			From: from,
			To:   to,
		},
		DataSet: dataSet{
			Granularity: "Monthly",
			Aggregation: map[string]aggregation{
				"totalCost":    {Name: "Cost", Function: "Sum"},
				"totalCostUSD": {Name: "CostUSD", Function: "Sum"},
			},
			Grouping: []grouping{
				{Type: "Dimension", Name: "ResourceId"},
				{Type: "Dimension", Name: "ChargeType"},
				{Type: "Dimension", Name: "PublisherType"},
			},
		},
	}

	if len(services) > 0 {
		req.DataSet.Filter = &dimensionFilter{
			Dimensions: dimensionExpression{
				Name:     "ResourceId",
				Operator: "In",
				Values:   services,
			},
		}
	}

	return req
}

// QueryResponse is the provider's payload: ordered column metadata plus rows
// of positional values. Row values are strings, numbers or null.
type QueryResponse struct {
	Properties QueryProperties `json:"properties"`
}

type QueryProperties struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
