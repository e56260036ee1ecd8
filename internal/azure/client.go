package azure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// maxDaysPerRequest is the widest period the Cost Management query endpoint
// accepts in a single request. Anything wider is split into yearly chunks.
const maxDaysPerRequest = 366

// Doer issues a single HTTP request. *http.Client satisfies it; tests swap
// in scripted transports.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configure a Client beyond the subscription it targets.
type Options struct {
	BaseURL      string
	LoginBaseURL string
	APIVersion   string

	AuthType     string
	BearerToken  string
	TenantID     string
	ClientID     string
	ClientSecret string

	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	TopValue   int
}

// Client talks to the Azure Cost Management API for one subscription and
// resource group. It is not safe for concurrent use: the bearer token is
// replaced in place when a 401 forces a refresh.
type Client struct {
	subscriptionID string
	resourceGroup  string
	baseURL        string
	loginBaseURL   string
	apiVersion     string

	authType     string
	token        string
	tenantID     string
	clientID     string
	clientSecret string

	maxRetries int
	retryDelay time.Duration
	topValue   int

	httpClient Doer
	sleep      func(time.Duration)
	now        func() time.Time
	log        logrus.FieldLogger
}

// NewClient validates the authentication configuration and, under
// client-credentials auth, acquires the initial bearer token.
func NewClient(subscriptionID, resourceGroup string, opts Options, log logrus.FieldLogger) (*Client, error) {
	c := &Client{
		subscriptionID: subscriptionID,
		resourceGroup:  resourceGroup,
		baseURL:        opts.BaseURL,
		loginBaseURL:   opts.LoginBaseURL,
		apiVersion:     opts.APIVersion,
		authType:       opts.AuthType,
		token:          opts.BearerToken,
		tenantID:       opts.TenantID,
		clientID:       opts.ClientID,
		clientSecret:   opts.ClientSecret,
		maxRetries:     opts.MaxRetries,
		retryDelay:     opts.RetryDelay,
		topValue:       opts.TopValue,
		httpClient:     &http.Client{Timeout: opts.Timeout},
		sleep:          time.Sleep,
		now:            time.Now,
		log:            log,
	}

	if c.loginBaseURL == "" {
		c.loginBaseURL = defaultLoginBaseURL
	}

	switch c.authType {
	case AuthTypeBearerToken:
		if c.token == "" {
			return nil, fmt.Errorf("bearer token must be provided for %s authentication", AuthTypeBearerToken)
		}
	case AuthTypeClientCredentials:
		if c.tenantID == "" || c.clientID == "" || c.clientSecret == "" {
			return nil, fmt.Errorf("tenant_id, client_id and client_secret must be provided for %s authentication", AuthTypeClientCredentials)
		}
		if c.token == "" {
			c.log.Info("Retrieving Azure bearer token using client credentials")
			token, err := c.acquireToken()
			if err != nil {
				return nil, err
			}
			c.token = token
		}
	default:
		return nil, fmt.Errorf("unsupported auth type: %q", c.authType)
	}

	return c, nil
}

// Query describes a cost-data request: which resources to filter by and the
// inclusive date range, both dates in YYYY-MM-DD.
type Query struct {
	Services []string
	FromDate string
	ToDate   string
}

// FetchCostData retrieves cost rows for the query, splitting ranges wider
// than a year into sequential sub-period requests and merging the results.
func (c *Client) FetchCostData(q Query) (*QueryResponse, error) {
	if len(q.Services) == 0 {
		return nil, &APIError{Code: ErrCodeInvalidServices, Message: "no services specified"}
	}

	from, err := time.Parse(dateLayout, q.FromDate)
	if err != nil {
		return nil, &APIError{Code: ErrCodeInvalidDateFormat, Message: fmt.Sprintf("invalid start date %q, expected YYYY-MM-DD", q.FromDate)}
	}
	to, err := time.Parse(dateLayout, q.ToDate)
	if err != nil {
		return nil, &APIError{Code: ErrCodeInvalidDateFormat, Message: fmt.Sprintf("invalid end date %q, expected YYYY-MM-DD", q.ToDate)}
	}

	if from.After(to) {
		return nil, &APIError{Code: ErrCodeInvalidDateRange, Message: fmt.Sprintf("start date %s is after end date %s", q.FromDate, q.ToDate)}
	}
	if to.After(c.now()) {
		c.log.Warnf("End date %s is in the future, returned data may be incomplete", q.ToDate)
	}

	if int(to.Sub(from).Hours()/24) > maxDaysPerRequest {
		c.log.Info("Date range is wider than a year, splitting into multiple requests")
		return c.fetchChunks(q.Services, from, to)
	}

	return c.fetchPeriod(q.Services, q.FromDate, q.ToDate)
}

// fetchChunks walks the range in consecutive sub-periods of at most one
// year, aborting on the first failed chunk. The merged response reuses the
// column metadata of the first chunk.
func (c *Client) fetchChunks(services []string, from, to time.Time) (*QueryResponse, error) {
	var merged *QueryResponse
	var rows [][]any

	for cur := from; cur.Before(to); {
		end := cur.AddDate(1, 0, -1)
		if end.After(to) {
			end = to
		}

		fromStr := cur.Format(dateLayout)
		toStr := end.Format(dateLayout)
		c.log.Infof("Fetching cost data for period %s to %s", fromStr, toStr)

		chunk, err := c.fetchPeriod(services, fromStr, toStr)
		if err != nil {
			return nil, fmt.Errorf("fetching period %s to %s: %w", fromStr, toStr, err)
		}

		if merged == nil {
			merged = chunk
		}
		rows = append(rows, chunk.Properties.Rows...)

		cur = end.AddDate(0, 0, 1)
	}

	if merged == nil {
		return &QueryResponse{}, nil
	}
	merged.Properties.Rows = rows
	return merged, nil
}

// fetchPeriod issues a single cost query for a range already known to fit
// within one request.
func (c *Client) fetchPeriod(services []string, from, to string) (*QueryResponse, error) {
	endpoint := fmt.Sprintf("%s/subscriptions/%s/resourceGroups/%s/providers/Microsoft.CostManagement/query",
		c.baseURL, c.subscriptionID, c.resourceGroup)

	params := url.Values{}
	params.Set("api-version", c.apiVersion)
	params.Set("$top", strconv.Itoa(c.topValue))

	c.log.Infof("Requesting cost data from %s to %s for %d services", from, to, len(services))

	resp, err := c.execute(http.MethodPost, endpoint, newQueryRequest(services, from, to), params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding cost data response: %w", err)
	}

	c.log.Infof("Retrieved %d cost data entries", len(out.Properties.Rows))
	return &out, nil
}

// execute issues one HTTP request with bounded retries. The delays are
// deterministic: exponential backoff without jitter, so the schedule can be
// asserted in tests.
func (c *Client) execute(method, rawURL string, body any, params url.Values) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	var lastErr string
	retries := 0

	for retries < c.maxRetries {
		req, err := http.NewRequest(method, rawURL, bytes.NewReader(payload))
		if err != nil {
			return nil, &RequestError{Message: fmt.Sprintf("building request: %v", err)}
		}
		if params != nil {
			req.URL.RawQuery = params.Encode()
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		c.log.Debugf("Making %s request to %s", method, rawURL)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err.Error()
			c.log.Warnf("Request failed (attempt %d/%d): %s", retries+1, c.maxRetries, lastErr)
			retries++
			if retries < c.maxRetries {
				c.sleep(c.retryDelay * (1 << (retries - 1)))
				continue
			}
			c.log.Errorf("Maximum number of attempts reached for %s", rawURL)
			return nil, &RequestError{Message: fmt.Sprintf("request failed after %d attempts: %s", c.maxRetries, lastErr)}
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			c.log.Error("Unauthorized (401): token invalid or expired")
			if c.authType == AuthTypeClientCredentials && retries < c.maxRetries-1 {
				c.log.Info("Attempting to refresh the token")
				token, err := c.acquireToken()
				if err != nil {
					return nil, err
				}
				c.token = token
				retries++
				c.log.Infof("Token refreshed, retrying (%d/%d)", retries, c.maxRetries)
				continue
			}
			return nil, &AuthenticationError{Message: "unauthorized (401): token invalid or expired"}

		case resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return nil, &RequestError{StatusCode: resp.StatusCode, Message: "forbidden (403): missing permissions for this operation"}

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, &RequestError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("resource not found (404): %s", rawURL)}

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := c.retryDelay
			if v := resp.Header.Get("Retry-After"); v != "" {
				if secs, err := strconv.Atoi(v); err == nil {
					wait = time.Duration(secs) * time.Second
				}
			}
			resp.Body.Close()
			if retries < c.maxRetries-1 {
				c.log.Warnf("Throttled (429), waiting %s before retrying", wait)
				c.sleep(wait)
				retries++
				continue
			}
			return nil, &RequestError{StatusCode: resp.StatusCode, Message: "throttled (429): retry limit reached"}

		case resp.StatusCode >= 500:
			status := resp.StatusCode
			resp.Body.Close()
			if retries < c.maxRetries-1 {
				retries++
				wait := c.retryDelay * (1 << retries)
				c.log.Warnf("Server error (%d), retry %d/%d in %s", status, retries, c.maxRetries, wait)
				c.sleep(wait)
				continue
			}
			return nil, &RequestError{StatusCode: status, Message: fmt.Sprintf("server error (%d)", status)}

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			status := resp.StatusCode
			resp.Body.Close()
			return nil, &RequestError{StatusCode: status, Message: fmt.Sprintf("request failed with status %d", status)}
		}

		return resp, nil
	}

	return nil, &RequestError{Message: fmt.Sprintf("request failed after %d attempts: %s", c.maxRetries, lastErr)}
}
