package azure

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Supported authentication modes.
const (
	AuthTypeBearerToken       = "bearer_token"
	AuthTypeClientCredentials = "client_credentials"
)

const (
	defaultLoginBaseURL = "https://login.microsoftonline.com"
	managementResource  = "https://management.azure.com/"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// acquireToken runs the OAuth2 client-credentials grant against the tenant's
// token endpoint and returns a bearer token for the management resource.
func (c *Client) acquireToken() (string, error) {
	tokenURL := fmt.Sprintf("%s/%s/oauth2/token", c.loginBaseURL, c.tenantID)

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"resource":      {managementResource},
	}

	req, err := http.NewRequest(http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AuthenticationError{Message: fmt.Sprintf("building token request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Errorf("Could not reach the authentication endpoint: %v", err)
		return "", &AuthenticationError{Message: fmt.Sprintf("could not reach the authentication endpoint: %v", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", &AuthenticationError{Message: "authentication failed: invalid credentials"}
	case resp.StatusCode == http.StatusForbidden:
		return "", &AuthenticationError{Message: "authentication failed: access denied"}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		c.log.Errorf("Authentication failed with status %d: %s", resp.StatusCode, string(body))
		return "", &AuthenticationError{Message: fmt.Sprintf("authentication failed with status code %d", resp.StatusCode)}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", &AuthenticationError{Message: fmt.Sprintf("invalid token response: %v", err)}
	}
	if tok.AccessToken == "" {
		return "", &AuthenticationError{Message: "token response contained no access_token"}
	}

	return tok.AccessToken, nil
}
