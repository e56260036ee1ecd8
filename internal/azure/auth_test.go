package azure

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientCredentialOptions(loginBaseURL string) Options {
	return Options{
		BaseURL:      "https://management.azure.com",
		APIVersion:   "2021-10-01",
		AuthType:     AuthTypeClientCredentials,
		TenantID:     "tenant-1",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		LoginBaseURL: loginBaseURL,
		MaxRetries:   3,
		RetryDelay:   time.Second,
		Timeout:      5 * time.Second,
		TopValue:     5000,
	}
}

func TestAcquireTokenSendsClientCredentialsGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenant-1/oauth2/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "client-1", r.Form.Get("client_id"))
		assert.Equal(t, "secret-1", r.Form.Get("client_secret"))
		assert.Equal(t, "https://management.azure.com/", r.Form.Get("resource"))

		w.Write([]byte(`{"access_token": "acquired-token"}`))
	}))
	defer server.Close()

	client, err := NewClient("sub-1", "rg-1", clientCredentialOptions(server.URL), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "acquired-token", client.token)
}

func TestAcquireTokenFailures(t *testing.T) {
	tests := map[string]struct {
		status int
		body   string
	}{
		"invalid credentials": {status: http.StatusUnauthorized, body: `{}`},
		"access denied":       {status: http.StatusForbidden, body: `{}`},
		"server error":        {status: http.StatusInternalServerError, body: `{}`},
		"malformed body":      {status: http.StatusOK, body: `not-json`},
		"missing token":       {status: http.StatusOK, body: `{"token_type": "Bearer"}`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient("sub-1", "rg-1", clientCredentialOptions(server.URL), testLogger())
			require.Error(t, err)

			var authErr *AuthenticationError
			assert.ErrorAs(t, err, &authErr)
		})
	}
}

func TestAcquireTokenConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	_, err := NewClient("sub-1", "rg-1", clientCredentialOptions(serverURL), testLogger())
	require.Error(t, err)

	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestNormalizeServiceIDs(t *testing.T) {
	full := "/subscriptions/sub-1/resourcegroups/rg-1/providers/microsoft.web/sites/app"

	got := NormalizeServiceIDs([]string{"my-account", full}, "sub-1", "rg-1")

	assert.Equal(t, []string{
		"/subscriptions/sub-1/resourcegroups/rg-1/providers/microsoft.cognitiveservices/accounts/my-account",
		full,
	}, got)
}
