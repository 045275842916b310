package geoprovider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/LeadFlux/AbuseGate/pkg/config"
	"github.com/LeadFlux/AbuseGate/pkg/infra/httpx"
	"github.com/LeadFlux/AbuseGate/pkg/infra/httpx/mocks"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestProvider(client httpx.Client) *httpProvider {
	return &httpProvider{
		baseURL:    "https://geo.example.com/v1/lookup",
		apiKey:     "test-key",
		httpClient: client,
		breaker:    httpx.NewCircuitBreaker(httpx.BreakerSettings{Name: "geo_provider_test"}),
		logger:     logrus.New(),
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestHTTPProvider_Lookup(t *testing.T) {
	client := new(mocks.MockHTTPClient)
	provider := newTestProvider(client)

	client.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == http.MethodGet &&
			req.URL.String() == "https://geo.example.com/v1/lookup/203.0.113.9" &&
			req.Header.Get("Authorization") == "Bearer test-key"
	})).Return(jsonResponse(http.StatusOK, `{
		"country": "Netherlands",
		"country_code": "NL",
		"city": "Amsterdam",
		"threat_level": "medium",
		"reputation": 62,
		"is_tor": false,
		"is_vpn": true,
		"is_proxy": false
	}`), nil)

	record, err := provider.Lookup(context.Background(), "203.0.113.9")

	assert.NoError(t, err)
	assert.Equal(t, "203.0.113.9", record.IPAddress)
	assert.Equal(t, "Netherlands", record.Country)
	assert.Equal(t, "NL", record.CountryCode)
	assert.Equal(t, "Amsterdam", record.City)
	assert.Equal(t, types.ThreatMedium, record.ThreatLevel)
	assert.Equal(t, 62, record.Reputation)
	assert.True(t, record.IsVPN)
	assert.False(t, record.IsTor)
	client.AssertExpectations(t)
}

func TestHTTPProvider_Lookup_UnknownThreatLevelDefaultsToLow(t *testing.T) {
	client := new(mocks.MockHTTPClient)
	provider := newTestProvider(client)

	client.On("Do", mock.Anything).
		Return(jsonResponse(http.StatusOK, `{"country_code":"US","threat_level":"weird","reputation":40}`), nil)

	record, err := provider.Lookup(context.Background(), "198.51.100.1")

	assert.NoError(t, err)
	assert.Equal(t, types.ThreatLow, record.ThreatLevel)
}

func TestHTTPProvider_Lookup_OutOfRangeReputationIsNeutralized(t *testing.T) {
	client := new(mocks.MockHTTPClient)
	provider := newTestProvider(client)

	client.On("Do", mock.Anything).
		Return(jsonResponse(http.StatusOK, `{"country_code":"US","reputation":250}`), nil)

	record, err := provider.Lookup(context.Background(), "198.51.100.1")

	assert.NoError(t, err)
	assert.Equal(t, 50, record.Reputation)
}

func TestHTTPProvider_Lookup_NonOKStatusIsAnError(t *testing.T) {
	client := new(mocks.MockHTTPClient)
	provider := newTestProvider(client)

	client.On("Do", mock.Anything).
		Return(jsonResponse(http.StatusServiceUnavailable, ""), nil)

	record, err := provider.Lookup(context.Background(), "198.51.100.1")

	assert.Error(t, err)
	assert.Nil(t, record)
	assert.Contains(t, err.Error(), "status 503")
}

func TestHTTPProvider_Lookup_MalformedBodyIsAnError(t *testing.T) {
	client := new(mocks.MockHTTPClient)
	provider := newTestProvider(client)

	client.On("Do", mock.Anything).
		Return(jsonResponse(http.StatusOK, "not json"), nil)

	record, err := provider.Lookup(context.Background(), "198.51.100.1")

	assert.Error(t, err)
	assert.Nil(t, record)
}

func TestNewHTTPProvider_BreakerTunedFromConfig(t *testing.T) {
	provider := NewHTTPProvider(logrus.New(), config.GeoConfig{
		ProviderURL:            "https://geo.example.com/v1/lookup",
		ProviderAPIKey:         "test-key",
		TimeoutSeconds:         3,
		BreakerMaxFailures:     1,
		BreakerCooldownSeconds: 30,
	}).(*httpProvider)

	client := new(mocks.MockHTTPClient)
	provider.httpClient = client
	client.On("Do", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	_, err := provider.Lookup(context.Background(), "203.0.113.9")
	assert.Error(t, err)

	// one failure trips the configured breaker, so the second lookup never
	// reaches the client
	_, err = provider.Lookup(context.Background(), "203.0.113.9")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	client.AssertNumberOfCalls(t, "Do", 1)
}
