package geoprovider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/config"
	"github.com/LeadFlux/AbuseGate/pkg/infra/httpx"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

// Record is the raw location/reputation record returned by the provider.
type Record struct {
	IPAddress   string
	Country     string
	CountryCode string
	City        string
	ThreatLevel types.ThreatLevel
	Reputation  int
	IsTor       bool
	IsVPN       bool
	IsProxy     bool
}

// Provider performs a single opaque reputation lookup.
type Provider interface {
	Lookup(ctx context.Context, ip string) (*Record, error)
}

type httpProvider struct {
	baseURL    string
	apiKey     string
	httpClient httpx.Client
	breaker    httpx.CircuitBreaker
	logger     *logrus.Logger
	parserPool fastjson.ParserPool
}

func NewHTTPProvider(logger *logrus.Logger, cfg config.GeoConfig) Provider {
	return &httpProvider{
		baseURL:    cfg.ProviderURL,
		apiKey:     cfg.ProviderAPIKey,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		breaker: httpx.NewCircuitBreaker(httpx.BreakerSettings{
			Name:        "geo_provider",
			MaxFailures: uint32(cfg.BreakerMaxFailures),
			Cooldown:    time.Duration(cfg.BreakerCooldownSeconds) * time.Second,
		}),
		logger: logger,
	}
}

func (p *httpProvider) Lookup(ctx context.Context, ip string) (*Record, error) {
	var record *Record
	err := p.breaker.Execute(func() error {
		r, err := p.lookup(ctx, ip)
		if err != nil {
			return err
		}
		record = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (p *httpProvider) lookup(ctx context.Context, ip string) (*Record, error) {
	url := fmt.Sprintf("%s/%s", p.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup response: %w", err)
	}

	parser := p.parserPool.Get()
	defer p.parserPool.Put(parser)

	v, err := parser.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lookup response: %w", err)
	}

	record := &Record{
		IPAddress:   ip,
		Country:     string(v.GetStringBytes("country")),
		CountryCode: string(v.GetStringBytes("country_code")),
		City:        string(v.GetStringBytes("city")),
		ThreatLevel: parseThreatLevel(string(v.GetStringBytes("threat_level"))),
		Reputation:  v.GetInt("reputation"),
		IsTor:       v.GetBool("is_tor"),
		IsVPN:       v.GetBool("is_vpn"),
		IsProxy:     v.GetBool("is_proxy"),
	}
	if record.Reputation < 0 || record.Reputation > 100 {
		record.Reputation = 50
	}
	return record, nil
}

func parseThreatLevel(s string) types.ThreatLevel {
	switch types.ThreatLevel(s) {
	case types.ThreatMedium, types.ThreatHigh, types.ThreatCritical:
		return types.ThreatLevel(s)
	default:
		return types.ThreatLow
	}
}
