package captchaprovider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/config"
	"github.com/LeadFlux/AbuseGate/pkg/infra/httpx"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

// VerifyResult is the vendor's answer to a single verification attempt.
type VerifyResult struct {
	Success    bool
	ErrorCodes []string
}

// Verifier performs the opaque vendor-side check of a challenge response.
// A vendor outage is reported as an error: CAPTCHA verification is a
// user-facing checkpoint and never silently passes.
type Verifier interface {
	Verify(ctx context.Context, response string, remoteIP string) (*VerifyResult, error)
}

type httpVerifier struct {
	verifyURL  string
	secret     string
	httpClient httpx.Client
	breaker    httpx.CircuitBreaker
	logger     *logrus.Logger
	parserPool fastjson.ParserPool
}

func NewHTTPVerifier(logger *logrus.Logger, cfg config.CaptchaConfig) Verifier {
	return &httpVerifier{
		verifyURL:  cfg.VerifyURL,
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		breaker: httpx.NewCircuitBreaker(httpx.BreakerSettings{
			Name:        "captcha_vendor",
			MaxFailures: uint32(cfg.BreakerMaxFailures),
			Cooldown:    time.Duration(cfg.BreakerCooldownSeconds) * time.Second,
		}),
		logger: logger,
	}
}

func (v *httpVerifier) Verify(ctx context.Context, response string, remoteIP string) (*VerifyResult, error) {
	var result *VerifyResult
	err := v.breaker.Execute(func() error {
		r, err := v.verify(ctx, response, remoteIP)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (v *httpVerifier) verify(ctx context.Context, response string, remoteIP string) (*VerifyResult, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", response)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("captcha verify failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("captcha vendor returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("failed to read verify response: %w", err)
	}

	parser := v.parserPool.Get()
	defer v.parserPool.Put(parser)

	parsed, err := parser.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse verify response: %w", err)
	}

	result := &VerifyResult{Success: parsed.GetBool("success")}
	for _, code := range parsed.GetArray("error-codes") {
		result.ErrorCodes = append(result.ErrorCodes, string(code.GetStringBytes()))
	}
	return result, nil
}
