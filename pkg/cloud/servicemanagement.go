package cloud

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/cspublish/pkg/log"
	"github.com/cuemby/cspublish/pkg/metrics"
	"github.com/cuemby/cspublish/pkg/types"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const (
	// APIVersion is sent as x-ms-version on every request
	APIVersion = "2014-06-01"

	headerVersion   = "x-ms-version"
	headerRequestID = "x-ms-request-id"

	defaultRetryMax = 3
	defaultTimeout  = 5 * time.Minute
)

// ClientConfig configures a ServiceManagementClient
type ClientConfig struct {
	// BaseURL is the service management endpoint, e.g. https://management.core.windows.net
	BaseURL        string
	SubscriptionID string
	// Certificate is the management certificate used as TLS client certificate.
	// Nil disables client authentication, which only makes sense in tests.
	Certificate *tls.Certificate

	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// ServiceManagementClient talks to the classic service management REST API
type ServiceManagementClient struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewServiceManagementClient creates a client for one subscription
func NewServiceManagementClient(cfg ClientConfig) (*ServiceManagementClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("service management URL is required")
	}
	if cfg.SubscriptionID == "" {
		return nil, &types.AuthenticationError{Err: fmt.Errorf("subscription id is required")}
	}

	rc := retryablehttp.NewClient()
	rc.Logger = &leveledLogger{logger: log.WithComponent("cloud")}
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.RetryMax = defaultRetryMax
	if cfg.RetryMax > 0 {
		rc.RetryMax = cfg.RetryMax
	}
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	rc.HTTPClient.Timeout = defaultTimeout
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}

	if cfg.Certificate != nil {
		transport, ok := rc.HTTPClient.Transport.(*http.Transport)
		if !ok {
			return nil, fmt.Errorf("unexpected transport type %T", rc.HTTPClient.Transport)
		}
		transport.TLSClientConfig = &tls.Config{
			Certificates: []tls.Certificate{*cfg.Certificate},
			MinVersion:   tls.VersionTLS12,
		}
	}

	return &ServiceManagementClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/" + cfg.SubscriptionID,
		http:    rc,
	}, nil
}

// checkRetry retries connection failures, throttling and server errors.
// Client errors, 409 included, go straight back to the caller.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

type errorXML struct {
	Code    string `xml:"Code"`
	Message string `xml:"Message"`
}

// do sends one request and decodes a successful XML response into out.
// It returns the x-ms-request-id header of the response.
func (c *ServiceManagementClient) do(ctx context.Context, operation, method, path string, in, out interface{}) (string, error) {
	var body []byte
	if in != nil {
		data, err := xml.Marshal(in)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		body = append([]byte(xml.Header), data...)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return "", fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set(headerVersion, APIVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}

	timer := metrics.NewTimer()
	resp, err := c.http.Do(req)
	timer.ObserveDurationVec(metrics.APIRequestDuration, operation)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(operation, "error").Inc()
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: %w", operation, ctx.Err())
		}
		return "", &types.ConnectivityError{Err: fmt.Errorf("%s: %w", operation, err)}
	}
	defer resp.Body.Close()

	metrics.APIRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()
	requestID := resp.Header.Get(headerRequestID)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return requestID, &types.ConnectivityError{Err: fmt.Errorf("failed to read %s response: %w", operation, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &ServiceError{StatusCode: resp.StatusCode, RequestID: requestID}
		var payload errorXML
		if xml.Unmarshal(data, &payload) == nil {
			serr.Code = payload.Code
			serr.Message = payload.Message
		}

		logger := log.WithComponent("cloud")
		logger.Debug().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("code", serr.Code).
			Str("request_id", requestID).
			Msg("Management API call failed")

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return requestID, &types.AuthenticationError{Err: serr}
		}
		return requestID, serr
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := xml.Unmarshal(data, out); err != nil {
			return requestID, fmt.Errorf("failed to decode %s response: %w", operation, err)
		}
	}
	return requestID, nil
}

// leveledLogger routes retryablehttp logging through zerolog
type leveledLogger struct {
	logger zerolog.Logger
}

func (l *leveledLogger) Error(msg string, kv ...interface{}) { l.event(l.logger.Error(), msg, kv) }
func (l *leveledLogger) Info(msg string, kv ...interface{})  { l.event(l.logger.Debug(), msg, kv) }
func (l *leveledLogger) Debug(msg string, kv ...interface{}) { l.event(l.logger.Debug(), msg, kv) }
func (l *leveledLogger) Warn(msg string, kv ...interface{})  { l.event(l.logger.Warn(), msg, kv) }

func (l *leveledLogger) event(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case *http.Request:
			e = e.Str(key, v.Method+" "+v.URL.Redacted())
		case error:
			e = e.AnErr(key, v)
		default:
			e = e.Str(key, fmt.Sprint(v))
		}
	}
	e.Msg(msg)
}
