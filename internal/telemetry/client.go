// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

/*
Package telemetry is the client for the sensor telemetry REST API.

Endpoints used:
  - GET /user-devices                                   device list
  - GET /get-device-logs?serial_number=<sn>&_t=<unix ms> latest reading

Every request carries the configured bearer token. HTTP 429 responses are
retried with exponential backoff honouring Retry-After. All other failures are
returned as *FetchError. CircuitBreakerClient adds gobreaker protection on top
of HTTPClient and is what the server wires in.
*/
package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fieldmap/internal/config"
	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/metrics"
	"github.com/tomtom215/fieldmap/internal/models"
)

const (
	devicesPath    = "/user-devices"
	deviceLogsPath = "/get-device-logs"

	// maxErrorBodySize bounds how much of an error response is kept.
	maxErrorBodySize = 64 * 1024
)

// API is the subset of the telemetry service Fieldmap depends on.
type API interface {
	GetDevices(ctx context.Context) ([]models.Device, error)

	// GetLatestReading returns the newest log entry for serialNumber, or nil
	// when the device has never reported.
	GetLatestReading(ctx context.Context, serialNumber string) (*models.TelemetryReading, error)
}

// HTTPClient talks to the telemetry API over HTTP.
type HTTPClient struct {
	baseURL        string
	token          string
	client         *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
	now            func() time.Time
}

// NewHTTPClient creates a client from configuration.
func NewHTTPClient(cfg *config.TelemetryConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries:     cfg.RetryAttempts,
		retryBaseDelay: cfg.RetryDelay,
		now:            time.Now,
	}
}

// readBodyForError reads at most maxErrorBodySize bytes for diagnostics.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	if len(body) == maxErrorBodySize {
		return string(body) + "\n... (truncated)"
	}
	return string(body)
}

// doRequestWithRateLimit performs a GET and retries HTTP 429 responses with
// exponential backoff. The context cancels both requests and backoff waits.
func (c *HTTPClient) doRequestWithRateLimit(ctx context.Context, path, reqURL string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			metrics.RecordTelemetryRequest(path, "error", time.Since(start))
			return nil, err
		}
		metrics.RecordTelemetryRequest(path, strconv.Itoa(resp.StatusCode), time.Since(start))

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= c.maxRetries {
			return resp, nil
		}
		_ = resp.Body.Close()

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, perr := strconv.Atoi(retryAfter); perr == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}
		logging.Ctx(ctx).Debug().Str("path", path).Dur("delay", delay).Int("attempt", attempt+1).Msg("Telemetry API rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// get fetches path and returns the raw body of a 2xx response.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	resp, err := c.doRequestWithRateLimit(ctx, path, reqURL)
	if err != nil {
		return nil, &FetchError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Op:         path,
			StatusCode: resp.StatusCode,
			Body:       readBodyForError(resp.Body),
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Op: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// GetDevices lists the devices registered to the configured account.
func (c *HTTPClient) GetDevices(ctx context.Context) ([]models.Device, error) {
	body, err := c.get(ctx, devicesPath, nil)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []models.Device{}, nil
	}

	var devices []models.Device
	if err := json.Unmarshal(body, &devices); err != nil {
		return nil, &FetchError{Op: devicesPath, StatusCode: http.StatusOK, Err: fmt.Errorf("decode devices: %w", err)}
	}
	return devices, nil
}

// GetLatestReading fetches device logs for serialNumber. The API answers with
// either one reading or an array of readings; for an array the entry with
// the newest created_at wins, falling back to the last element.
func (c *HTTPClient) GetLatestReading(ctx context.Context, serialNumber string) (*models.TelemetryReading, error) {
	params := url.Values{}
	params.Set("serial_number", serialNumber)
	params.Set("_t", strconv.FormatInt(c.now().UnixMilli(), 10))

	body, err := c.get(ctx, deviceLogsPath, params)
	if err != nil {
		return nil, err
	}

	reading, err := decodeLatestReading(body)
	if err != nil {
		return nil, &FetchError{Op: deviceLogsPath, StatusCode: http.StatusOK, Err: err}
	}
	return reading, nil
}

func decodeLatestReading(body []byte) (*models.TelemetryReading, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	if body[0] != '[' {
		var r models.TelemetryReading
		if err := json.Unmarshal(body, &r); err != nil {
			return nil, fmt.Errorf("decode reading: %w", err)
		}
		return &r, nil
	}

	var readings []models.TelemetryReading
	if err := json.Unmarshal(body, &readings); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}
	if len(readings) == 0 {
		return nil, nil
	}

	latest := len(readings) - 1
	latestAt, latestOK := readings[latest].ObservedAt()
	for i := range readings {
		at, ok := readings[i].ObservedAt()
		if ok && (!latestOK || at.After(latestAt)) {
			latest, latestAt, latestOK = i, at, true
		}
	}
	return &readings[latest], nil
}
