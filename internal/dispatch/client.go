// Package dispatch delivers notifications to the downstream processor.
// Delivery is a single attempt: failures are logged and journaled, never retried or raised.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/erauner12/callwatch/internal/journal"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout bounds one delivery attempt
	DefaultTimeout = 15 * time.Second

	// DefaultBodyLimit is how much of a response body is kept for diagnostics
	DefaultBodyLimit = 512

	userAgent = "callwatch/1.0"
)

// Meta identifies the file behind a payload for logs and the journal
type Meta struct {
	FileID    string
	Name      string
	Direction string
}

// Result is the outcome of one delivery attempt
type Result struct {
	Delivered     bool   `json:"delivered"`
	Status        int    `json:"status,omitempty"`
	Body          string `json:"body,omitempty"`
	Error         string `json:"error,omitempty"`
	CorrelationID string `json:"correlationId"`
}

// Options configures a Client
type Options struct {
	Endpoint   string
	Timeout    time.Duration
	BodyLimit  int
	HTTPClient *http.Client
	Journal    journal.Journal // optional
}

// Client POSTs JSON payloads to a fixed endpoint
type Client struct {
	endpoint   string
	httpClient *http.Client
	bodyLimit  int
	journal    journal.Journal
}

// NewClient creates a dispatcher for opts.Endpoint
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = DefaultBodyLimit
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		endpoint:   opts.Endpoint,
		httpClient: httpClient,
		bodyLimit:  opts.BodyLimit,
		journal:    opts.Journal,
	}
}

// Endpoint returns the downstream address; empty means unconfigured
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Dispatch sends payload as the JSON body of one POST.
// Any status outside 2xx, or a transport failure, yields Delivered=false.
func (c *Client) Dispatch(ctx context.Context, payload any, meta Meta) Result {
	correlationID := uuid.New().String()
	logger := log.Ctx(ctx).With().
		Str("fileId", meta.FileID).
		Str("name", meta.Name).
		Str("endpoint", c.endpoint).
		Str("dispatchId", correlationID).
		Logger()

	res := c.send(ctx, payload, correlationID)

	switch {
	case res.Delivered:
		logger.Info().Int("status", res.Status).Msg("notification delivered")
	case res.Error != "":
		logger.Error().Str("error", res.Error).Msg("notification dispatch failed")
	default:
		logger.Warn().Int("status", res.Status).Str("body", res.Body).Msg("notification rejected by processor")
	}

	c.record(ctx, meta, res)
	return res
}

func (c *Client) send(ctx context.Context, payload any, correlationID string) Result {
	res := Result{CorrelationID: correlationID}

	body, err := json.Marshal(payload)
	if err != nil {
		res.Error = fmt.Sprintf("encode payload: %v", err)
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		res.Error = fmt.Sprintf("build request: %v", err)
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Correlation-ID", correlationID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()

	// Read one byte past the limit so truncation is visible
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, int64(c.bodyLimit)+1))
	res.Status = resp.StatusCode
	res.Body = truncate(string(raw), c.bodyLimit)
	res.Delivered = resp.StatusCode >= 200 && resp.StatusCode < 300

	log.Ctx(ctx).Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("dispatch request completed")
	return res
}

func (c *Client) record(ctx context.Context, meta Meta, res Result) {
	if c.journal == nil {
		return
	}
	detail := res.Body
	if res.Error != "" {
		detail = res.Error
	}
	rec := journal.Record{
		CorrelationID: res.CorrelationID,
		FileID:        meta.FileID,
		Name:          meta.Name,
		Direction:     meta.Direction,
		Delivered:     res.Delivered,
		Status:        res.Status,
		Detail:        detail,
		AttemptedAt:   time.Now().UTC(),
	}
	// Journal writes must outlive a cancelled pass context
	if err := c.journal.Append(context.WithoutCancel(ctx), rec); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("fileId", meta.FileID).Msg("failed to journal dispatch outcome")
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
