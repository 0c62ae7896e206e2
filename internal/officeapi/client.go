package officeapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/office-portal/internal/observability/metrics"
	"github.com/wolfman30/office-portal/internal/records"
	"github.com/wolfman30/office-portal/pkg/logging"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "office-portal/0.1"
	dateLayout       = "2006-01-02"
	maxErrorBody     = 300
)

// Config controls how the office API client behaves.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	Metrics    *metrics.PortalMetrics
	UserAgent  string
}

// Client wraps the office API endpoints. It makes exactly one attempt per
// call; there is no retry or backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	logger     *logging.Logger
	metrics    *metrics.PortalMetrics
	userAgent  string
	tracer     trace.Tracer
}

// New creates a Client. creds may be nil only for clients that exclusively
// call Verify.
func New(cfg Config, creds CredentialSource) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("officeapi: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("officeapi: invalid base URL: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		creds:      creds,
		logger:     logger,
		metrics:    cfg.Metrics,
		userAgent:  userAgent,
		tracer:     otel.Tracer("office.internal.officeapi"),
	}, nil
}

// BasicCredential builds the Authorization header value for user/pass.
func BasicCredential(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// Verify checks credential with a minimal authorized read. It does not touch
// the session: a 401 comes back as ErrUnauthorized and nothing is invalidated.
func (c *Client) Verify(ctx context.Context, credential string) error {
	q := url.Values{}
	q.Set("limit", "1")
	_, err := c.do(ctx, credential, false, http.MethodGet, "/bookings", q, nil)
	return err
}

// ListBookings returns bookings created in [start, end]. Zero dates omit the
// server-side filter.
func (c *Client) ListBookings(ctx context.Context, start, end time.Time, limit int) ([]records.Booking, error) {
	q := rangeQuery(start, end)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	env, err := c.authorized(ctx, http.MethodGet, "/bookings", q, nil)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return records.ResolveAll(env.Results), nil
}

// Analytics returns the status breakdown for [start, end].
func (c *Client) Analytics(ctx context.Context, start, end time.Time) (StatusSummary, error) {
	env, err := c.authorized(ctx, http.MethodGet, "/analytics", rangeQuery(start, end), nil)
	if err != nil {
		return StatusSummary{}, fmt.Errorf("analytics: %w", err)
	}
	return env.summary(), nil
}

// DeleteBookings hard-deletes bookings by confirmation id.
func (c *Client) DeleteBookings(ctx context.Context, confirmationIDs []string) error {
	if len(confirmationIDs) == 0 {
		return errors.New("officeapi: at least one confirmation id required")
	}
	if _, err := c.authorized(ctx, http.MethodPost, "/bookings/delete", nil, deleteRequest{ConfirmationIDs: confirmationIDs}); err != nil {
		return fmt.Errorf("delete bookings: %w", err)
	}
	return nil
}

// ListMessages returns the thread for a canonical phone number, in the order
// the server returned it.
func (c *Client) ListMessages(ctx context.Context, to string) ([]records.Message, error) {
	q := url.Values{}
	q.Set("to", to)
	env, err := c.authorized(ctx, http.MethodGet, "/messages", q, nil)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return records.ResolveMessages(env.Results), nil
}

// SendMessage posts one text message.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) error {
	if _, err := c.authorized(ctx, http.MethodPost, "/messages/send", nil, req); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (c *Client) authorized(ctx context.Context, method, path string, query url.Values, body any) (*envelope, error) {
	if c.creds == nil {
		return nil, ErrUnauthenticated
	}
	credential, ok := c.creds.Credential()
	if !ok || credential == "" {
		return nil, ErrUnauthenticated
	}
	return c.do(ctx, credential, true, method, path, query, body)
}

func (c *Client) do(ctx context.Context, credential string, invalidateOn401 bool, method, path string, query url.Values, body any) (*envelope, error) {
	ctx, span := c.tracer.Start(ctx, "officeapi."+method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("office.path", path),
	)
	env, err := c.send(ctx, credential, invalidateOn401, method, path, query, body)
	if err != nil {
		span.RecordError(err)
	}
	return env, err
}

func (c *Client) send(ctx context.Context, credential string, invalidateOn401 bool, method, path string, query url.Values, body any) (*envelope, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("officeapi: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("officeapi: build request: %w", err)
	}
	req.Header.Set("Authorization", credential)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveAPIRequest(path, 0, time.Since(started).Seconds())
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("officeapi: http request: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveAPIRequest(path, resp.StatusCode, time.Since(started).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("officeapi: read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("office API rejected credential", "path", path)
		if invalidateOn401 && c.creds != nil {
			c.creds.Invalidate()
		}
		return nil, ErrUnauthorized
	}

	env, decodeErr := decodeEnvelope(respBody)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Path: path}
		if decodeErr == nil {
			apiErr.Message = env.errorMessage()
		}
		c.logger.Warn("office API non-2xx response", "status", resp.StatusCode, "path", path, "body", truncate(string(respBody), maxErrorBody))
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Path: path, Message: "malformed response envelope"}
	}
	if !env.OK {
		return nil, &APIError{StatusCode: resp.StatusCode, Path: path, Message: env.errorMessage()}
	}
	return env, nil
}

func decodeEnvelope(data []byte) (*envelope, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty body")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

func rangeQuery(start, end time.Time) url.Values {
	q := url.Values{}
	if !start.IsZero() && !end.IsZero() {
		q.Set("start", start.Format(dateLayout))
		q.Set("end", end.Format(dateLayout))
	}
	return q
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
