package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/kosarica/import-wizard/internal/http/ratelimit"
	"github.com/kosarica/import-wizard/internal/types"
)

const (
	opParse   = "parse"
	opPreview = "preview"
	opConfirm = "confirm"

	maxResponseBytes = 64 << 20
	userAgent        = "Kosarica-ImportWizard/1.0"
)

// TokenSource supplies bearer tokens and performs at most one refresh per call
type TokenSource interface {
	CurrentToken() string
	Refresh(ctx context.Context, rejected string) (string, bool)
}

// Options configures a Client
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit ratelimit.Config
	Tokens    TokenSource
	Logger    *zerolog.Logger
}

// Client issues typed calls against the remote import API. Every call carries
// the current bearer token; a 401 triggers one token refresh and one replay of
// the identical request. Nothing else is retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     TokenSource
	logger     *zerolog.Logger
	tracer     trace.Tracer
}

// NewClient creates a new import API client
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: ratelimit.NewLimiter(opts.RateLimit),
		tokens:  opts.Tokens,
		logger:  logger,
		tracer:  otel.Tracer("github.com/kosarica/import-wizard/internal/http"),
	}
}

// Parse uploads a file for remote parsing
func (c *Client) Parse(ctx context.Context, file *types.FileHandle) (*types.ParseResult, error) {
	if file == nil {
		return nil, &RemoteError{Op: opParse, Err: errors.New("no file")}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	header.Set("Content-Type", file.Type.ContentType())
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, &RemoteError{Op: opParse, Err: err}
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, &RemoteError{Op: opParse, Err: err}
	}
	if err := w.Close(); err != nil {
		return nil, &RemoteError{Op: opParse, Err: err}
	}

	body, err := c.do(ctx, opParse, "/imports/parse", w.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, err
	}
	root, err := decodeObject(body)
	if err != nil {
		return nil, &RemoteError{Op: opParse, Attempts: 1, Err: err}
	}
	return normalizeParse(root), nil
}

// Preview requests a preview computation for the given parameters
func (c *Client) Preview(ctx context.Context, req types.PreviewRequest) (*types.ImportPreview, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &RemoteError{Op: opPreview, Err: err}
	}
	body, err := c.do(ctx, opPreview, "/imports/preview", "application/json", payload)
	if err != nil {
		return nil, err
	}
	root, err := decodeObject(body)
	if err != nil {
		return nil, &RemoteError{Op: opPreview, Attempts: 1, Err: err}
	}
	return normalizePreview(root), nil
}

// Confirm commits the import. Apart from the 401 replay it is sent once.
func (c *Client) Confirm(ctx context.Context, req types.ConfirmRequest) (*types.ConfirmResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &RemoteError{Op: opConfirm, Err: err}
	}
	body, err := c.do(ctx, opConfirm, "/imports/confirm", "application/json", payload)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &types.ConfirmResult{}, nil
	}
	root, err := decodeObject(body)
	if err != nil {
		// Success does not depend on the body.
		c.logger.Debug().Err(err).Msg("Ignoring undecodable confirm body")
		return &types.ConfirmResult{}, nil
	}
	return normalizeConfirm(root), nil
}

// do performs a POST with bearer authentication and the single
// refresh-and-replay on 401
func (c *Client) do(ctx context.Context, op, path, contentType string, payload []byte) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "import."+op, trace.WithAttributes(
		attribute.String("import.op", op),
		attribute.Int("import.request_bytes", len(payload)),
	))
	defer span.End()

	start := time.Now()
	defer func() { apiDuration.WithLabelValues(op).Observe(time.Since(start).Seconds()) }()

	token := c.currentToken()
	status, body, err := c.send(ctx, path, contentType, payload, token)
	attempts := 1

	if err == nil && status == http.StatusUnauthorized {
		c.logger.Debug().Str("op", op).Msg("Access token rejected, refreshing")
		fresh, ok := c.refresh(ctx, token)
		if !ok {
			return nil, c.fail(span, op, &RemoteError{Op: op, Status: status, Attempts: attempts, Err: ErrUnauthorized})
		}
		apiAuthReplays.WithLabelValues(op).Inc()
		status, body, err = c.send(ctx, path, contentType, payload, fresh)
		attempts++
		if err == nil && status == http.StatusUnauthorized {
			return nil, c.fail(span, op, &RemoteError{Op: op, Status: status, Attempts: attempts, Err: ErrUnauthorized})
		}
	}

	span.SetAttributes(attribute.Int("import.attempts", attempts), attribute.Int("http.status_code", status))

	if err != nil {
		return nil, c.fail(span, op, &RemoteError{Op: op, Attempts: attempts, Err: err})
	}
	if !IsSuccessStatus(status) {
		return nil, c.fail(span, op, &RemoteError{Op: op, Status: status, Attempts: attempts, Body: snippet(body)})
	}

	apiRequests.WithLabelValues(op, "ok").Inc()
	c.logger.Debug().Str("op", op).Int("status", status).Int("attempts", attempts).Dur("latency", time.Since(start)).Msg("Import API call succeeded")
	return body, nil
}

func (c *Client) send(ctx context.Context, path, contentType string, payload []byte, token string) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) currentToken() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.CurrentToken()
}

func (c *Client) refresh(ctx context.Context, rejected string) (string, bool) {
	if c.tokens == nil {
		return "", false
	}
	return c.tokens.Refresh(ctx, rejected)
}

func (c *Client) fail(span trace.Span, op string, err *RemoteError) error {
	outcome := "error"
	if errors.Is(err.Err, ErrUnauthorized) {
		outcome = "unauthorized"
	}
	apiRequests.WithLabelValues(op, outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Warn().Err(err).Str("op", op).Int("status", err.Status).Msg("Import API call failed")
	return err
}

func decodeObject(body []byte) (map[string]any, error) {
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedResponse)
	}
	return root, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
