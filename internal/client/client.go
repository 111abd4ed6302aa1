// Package client is the ChatBees API client.
//
// A Client carries its own credentials, account and namespace, so clients
// for different accounts can be used side by side in one process. Every call
// takes a context and returns an *APIError for failed responses; use
// errors.Is with the Err* sentinels to tell failures apart.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/chatbees/chatbees-go/internal/config"
	"github.com/chatbees/chatbees-go/internal/model"
	"github.com/chatbees/chatbees-go/pkg/logger"
	"github.com/chatbees/chatbees-go/pkg/metrics"
)

const (
	tracerName = "github.com/chatbees/chatbees-go/internal/client"

	// CorrelationHeader is sent with every request.
	CorrelationHeader = "X-Correlation-ID"

	apiKeyHeader = "api-key"
	orgURLHeader = "x-org-url"
)

// Options configures a Client.
type Options struct {
	APIKey    string
	AccountID string
	Namespace string

	// BaseURL overrides the account URL, e.g. for tests or a local backend.
	BaseURL string

	HTTPClient *http.Client
	Logger     *logger.Logger
}

// Client talks to the ChatBees service.
type Client struct {
	apiKey    string
	accountID string
	namespace string
	baseURL   string
	http      *http.Client
	logger    *logger.Logger
}

// New creates a client.
func New(opts Options) (*Client, error) {
	if opts.AccountID == "" {
		opts.AccountID = config.PublicAccount
	}
	if strings.ContainsAny(opts.AccountID, "/:. ") {
		return nil, fmt.Errorf("%w %q", ErrInvalidAccount, opts.AccountID)
	}
	if opts.Namespace == "" {
		opts.Namespace = config.PublicNamespace
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.us-west-2.aws.chatbees.ai", opts.AccountID)
	}

	return &Client{
		apiKey:    opts.APIKey,
		accountID: opts.AccountID,
		namespace: opts.Namespace,
		baseURL:   baseURL,
		http:      opts.HTTPClient,
		logger:    opts.Logger.With(zap.String("account_id", opts.AccountID)),
	}, nil
}

// FromConfig creates a client from application configuration.
func FromConfig(cfg *config.Config, log *logger.Logger) (*Client, error) {
	return New(Options{
		APIKey:     cfg.APIKey,
		AccountID:  cfg.AccountID,
		Namespace:  cfg.Namespace,
		BaseURL:    cfg.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Logger:     log,
	})
}

// AccountID returns the account the client talks to.
func (c *Client) AccountID() string {
	return c.accountID
}

// Namespace returns the namespace used for collection requests.
func (c *Client) Namespace() string {
	return c.namespace
}

// BaseURL returns the service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasAPIKey reports whether an API key is configured.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// collectionRequest addresses a collection in the client's namespace.
func (c *Client) collectionRequest(collection string) model.CollectionBaseRequest {
	return model.CollectionBaseRequest{NamespaceName: c.namespace, CollectionName: collection}
}

// postJSON posts body as JSON to path and decodes the response into out.
// out may be nil when the response carries nothing of interest.
func (c *Client) postJSON(ctx context.Context, path string, body, out any, requireKey bool) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, path, out, requireKey)
}

// do sends req and decodes a successful JSON response into out.
func (c *Client) do(req *http.Request, endpoint string, out any, requireKey bool) (err error) {
	if requireKey && c.apiKey == "" {
		return ErrAPIKeyRequired
	}

	ctx, span := otel.Tracer(tracerName).Start(req.Context(), req.Method+" "+endpoint)
	defer span.End()
	req = req.WithContext(ctx)

	correlationID := uuid.New().String()
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	if c.isLocal() {
		req.Header.Set(orgURLHeader, c.accountID)
	}
	req.Header.Set(CorrelationHeader, correlationID)

	span.SetAttributes(
		attribute.String("chatbees.account_id", c.accountID),
		attribute.String("chatbees.endpoint", endpoint),
		attribute.String("correlation_id", correlationID),
	)

	log := c.logger.With(
		zap.String("endpoint", endpoint),
		zap.String("correlation_id", correlationID),
	)

	start := time.Now()
	outcome := "ok"
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.RecordBackendCall(endpoint, outcome, time.Since(start).Seconds())
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		outcome = "transport_error"
		log.Warn("chatbees request failed", zap.Error(err))
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if err := checkResponse(resp); err != nil {
		outcome = "status_" + fmt.Sprint(resp.StatusCode)
		log.Info("chatbees request rejected",
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return err
	}

	log.Debug("chatbees request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := decodeBody(resp.Body, out); err != nil {
		outcome = "decode_error"
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// decodeBody decodes a JSON body into out. Some endpoints answer with a JSON
// string that itself holds the JSON document; both forms are accepted.
func decodeBody(r io.Reader, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return err
		}
		trimmed = []byte(inner)
	}
	return json.Unmarshal(trimmed, out)
}

func (c *Client) isLocal() bool {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
