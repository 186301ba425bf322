// Package backend is the HTTP client for the viva backend: it starts
// sessions (minting the ephemeral live credential) and persists conclusions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseURL = "http://localhost:8000"

	startPath    = "/api/v1/viva/start"
	concludePath = "/api/v1/viva/conclude-viva"
	healthPath   = "/health"

	defaultTimeout = 30 * time.Second
)

// TokenProvider returns the bearer token for a request. It is called for
// every request so tokens can rotate; an empty token sends no header.
type TokenProvider func(ctx context.Context) (string, error)

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithTokenProvider(tokens TokenProvider) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// StaticToken returns a provider that always yields token.
func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) { return token, nil }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
					return operationName + " " + request.URL.Path
				}),
			),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) StartSession(ctx context.Context, req StartRequest) (*StartResponse, error) {
	ctx, span := tracer.Start(ctx, "start viva session")
	defer span.End()
	span.SetAttributes(attribute.String("viva.topic", req.Topic), attribute.Int("viva.class_level", req.ClassLevel))

	var resp StartResponse
	if err := c.do(ctx, http.MethodPost, startPath, req, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("viva.session_id", resp.SessionID))
	return &resp, nil
}

func (c *Client) ConcludeSession(ctx context.Context, req ConcludeRequest) (*ConcludeResponse, error) {
	ctx, span := tracer.Start(ctx, "conclude viva session")
	defer span.End()
	span.SetAttributes(attribute.String("viva.session_id", req.SessionID), attribute.Float64("viva.score", req.Score))

	var resp ConcludeResponse
	if err := c.do(ctx, http.MethodPost, concludePath, req, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, healthPath, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshalling request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens(ctx)
		if err != nil {
			return fmt.Errorf("error getting auth token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, respBody)
		logger.Warn("backend request failed", "path", path, "status", resp.StatusCode, "detail", apiErr.Detail)
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error unmarshalling response: %w", err)
	}
	return nil
}
