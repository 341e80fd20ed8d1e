package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// CredentialReader supplies the credential attached to outgoing requests.
type CredentialReader interface {
	Get() (models.Credential, error)
}

// Invalidator receives session-invalidation signals detected in responses.
type Invalidator interface {
	Invalidate(reason string) error
}

// Requester issues a single API call. [Gateway] is the production implementation.
type Requester interface {
	Request(ctx context.Context, method, path string, body any, query url.Values) (*APIResponse, error)
}

// Gateway wraps every outbound call to the movie API.
//
// It injects the stored bearer credential before the call and classifies the response after it.
type Gateway struct {
	baseURL     string
	httpClient  *http.Client
	store       CredentialReader
	invalidator Invalidator
	logger      *log.Logger
}

// GatewayOpts configures a [Gateway].
type GatewayOpts struct {
	BaseURL     string
	HTTPClient  *http.Client
	Store       CredentialReader
	Invalidator Invalidator
	Logger      *log.Logger
}

// NewGateway creates a [Gateway]. A nil HTTP client falls back to [http.DefaultClient].
func NewGateway(opts GatewayOpts) *Gateway {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Gateway{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  opts.HTTPClient,
		store:       opts.Store,
		invalidator: opts.Invalidator,
		logger:      opts.Logger,
	}
}

// SetInvalidator wires the session after construction, since the session itself depends on the store.
func (g *Gateway) SetInvalidator(inv Invalidator) {
	g.invalidator = inv
}

// BaseURL returns the API root without a trailing slash.
func (g *Gateway) BaseURL() string { return g.baseURL }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
	RequestID  string
}

// Decode unmarshals the response body into v.
func (r *APIResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// Request performs a call and applies session effects for invalidation outcomes.
//
// body may be nil, a []byte sent as-is, or any value encoded as JSON.
// For non-2xx responses both the response and an [*APIError] are returned so callers can still inspect the raw body.
func (g *Gateway) Request(ctx context.Context, method, path string, body any, query url.Values) (*APIResponse, error) {
	fullURL := g.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	g.authorize(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrCanceled, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s %s: %v", shared.ErrServiceUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
		RequestID:  requestID,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	g.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return apiResp, nil
	}

	apiErr := newAPIError(resp.StatusCode, data)
	g.apply(apiErr)
	return apiResp, apiErr
}

// authorize sets the bearer header when the store holds a credential.
func (g *Gateway) authorize(req *http.Request) {
	if g.store == nil {
		return
	}

	cred, err := g.store.Get()
	if err != nil {
		if !errors.Is(err, shared.ErrNoCredential) {
			g.logger.Warn("failed to read credential, sending unauthenticated", "error", err)
		}
		return
	}
	if cred.IsZero() {
		return
	}

	token := &oauth2.Token{AccessToken: string(cred), TokenType: "Bearer"}
	token.SetAuthHeader(req)
}

// apply is the effect step that follows [Classify].
func (g *Gateway) apply(apiErr *APIError) {
	if !apiErr.Outcome.Invalidates() {
		return
	}

	g.logger.Warn("session invalidated by server", "outcome", apiErr.Outcome, "status", apiErr.StatusCode)
	if g.invalidator == nil {
		return
	}
	if err := g.invalidator.Invalidate(string(apiErr.Outcome)); err != nil {
		g.logger.Error("failed to invalidate session", "error", err)
	}
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encode request body: %v", shared.ErrInvalidInput, err)
		}
		return data, nil
	}
}

// Get, Post, Patch and Delete are shorthands for [Gateway.Request].

func (g *Gateway) Get(ctx context.Context, path string, query url.Values) (*APIResponse, error) {
	return g.Request(ctx, http.MethodGet, path, nil, query)
}

func (g *Gateway) Post(ctx context.Context, path string, body any) (*APIResponse, error) {
	return g.Request(ctx, http.MethodPost, path, body, nil)
}

func (g *Gateway) Patch(ctx context.Context, path string, body any) (*APIResponse, error) {
	return g.Request(ctx, http.MethodPatch, path, body, nil)
}

func (g *Gateway) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return g.Request(ctx, http.MethodDelete, path, nil, nil)
}

var _ Requester = (*Gateway)(nil)
