package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/circuit"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/sentinel"
)

const defaultClientTimeout = 10 * time.Second

// Client is the HTTP identity agent. All calls run through a circuit
// breaker; while the circuit is open they fail fast with
// sentinel.ErrUnavailable instead of hitting the wire.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuit.Breaker
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClientLogger sets the logger for circuit state transitions.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an agent client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultClientTimeout},
		breaker:    circuit.New("identity-agent"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type mintResponse struct {
	DID      string          `json:"did"`
	Document models.Document `json:"document"`
}

// MintIdentity asks the agent for a brand new identity.
func (c *Client) MintIdentity(ctx context.Context) (Minted, error) {
	if c.breaker.IsOpen() {
		return Minted{}, fmt.Errorf("mint identity: circuit open: %w", sentinel.ErrUnavailable)
	}

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/identities", http.StatusCreated)
	if err != nil {
		return Minted{}, fmt.Errorf("mint identity: %w", err)
	}

	var resp mintResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Minted{}, fmt.Errorf("mint identity: decode response: %w", sentinel.ErrUnavailable)
	}
	did, err := id.ParseDID(resp.DID)
	if err != nil {
		return Minted{}, fmt.Errorf("mint identity: agent returned malformed did %q: %w", resp.DID, sentinel.ErrUnavailable)
	}
	return Minted{DID: did, Document: resp.Document}, nil
}

// ResolveExternally fetches the document for an identity from the agent.
func (c *Client) ResolveExternally(ctx context.Context, did id.DID) (*models.Document, error) {
	if c.breaker.IsOpen() {
		return nil, fmt.Errorf("resolve externally: circuit open: %w", sentinel.ErrUnavailable)
	}

	endpoint := c.baseURL + "/v1/identities/" + url.PathEscape(did.String())
	body, err := c.do(ctx, http.MethodGet, endpoint, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("resolve externally: %w", err)
	}

	var doc models.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("resolve externally: decode response: %w", sentinel.ErrUnavailable)
	}
	return &doc, nil
}

// do executes one agent request and records the outcome on the breaker.
// A 404 counts as a successful call: the agent answered, the identity does
// not exist.
func (c *Client) do(ctx context.Context, method, endpoint string, wantStatus int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("%v: %w", err, sentinel.ErrUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		c.recordSuccess()
		return nil, sentinel.ErrNotFound
	}
	if resp.StatusCode != wantStatus {
		c.recordFailure()
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("read response: %w", sentinel.ErrUnavailable)
	}
	c.recordSuccess()
	return body, nil
}

func (c *Client) recordFailure() {
	_, change := c.breaker.RecordFailure()
	if change.Opened && c.logger != nil {
		c.logger.Warn("identity agent circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordSuccess() {
	_, change := c.breaker.RecordSuccess()
	if change.Closed && c.logger != nil {
		c.logger.Info("identity agent circuit closed", "breaker", c.breaker.Name())
	}
}
