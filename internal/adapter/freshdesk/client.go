// Package freshdesk provides an HTTP client for the Freshdesk agents API.
package freshdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/AgentShift/internal/port/helpdesk"
	"github.com/Strob0t/AgentShift/internal/resilience"
)

// agent is the subset of the /api/v2/agents payload the poller needs.
type agent struct {
	ID        int64 `json:"id"`
	Available bool  `json:"available"`
	Contact   struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"contact"`
}

// DefaultMaxResponseBytes caps a single API response body.
const DefaultMaxResponseBytes = 16 << 20

// Client talks to the Freshdesk v2 API.
type Client struct {
	baseURL    string
	apiKey     string
	keySource  func() string
	httpClient *http.Client
	breaker    *resilience.Breaker
	maxBody    int64
}

var _ helpdesk.Source = (*Client)(nil)

// NewClient creates a Freshdesk client. connectTimeout bounds dialing and
// readTimeout bounds waiting for the response.
func NewClient(baseURL, apiKey string, connectTimeout, readTimeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		maxBody: DefaultMaxResponseBytes,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   connectTimeout + readTimeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// SetMaxResponseBytes overrides the response body cap. Non-positive values
// are ignored.
func (c *Client) SetMaxResponseBytes(n int64) {
	if n > 0 {
		c.maxBody = n
	}
}

// SetKeySource makes every request read the API key from fn, so a rotated
// key takes effect without rebuilding the client. An empty result falls
// back to the key given to NewClient.
func (c *Client) SetKeySource(fn func() string) {
	c.keySource = fn
}

func (c *Client) key() string {
	if c.keySource != nil {
		if k := c.keySource(); k != "" {
			return k
		}
	}
	return c.apiKey
}

// ListAgents fetches one page of agents.
func (c *Client) ListAgents(ctx context.Context, page, perPage int) ([]helpdesk.AgentStatus, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))

	data, err := c.doRequest(ctx, "/api/v2/agents?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("list agents page %d: %w", page, err)
	}

	var agents []agent
	if err := json.Unmarshal(data, &agents); err != nil {
		return nil, fmt.Errorf("unmarshal agents page %d: %w", page, err)
	}

	out := make([]helpdesk.AgentStatus, 0, len(agents))
	for _, a := range agents {
		out = append(out, helpdesk.AgentStatus{
			ID:        a.ID,
			Name:      a.Contact.Name,
			Email:     a.Contact.Email,
			Available: a.Available,
		})
	}
	return out, nil
}

func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	var result []byte
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(c.key(), "X")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if int64(len(data)) > c.maxBody {
			return fmt.Errorf("response exceeds %d bytes", c.maxBody)
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("freshdesk API error %d: %s", resp.StatusCode, truncate(string(data), 200))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.ExecuteContext(ctx, call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
