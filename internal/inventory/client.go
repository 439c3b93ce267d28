package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"hostscope/internal/config"
	"hostscope/internal/logging"
	"hostscope/internal/metrics"
	"hostscope/internal/query"
)

// maxMessageLen bounds the server message kept on a RequestFailed error.
const maxMessageLen = 512

// Client issues queries against the inventory service. It is safe for
// concurrent use; nothing in it changes after New returns.
type Client struct {
	transport  Transport
	apiVersion string
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient *http.Client
	transport  Transport
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New validates cfg, sets up the configured transport and returns a Client.
// Missing TLS credentials fail here with a KindConfiguration error.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	cc := &clientConfig{}
	for _, opt := range opts {
		if err := opt(cc); err != nil {
			return nil, err
		}
	}

	t := cc.transport
	if t == nil {
		var err error
		t, err = NewTransport(cfg, cc.httpClient)
		if err != nil {
			return nil, err
		}
	}

	logger := cc.logger
	if logger == nil {
		logger = logging.Discard()
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = config.DefaultAPIVersion
	}

	return &Client{
		transport:  t,
		apiVersion: apiVersion,
		timeout:    cfg.Timeout.Duration(),
		logger:     logger,
		metrics:    cc.metrics,
	}, nil
}

// WithHTTPClient overrides the base HTTP client used by the plain and TLS
// transports and wrapped by the negotiate transport.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithTransport bypasses transport selection.
func WithTransport(t Transport) Option {
	return func(cfg *clientConfig) error {
		if t == nil {
			return errors.New("inventory: nil transport")
		}
		cfg.transport = t
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithMetrics records request counts and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *clientConfig) error {
		cfg.metrics = m
		return nil
	}
}

// APIVersion is the inventory API generation the client talks to.
func (c *Client) APIVersion() string { return c.apiVersion }

// TransportName is the name of the selected transport.
func (c *Client) TransportName() string { return c.transport.Name() }

// Query sends n to endpoint and returns the decoded records. A nil n sends
// no query parameter.
func (c *Client) Query(ctx context.Context, endpoint query.Endpoint, n query.Node) ([]Record, error) {
	op := "query " + endpoint.String()

	q, err := query.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("%s: serialize query: %w", op, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	path := fmt.Sprintf("/v%s/%s", c.apiVersion, endpoint)
	c.logger.InfoContext(ctx, "inventory request",
		"endpoint", endpoint.String(), "transport", c.transport.Name(), "path", path, "query", string(q))

	start := time.Now()
	resp, err := c.transport.Do(ctx, path, q)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordRequest(endpoint.String(), c.transport.Name(), 0, elapsed)
		return nil, classifyTransportError(ctx, op, err)
	}
	c.metrics.RecordRequest(endpoint.String(), c.transport.Name(), resp.StatusCode, elapsed)

	c.logger.DebugContext(ctx, "inventory response",
		"endpoint", endpoint.String(), "status", resp.StatusCode, "bytes", len(resp.Body), "elapsed", elapsed)

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Kind:       KindRequestFailed,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    serverMessage(resp),
		}
	}

	records, err := decodeRecords(resp.Body)
	if err != nil {
		return nil, newError(KindMalformedResponse, op, err)
	}
	return records, nil
}

// Nodes returns the identifier of every node known to the service.
func (c *Client) Nodes(ctx context.Context) ([]string, error) {
	return c.NodesMatching(ctx, nil)
}

// NodesMatching queries the nodes endpoint and returns the host identifiers.
func (c *Client) NodesMatching(ctx context.Context, n query.Node) ([]string, error) {
	records, err := c.Query(ctx, query.Nodes, n)
	if err != nil {
		return nil, err
	}
	return HostNames(records)
}

func classifyTransportError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newError(KindTimeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindTimeout, op, err)
	}
	return newError(KindTransport, op, err)
}

func serverMessage(resp *Response) string {
	msg := strings.TrimSpace(string(resp.Body))
	if msg == "" {
		msg = resp.Status
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen] + "..."
	}
	return msg
}

func decodeRecords(body []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("expected a JSON array, got %q", preview(trimmed))
	}
	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return records, nil
}

func preview(b []byte) string {
	const n = 64
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
