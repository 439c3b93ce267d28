package inventory

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/jcmturner/gokrb5/v8/client"
	krbconfig "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
	"github.com/jcmturner/gokrb5/v8/spnego"

	"hostscope/internal/config"
)

// Transport names.
const (
	TransportPlain     = "plain"
	TransportTLS       = "tls"
	TransportNegotiate = "negotiate"
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 64 << 20

// Response is what a Transport hands back for one request.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// Transport performs a single GET against the inventory service. query is
// the serialized AST, or nil for no query parameter. Implementations return
// an error only when no HTTP response was obtained.
type Transport interface {
	Name() string
	Do(ctx context.Context, path string, query []byte) (*Response, error)
}

// NewTransport selects and sets up the transport the configuration asks
// for. It is the only place the transport mode is inspected. Setup failures
// are returned as KindConfiguration errors before any request is sent.
func NewTransport(cfg config.Config, httpClient *http.Client) (Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, newError(KindConfiguration, "setup transport", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	} else {
		c := *httpClient
		httpClient = &c
	}
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout.Duration()
	}

	switch {
	case bool(cfg.UseSSL):
		tlsConfig, err := loadTLSConfig(cfg)
		if err != nil {
			return nil, newError(KindConfiguration, "setup tls transport", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: tlsConfig,
		}
		return &httpTransport{name: TransportTLS, baseURL: cfg.BaseURL(), client: httpClient}, nil

	case bool(cfg.UseNegotiatedAuth):
		spn, err := newSPNEGOClient(cfg, httpClient)
		if err != nil {
			return nil, newError(KindConfiguration, "setup negotiate transport", err)
		}
		return &negotiateTransport{baseURL: cfg.BaseURL(), client: spn}, nil
	}

	return &httpTransport{name: TransportPlain, baseURL: cfg.BaseURL(), client: httpClient}, nil
}

// loadTLSConfig builds a client-certificate TLS config that verifies the
// server against the configured CA bundle.
func loadTLSConfig(cfg config.Config) (*tls.Config, error) {
	caPEM, err := os.ReadFile(cfg.SSLCA)
	if err != nil {
		return nil, fmt.Errorf("read ssl_ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("ssl_ca %s: no certificates found", cfg.SSLCA)
	}

	cert, err := tls.LoadX509KeyPair(cfg.SSLCert, cfg.SSLPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}

	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// httpTransport serves both the plain and the TLS modes; they differ only
// in the underlying http.Client. The query is form-encoded.
type httpTransport struct {
	name    string
	baseURL string
	client  *http.Client
}

func (t *httpTransport) Name() string { return t.name }

func (t *httpTransport) Do(ctx context.Context, path string, query []byte) (*Response, error) {
	u := t.baseURL + path
	if query != nil {
		u += "?" + url.Values{"query": {string(query)}}.Encode()
	}
	req, err := newRequest(ctx, u)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	return readResponse(resp)
}

// spnegoDoer is the part of *spnego.Client the transport uses.
type spnegoDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// negotiateTransport authenticates every request with a Kerberos SPNEGO
// token. The query is percent-encoded into the URL.
type negotiateTransport struct {
	baseURL string
	client  spnegoDoer
}

func newSPNEGOClient(cfg config.Config, httpClient *http.Client) (*spnego.Client, error) {
	krbConf, err := krbconfig.Load(cfg.Krb5Config)
	if err != nil {
		return nil, fmt.Errorf("load krb5 config %s: %w", cfg.Krb5Config, err)
	}
	ccache, err := credentials.LoadCCache(cfg.Krb5CCache)
	if err != nil {
		return nil, fmt.Errorf("load credential cache %s: %w", cfg.Krb5CCache, err)
	}
	cl, err := client.NewFromCCache(ccache, krbConf, client.DisablePAFXFAST(true))
	if err != nil {
		return nil, fmt.Errorf("kerberos client: %w", err)
	}
	return spnego.NewClient(cl, httpClient, cfg.ServicePrincipal), nil
}

func (t *negotiateTransport) Name() string { return TransportNegotiate }

func (t *negotiateTransport) Do(ctx context.Context, path string, query []byte) (*Response, error) {
	u := t.baseURL + path
	if query != nil {
		u += "?query=" + percentEncode(string(query))
	}
	req, err := newRequest(ctx, u)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spnego: %w", err)
	}
	return readResponse(resp)
}

// percentEncode escapes s for a query string using %20 for spaces.
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func newRequest(ctx context.Context, u string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func readResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Status: resp.Status, Body: body}, nil
}
