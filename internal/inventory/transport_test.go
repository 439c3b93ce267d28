package inventory

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"hostscope/internal/config"
)

func TestNewTransport_Plain(t *testing.T) {
	tr, err := NewTransport(config.Default(), nil)
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	if tr.Name() != TransportPlain {
		t.Errorf("transport = %s, want plain", tr.Name())
	}
}

func TestNewTransport_MissingTLSCredentials(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*config.Config)
	}{
		{"no ca", func(c *config.Config) {}},
		{"no cert", func(c *config.Config) { c.SSLCA = "ca.pem" }},
		{"no key", func(c *config.Config) { c.SSLCA, c.SSLCert = "ca.pem", "cert.pem" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.UseSSL = true
			tt.mod(&cfg)

			_, err := New(cfg)
			if !IsConfiguration(err) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if !errors.Is(err, config.ErrMissingCredential) {
				t.Errorf("expected ErrMissingCredential in chain, got %v", err)
			}
		})
	}
}

func TestNewTransport_UnreadableTLSFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.UseSSL = true
	cfg.SSLCA = filepath.Join(dir, "missing-ca.pem")
	cfg.SSLCert = filepath.Join(dir, "missing-cert.pem")
	cfg.SSLPrivateKey = filepath.Join(dir, "missing-key.pem")

	if _, err := NewTransport(cfg, nil); !IsConfiguration(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestNewTransport_NegotiateMissingKrb5Config(t *testing.T) {
	cfg := config.Default()
	cfg.UseNegotiatedAuth = true
	cfg.Krb5Config = filepath.Join(t.TempDir(), "krb5.conf")

	if _, err := NewTransport(cfg, nil); !IsConfiguration(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestTLSTransport_ClientCertificate(t *testing.T) {
	dir := t.TempDir()
	clientCert, certPath, keyPath := writeClientCert(t, dir)

	clientCAs := x509.NewCertPool()
	clientCAs.AddCert(clientCert)

	var peerCN string
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.TLS.PeerCertificates) > 0 {
			peerCN = r.TLS.PeerCertificates[0].Subject.CommonName
		}
		fmt.Fprint(w, `[{"certname":"secure.your.com"}]`)
	}))
	server.TLS = &tls.Config{ClientAuth: tls.RequireAndVerifyClientCert, ClientCAs: clientCAs}
	server.StartTLS()
	defer server.Close()

	caPath := filepath.Join(dir, "ca.pem")
	writePEM(t, caPath, "CERTIFICATE", server.Certificate().Raw)

	cfg := configFor(t, server)
	cfg.UseSSL = true
	cfg.SSLCA, cfg.SSLCert, cfg.SSLPrivateKey = caPath, certPath, keyPath

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.TransportName() != TransportTLS {
		t.Errorf("transport = %s, want tls", client.TransportName())
	}
	hosts, err := client.Nodes(context.Background())
	if err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	if diff := cmp.Diff([]string{"secure.your.com"}, hosts); diff != "" {
		t.Errorf("hosts mismatch (-want +got):\n%s", diff)
	}
	if peerCN != "client.your.com" {
		t.Errorf("server saw client CN %q", peerCN)
	}
}

func TestTLSTransport_UntrustedServer(t *testing.T) {
	dir := t.TempDir()
	clientCert, certPath, keyPath := writeClientCert(t, dir)

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	// Trust only the client certificate, not the server's.
	caPath := filepath.Join(dir, "ca.pem")
	writePEM(t, caPath, "CERTIFICATE", clientCert.Raw)

	cfg := configFor(t, server)
	cfg.UseSSL = true
	cfg.SSLCA, cfg.SSLCert, cfg.SSLPrivateKey = caPath, certPath, keyPath

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Nodes(context.Background()); !IsTransport(err) {
		t.Errorf("expected TransportError for handshake failure, got %v", err)
	}
}

type fakeSPNEGO struct {
	httpClient *http.Client
	err        error
	rawQuery   string
}

func (f *fakeSPNEGO) Do(req *http.Request) (*http.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.rawQuery = req.URL.RawQuery
	req.Header.Set("Authorization", "Negotiate dG9rZW4=")
	return f.httpClient.Do(req)
}

func TestNegotiateTransport_PercentEncodedQuery(t *testing.T) {
	var gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `[{"certname":"kerb.your.com"}]`)
	}))
	defer server.Close()

	fake := &fakeSPNEGO{httpClient: server.Client()}
	tr := &negotiateTransport{baseURL: server.URL, client: fake}

	client, err := New(configFor(t, server), WithTransport(tr))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	q := []byte(`["=",["fact","os name"],"Red Hat"]`)
	resp, err := tr.Do(context.Background(), "/v3/nodes", q)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if gotQuery != string(q) {
		t.Errorf("server decoded query %s", gotQuery)
	}
	if strings.Contains(fake.rawQuery, "+") || !strings.Contains(fake.rawQuery, "%20") {
		t.Errorf("raw query not percent-encoded: %s", fake.rawQuery)
	}
	if gotAuth == "" {
		t.Error("expected Authorization header")
	}

	hosts, err := client.Nodes(context.Background())
	if err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	if diff := cmp.Diff([]string{"kerb.your.com"}, hosts); diff != "" {
		t.Errorf("hosts mismatch (-want +got):\n%s", diff)
	}
}

func TestNegotiateTransport_NegotiationFailure(t *testing.T) {
	tr := &negotiateTransport{baseURL: "http://inventory.invalid", client: &fakeSPNEGO{err: errors.New("no valid ticket")}}
	client, err := New(config.Default(), WithTransport(tr))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Nodes(context.Background())
	if !IsTransport(err) {
		t.Errorf("expected TransportError, got %v", err)
	}
}

func TestPercentEncode(t *testing.T) {
	got := percentEncode(`["~","title","a b+c"]`)
	want := "%5B%22~%22%2C%22title%22%2C%22a%20b%2Bc%22%5D"
	if got != want {
		t.Errorf("percentEncode = %s, want %s", got, want)
	}
}

// writeClientCert creates a self-signed client certificate and key.
func writeClientCert(t *testing.T, dir string) (*x509.Certificate, string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(42),
		Subject:               pkix.Name{CommonName: "client.your.com"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certPath := filepath.Join(dir, "client.pem")
	keyPath := filepath.Join(dir, "client.key")
	writePEM(t, certPath, "CERTIFICATE", der)
	writePEM(t, keyPath, "EC PRIVATE KEY", keyDER)
	return cert, certPath, keyPath
}

func writePEM(t *testing.T, path, blockType string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}
