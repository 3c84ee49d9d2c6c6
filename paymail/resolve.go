package paymail

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bitfsorg/revsplit-go/revshare"
)

// MaxPaymailResponseSize caps every paymail response body.
const MaxPaymailResponseSize = 64 << 10

// Known Paymail capability keys.
const (
	capPKI          = "pki"
	capPKIFull      = "0c4339ef99c2"
	capVerifyPubKey = "a9f510c16bde"
)

// Capabilities holds discovered Paymail server capabilities.
type Capabilities struct {
	BSVAlias     string
	PKI          string // URL template for public key infrastructure
	VerifyPubKey string // URL template for key verification
	Receiver     string // URL template of BRFCRoyaltyReceiver, if advertised
}

// PKIResponse holds the response from a Paymail PKI endpoint.
type PKIResponse struct {
	BSVAlias string `json:"bsvalias"`
	Handle   string `json:"handle"`
	PubKey   string `json:"pubkey"` // Hex-encoded compressed public key
}

// wellKnownResponse represents the JSON structure of .well-known/bsvalias.
type wellKnownResponse struct {
	BSVAlias     string                     `json:"bsvalias"`
	Capabilities map[string]json.RawMessage `json:"capabilities"`
}

// Client resolves handles over DNS and HTTPS.
type Client struct {
	http          *http.Client
	resolver      DNSResolver
	logger        *zap.Logger
	requireDNSSEC bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithResolver replaces the DNSSEC resolver.
func WithResolver(r DNSResolver) Option {
	return func(cl *Client) { cl.resolver = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithStrictDNSSEC makes an unauthenticated SRV answer fatal instead of
// falling back to the bare domain.
func WithStrictDNSSEC() Option {
	return func(cl *Client) { cl.requireDNSSEC = true }
}

// NewClient creates a resolver client with a DNSSEC resolver on 8.8.8.8.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		resolver: NewDNSSECResolver(""),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the host:port serving paymail for domain: the best SRV
// target, or domain:443 when no usable SRV record exists.
func (c *Client) Endpoint(ctx context.Context, domain string) (string, error) {
	endpoints, err := ResolveEndpoints(ctx, domain, c.resolver)
	if err == nil {
		return endpoints[0], nil
	}
	if c.requireDNSSEC && errors.Is(err, ErrDNSSECValidationFailed) {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	c.logger.Debug("paymail SRV unavailable, using domain",
		zap.String("domain", domain), zap.Error(err))
	return net.JoinHostPort(domain, "443"), nil
}

// DiscoverCapabilities fetches https://endpoint/.well-known/bsvalias.
func (c *Client) DiscoverCapabilities(ctx context.Context, endpoint string) (*Capabilities, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: empty endpoint", ErrPaymailDiscovery)
	}

	var wk wellKnownResponse
	if err := c.getJSON(ctx, "https://"+endpoint+"/.well-known/bsvalias", &wk); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymailDiscovery, err)
	}

	caps := &Capabilities{BSVAlias: wk.BSVAlias}
	for key, raw := range wk.Capabilities {
		var urlStr string
		if err := json.Unmarshal(raw, &urlStr); err != nil {
			// Flag-style capabilities carry booleans or objects.
			continue
		}
		switch key {
		case capPKI, capPKIFull:
			caps.PKI = urlStr
		case capVerifyPubKey:
			caps.VerifyPubKey = urlStr
		case BRFCRoyaltyReceiver:
			caps.Receiver = urlStr
		}
	}
	return caps, nil
}

// ResolvePubKey returns the compressed public key published for h.
func (c *Client) ResolvePubKey(ctx context.Context, h Handle) ([]byte, error) {
	endpoint, err := c.Endpoint(ctx, h.Domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPKIResolution, err)
	}
	caps, err := c.DiscoverCapabilities(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPKIResolution, err)
	}

	template := caps.Receiver
	if template == "" {
		template = caps.PKI
	}
	if template == "" {
		return nil, fmt.Errorf("%w: no PKI capability found for %s", ErrPKIResolution, h.Domain)
	}

	// Escape variables to prevent path traversal.
	pkiURL := strings.ReplaceAll(template, "{alias}", url.PathEscape(h.Alias))
	pkiURL = strings.ReplaceAll(pkiURL, "{domain.tld}", url.PathEscape(h.Domain))

	var pki PKIResponse
	if err := c.getJSON(ctx, pkiURL, &pki); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPKIResolution, err)
	}
	if pki.Handle != "" && !strings.EqualFold(pki.Handle, h.String()) {
		return nil, fmt.Errorf("%w: response is for %q, want %q", ErrPKIResolution, pki.Handle, h.String())
	}
	if pki.PubKey == "" {
		return nil, fmt.Errorf("%w: empty public key in response", ErrPKIResolution)
	}

	pubKey, err := hex.DecodeString(pki.PubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex public key: %w", ErrInvalidPubKey, err)
	}
	if err := validateCompressedPubKey(pubKey); err != nil {
		return nil, err
	}
	return pubKey, nil
}

// ResolveReceiver maps a handle to the hash160 address of its published key.
func (c *Client) ResolveReceiver(ctx context.Context, handle string) (revshare.Address, error) {
	h, err := ParseHandle(handle)
	if err != nil {
		return revshare.Address{}, err
	}
	pubKey, err := c.ResolvePubKey(ctx, h)
	if err != nil {
		return revshare.Address{}, err
	}
	addr, err := revshare.AddressFromPublicKey(pubKey)
	if err != nil {
		return revshare.Address{}, fmt.Errorf("%w: %w", ErrInvalidPubKey, err)
	}
	c.logger.Debug("resolved paymail receiver",
		zap.String("handle", h.String()), zap.String("address", addr.Hex()))
	return addr, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPaymailResponseSize+1))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if len(body) > MaxPaymailResponseSize {
		return fmt.Errorf("response from %s exceeds %d bytes", rawURL, MaxPaymailResponseSize)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
