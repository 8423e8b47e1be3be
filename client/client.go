// Package client fetches records and tarballs from Hex-compatible
// repositories over HTTP, with DNS caching, retrying, and per-repository
// circuit breaking.
package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenk/backoff"
	"github.com/rs/dnscache"

	"github.com/git-pkgs/hexpm"
)

var (
	// ErrUpstreamDown is returned when the repository keeps answering
	// with server errors.
	ErrUpstreamDown = errors.New("repository unavailable")

	// ErrChecksum is returned when downloaded data does not match the
	// expected checksum.
	ErrChecksum = errors.New("downloaded data did not match the expected checksum")
)

// Verifier checks downloaded bytes against an expected checksum. The default
// implementation is SHA-256; it is an interface so callers can substitute
// hardware-backed or auditing implementations.
type Verifier interface {
	Verify(data, expected []byte) bool
}

// SHA256Verifier verifies sha256 checksums.
type SHA256Verifier struct{}

func (SHA256Verifier) Verify(data, expected []byte) bool {
	sum := sha256.Sum256(data)
	return bytes.Equal(sum[:], expected)
}

// Client talks to one repository's record and API endpoints.
type Client struct {
	repo       hexpm.Repo
	http       *http.Client
	userAgent  string
	apiKey     string
	maxRetries uint64
	baseDelay  time.Duration
	verifier   Verifier
	breakers   *breakerSet
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithAPIKey sets the API key sent on authenticated API requests.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithMaxRetries sets the maximum number of retries per request.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = uint64(n) }
}

// WithBaseDelay sets the initial delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// WithVerifier sets the checksum verifier used for tarball downloads.
func WithVerifier(v Verifier) Option {
	return func(c *Client) { c.verifier = v }
}

// New creates a client for a repository.
func New(repo hexpm.Repo, opts ...Option) *Client {
	c := &Client{
		repo:       repo,
		http:       newHTTPClient(),
		userAgent:  "hexpm-go/1.0",
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		verifier:   SHA256Verifier{},
		breakers:   newBreakerSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Default returns a client for the default registered repository.
func Default(opts ...Option) *Client {
	repo, err := hexpm.LookupRepo("")
	if err != nil {
		// The default repository is registered at init.
		panic(err)
	}
	return New(repo, opts...)
}

// newHTTPClient builds the shared transport: cached DNS resolution with a
// periodic refresh, pooled connections, generous timeout for tarballs.
func newHTTPClient() *http.Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("failed to dial any resolved IP")
			},
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Repo returns the repository this client is configured for.
func (c *Client) Repo() hexpm.Repo {
	return c.repo
}

// GetVersions fetches and decodes the repository's version index record.
func (c *Client) GetVersions(ctx context.Context) (*hexpm.Versions, error) {
	body, err := c.get(ctx, c.repo.RepoURL+"/versions")
	if err != nil {
		return nil, err
	}
	payload, err := c.openRecord(body)
	if err != nil {
		return nil, err
	}
	return hexpm.DecodeVersions(payload)
}

// GetPackage fetches and decodes a package record.
func (c *Client) GetPackage(ctx context.Context, name string) (*hexpm.Package, error) {
	body, err := c.get(ctx, c.repo.RepoURL+"/packages/"+name)
	if err != nil {
		if errors.Is(err, hexpm.ErrNotFound) {
			return nil, &hexpm.NotFoundError{Repository: c.repo.Name, Name: name}
		}
		return nil, err
	}
	payload, err := c.openRecord(body)
	if err != nil {
		return nil, err
	}
	return hexpm.DecodePackage(payload)
}

// GetTarball downloads a release tarball, verified against the release's
// outer checksum when the record carries one. Historical records without an
// outer checksum download unverified.
func (c *Client) GetTarball(ctx context.Context, name string, release *hexpm.Release) ([]byte, error) {
	url := fmt.Sprintf("%s/tarballs/%s-%s.tar", c.repo.RepoURL, name, release.Version)
	body, err := c.get(ctx, url)
	if err != nil {
		if errors.Is(err, hexpm.ErrNotFound) {
			return nil, &hexpm.NotFoundError{Repository: c.repo.Name, Name: name, Version: release.Version.String()}
		}
		return nil, err
	}
	if release.OuterChecksum != nil && !c.verifier.Verify(body, release.OuterChecksum) {
		return nil, ErrChecksum
	}
	return body, nil
}

// openRecord unwraps a served record: gunzip, decode the signed envelope,
// verify the payload against the repository key.
func (c *Client) openRecord(body []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decompressing record: %w", err)
	}
	defer gz.Close()
	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("decompressing record: %w", err)
	}
	signed, err := hexpm.DecodeSigned(raw)
	if err != nil {
		return nil, err
	}
	return hexpm.VerifyPayload(signed, c.repo.PublicKey)
}

// get fetches a URL through the repository's circuit breaker, retrying rate
// limits and server errors with exponential backoff.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := c.breakers.call(url, func() error {
		var err error
		body, err = c.getWithRetry(ctx, url)
		return err
	})
	return body, err
}

func (c *Client) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	operation := func() error {
		b, err := c.doOnce(ctx, http.MethodGet, url, nil, "")
		if err != nil {
			if retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.baseDelay
	bo.MaxInterval = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// retryable reports whether a request should be retried: rate limits and
// server errors are, missing resources and client errors are not.
func retryable(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl) || errors.Is(err, ErrUpstreamDown)
}

// doOnce performs a single request and maps the response status to the
// client's error taxonomy.
func (c *Client) doOnce(ctx context.Context, method, url string, reqBody []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if reqBody != nil {
		reader = bytes.NewReader(reqBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return io.ReadAll(resp.Body)

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s: %w", url, hexpm.ErrNotFound)

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 0
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			retryAfter, _ = strconv.Atoi(ra)
		}
		return nil, &RateLimitError{RetryAfter: retryAfter}

	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("HTTP %d from %s: %w", resp.StatusCode, url, ErrUpstreamDown)

	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url, Body: string(b)}
	}
}
