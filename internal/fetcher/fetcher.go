package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; BlocklistCrawler/1.0)"

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrTooLarge         = errors.New("document exceeds size limit")
)

// Document is an immutable downloaded source document.
type Document struct {
	URL         string
	Body        []byte
	Fingerprint string
}

type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBytes     int64
	retries      int
	retryBackoff time.Duration
}

type Option func(*Fetcher)

func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.client.Timeout = timeout
	}
}

func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithRetries enables up to n extra GET attempts with exponential backoff
// starting at initial.
func WithRetries(n int, initial time.Duration) Option {
	return func(f *Fetcher) {
		f.retries = n
		if initial > 0 {
			f.retryBackoff = initial
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: 60 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:    defaultUserAgent,
		maxBytes:     64 * 1024 * 1024,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fingerprint returns the hex encoded SHA-256 of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fetch downloads url and fingerprints its body. Only 2xx responses count as
// a document.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	body, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Document{
		URL:         url,
		Body:        body,
		Fingerprint: Fingerprint(body),
	}, nil
}

// Get returns the body of a successful GET, retrying transport failures and
// 5xx responses when retries are configured.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	op := func() error {
		b, err := f.get(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	if f.retries <= 0 {
		if err := op(); err != nil {
			return nil, unwrapPermanent(err)
		}
		return body, nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.retryBackoff
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(f.retries)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, unwrapPermanent(err)
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, resp.StatusCode, url)
		if resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrTooLarge, url))
	}

	return body, nil
}

// Head probes url without downloading the body and returns the status code.
func (f *Fetcher) Head(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// CheckURL reports whether url answers a HEAD probe with a status below 400.
// Transport errors are returned so the caller can log them; exists is false
// in that case.
func (f *Fetcher) CheckURL(ctx context.Context, url string) (exists bool, err error) {
	code, err := f.Head(ctx, url)
	if err != nil {
		return false, err
	}
	return code >= 200 && code < 400, nil
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
