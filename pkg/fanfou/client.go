package fanfou

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"fanfoudl/pkg/config"
	"fanfoudl/pkg/cookie"
	errs "fanfoudl/pkg/errors"
	"fanfoudl/pkg/logger"
	"fanfoudl/pkg/retry"
)

// Fetcher retrieves and parses a page
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Document, error)
}

// Opener streams a resource body
type Opener interface {
	Open(ctx context.Context, resourceURL string) (io.ReadCloser, error)
}

// Client talks to the album site with a browser-like identity and the user's session cookies
type Client struct {
	httpClient   *http.Client
	session      cookie.Scope
	headers      map[string]string
	fetchTimeout time.Duration
	logger       logger.Logger
	retry        *retry.Config
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithRetry overrides the retry policy
func WithRetry(cfg *retry.Config) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// WithTransport swaps the HTTP transport. Session cookies are still scoped.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// NewClient creates a Client for the configured site. Session cookies are only
// sent to the host of site.AlbumPrefix.
func NewClient(site config.SiteConfig, cookies cookie.Set, log logger.Logger, opts ...ClientOption) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	session, err := cookies.ScopedTo(site.AlbumPrefix)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, "scope session cookies", err)
	}

	headers := make(map[string]string, len(site.Headers)+1)
	for k, v := range site.Headers {
		headers[k] = v
	}
	if site.UserAgent != "" {
		headers["User-Agent"] = site.UserAgent
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: newTransport(site.FetchTimeout),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				session.Apply(req)
				return nil
			},
		},
		session:      session,
		headers:      headers,
		fetchTimeout: site.FetchTimeout,
		logger:       log,
		retry:        retry.FromSettings(config.DefaultConfig().Retry, log),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// newTransport bounds connecting and waiting for response headers but never
// the body, so a large photo can stream for as long as it keeps flowing.
func newTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
		t.TLSHandshakeTimeout = timeout
		t.ResponseHeaderTimeout = timeout
	}
	return t
}

// Fetch GETs pageURL and parses the body. Each attempt, body included, is
// bounded by the fetch timeout. Transient failures are retried; any other
// non-2xx status surfaces as a fetch error carrying the status.
func (c *Client) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	return retry.DoWithResult(ctx, func(ctx context.Context) (*Document, error) {
		if c.fetchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
			defer cancel()
		}

		resp, err := c.get(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		doc, err := NewDocument(resp.Body, resp.Request.URL.String())
		if err != nil {
			status := resp.StatusCode
			if ctx.Err() != nil {
				status = 0
			}
			return nil, errs.Fetch(pageURL, status, err)
		}
		return doc, nil
	}, c.retry)
}

// Open GETs resourceURL and hands back the body for streaming. The caller must close it.
func (c *Client) Open(ctx context.Context, resourceURL string) (io.ReadCloser, error) {
	resp, err := retry.DoWithResult(ctx, func(ctx context.Context) (*http.Response, error) {
		return c.get(ctx, resourceURL)
	}, c.retry)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// get performs one request. On a non-2xx status the body is drained and closed.
func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindMalformedReference, "build request for "+target, err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	c.session.Apply(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":      target,
			"duration": time.Since(start),
		})
		return nil, errs.Fetch(target, 0, err)
	}
	logger.LogRequest(c.logger, req.Method, target, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, errs.Fetch(target, resp.StatusCode, nil)
	}
	return resp, nil
}
