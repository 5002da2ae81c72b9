package lolz

import (
	"net/http"
	"strings"
	"time"
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	baseURL      string
	transferURL  string
	timeout      time.Duration
	httpClient   *http.Client
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	perMinute    int
	burst        int
	userAgent    string
	clientID     string
	clientSecret string
	scopes       []Scope
}

func defaultOptions() clientOptions {
	return clientOptions{
		baseURL:      DefaultBaseURL,
		transferURL:  DefaultTransferURL,
		timeout:      30 * time.Second,
		retryMax:     3,
		retryWaitMin: 1 * time.Second,
		retryWaitMax: 30 * time.Second,
		userAgent:    "lolzmarket",
		scopes:       []Scope{ScopeBasic, ScopeRead, ScopeMarket},
	}
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		if baseURL != "" {
			o.baseURL = strings.TrimRight(baseURL, "/") + "/"
		}
	}
}

// WithTransferURL sets the web page used by TransferLink.
func WithTransferURL(transferURL string) Option {
	return func(o *clientOptions) {
		if transferURL != "" {
			o.transferURL = transferURL
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its timeout wins over WithTimeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// WithRetry sets the retry budget and backoff bounds. GET requests retry on
// 429 and 5xx, everything else only on 429 or a failed dial.
func WithRetry(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(o *clientOptions) {
		if maxRetries >= 0 {
			o.retryMax = maxRetries
		}
		if waitMin > 0 {
			o.retryWaitMin = waitMin
		}
		if waitMax > 0 {
			o.retryWaitMax = waitMax
		}
	}
}

// WithRateLimit caps outgoing requests per minute. Zero disables the limiter.
func WithRateLimit(requestsPerMinute, burst int) Option {
	return func(o *clientOptions) {
		o.perMinute = requestsPerMinute
		o.burst = burst
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		o.userAgent = userAgent
	}
}

// WithClientCredentials authenticates with an OAuth application instead of a
// personal token. It is only used when NewClient receives an empty token.
func WithClientCredentials(clientID, clientSecret string, scopes ...Scope) Option {
	return func(o *clientOptions) {
		o.clientID = clientID
		o.clientSecret = clientSecret
		if len(scopes) > 0 {
			o.scopes = scopes
		}
	}
}
