package lolz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the root of the public API
	DefaultBaseURL = "https://api.zelenka.guru/"
	// DefaultTransferURL is the web page that accepts balance transfers
	DefaultTransferURL = "https://zelenka.guru/market/balance/transfer"
)

// Client represents a market API client bound to one authenticated user
type Client struct {
	baseURL     string
	transferURL string
	userAgent   string
	tokens      oauth2.TokenSource
	httpClient  *retryablehttp.Client
	limiter     *rate.Limiter
	logger      zerolog.Logger

	profile Profile
}

// Profile is the subset of the authenticated user cached at construction
type Profile struct {
	UserID    int64
	Username  string
	Permalink string
	Avatar    string
}

// NewClient creates a new client and verifies the credentials by loading the
// authenticated user's profile. An empty token requires WithClientCredentials.
func NewClient(ctx context.Context, token string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if token == "" && (options.clientID == "" || options.clientSecret == "") {
		return nil, ErrNoCredentials
	}
	if _, err := url.ParseRequestURI(options.baseURL); err != nil {
		return nil, fmt.Errorf("%w: base URL %q: %v", ErrInvalidConfig, options.baseURL, err)
	}

	baseHTTP := options.httpClient
	if baseHTTP == nil {
		baseHTTP = &http.Client{Timeout: options.timeout}
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = baseHTTP
	retryClient.RetryMax = options.retryMax
	retryClient.RetryWaitMin = options.retryWaitMin
	retryClient.RetryWaitMax = options.retryWaitMax
	retryClient.Logger = leveledLogger{logger: logger}
	retryClient.CheckRetry = checkRetry
	// Hand the last response back so API error bodies are still inspected.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:     options.baseURL,
		transferURL: options.transferURL,
		userAgent:   options.userAgent,
		httpClient:  retryClient,
		logger:      logger,
	}

	if token != "" {
		client.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	} else {
		cc := clientcredentials.Config{
			ClientID:     options.clientID,
			ClientSecret: options.clientSecret,
			TokenURL:     options.baseURL + "oauth/token",
			Scopes:       scopeStrings(options.scopes),
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, baseHTTP)
		client.tokens = cc.TokenSource(tokenCtx)
	}

	if options.perMinute > 0 {
		burst := max(options.burst, 1)
		client.limiter = rate.NewLimiter(rate.Limit(float64(options.perMinute)/60), burst)
	}

	me, err := client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with lolz API: %w", err)
	}
	client.profile = Profile{
		UserID:    me.UserID,
		Username:  me.Username,
		Permalink: me.Links.Permalink,
		Avatar:    me.Links.Avatar,
	}

	logger.Debug().
		Int64("user_id", me.UserID).
		Str("username", me.Username).
		Msg("Authenticated with lolz API")

	return client, nil
}

// Profile returns the cached profile of the authenticated user
func (c *Client) Profile() Profile {
	return c.profile
}

// doRequest performs an authenticated request and returns the body once it
// has passed error detection. GET parameters travel in the query string,
// everything else as a form body.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	requestURL := c.baseURL + strings.TrimPrefix(endpoint, "/")

	var body any
	if method == http.MethodGet {
		if len(params) > 0 {
			requestURL += "?" + params.Encode()
		}
	} else {
		body = []byte(params.Encode())
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}
	token.SetAuthHeader(req.Request)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("Making lolz API request")

	// With retries exhausted the last response comes back alongside an
	// error; its body still decides the outcome.
	resp, err := c.httpClient.Do(req)
	if resp == nil {
		if err == nil {
			err = ErrUnexpectedResponse
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if err := checkResponse(resp.StatusCode, respBody); err != nil {
		c.logger.Debug().
			Err(err).
			Str("method", method).
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("lolz API returned an error")
		return nil, err
	}

	return respBody, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	return c.call(ctx, http.MethodGet, endpoint, params, out)
}

func (c *Client) post(ctx context.Context, endpoint string, params url.Values, out any) error {
	return c.call(ctx, http.MethodPost, endpoint, params, out)
}

func (c *Client) delete(ctx context.Context, endpoint string, params url.Values, out any) error {
	return c.call(ctx, http.MethodDelete, endpoint, params, out)
}

func (c *Client) call(ctx context.Context, method, endpoint string, params url.Values, out any) error {
	body, err := c.doRequest(ctx, method, endpoint, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnexpectedResponse, method, endpoint, err)
	}
	return nil
}

// checkRetry retries reads on 429 and 5xx. Writes such as purchases and
// transfers are retried only on 429 or when the connection was never
// established, so the server never sees them twice.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if requestMethod(resp, err) == http.MethodGet {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		var opErr *net.OpError
		return errors.As(err, &opErr) && opErr.Op == "dial", nil
	}
	return resp.StatusCode == http.StatusTooManyRequests, nil
}

// requestMethod recovers the method of the attempt that produced resp or err
func requestMethod(resp *http.Response, err error) string {
	if resp != nil && resp.Request != nil {
		return resp.Request.Method
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return strings.ToUpper(urlErr.Op)
	}
	return ""
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
