// Package telegram is a minimal Telegram Bot API transport: sending messages,
// long-polling for updates and decoding webhook payloads.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"orario/internal/core"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// Config holds configuration for the Bot API client
type Config struct {
	APIURL string
	Token  string

	// Retry configuration, applied to 429 and 5xx replies and network errors
	MaxRetries     int           // Maximum number of retry attempts (default: 3)
	InitialBackoff time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 30s)
	BackoffFactor  float64       // Backoff multiplier (default: 2.0)
}

// DefaultConfig returns default client configuration
func DefaultConfig(token string) Config {
	return Config{
		APIURL:         DefaultAPIURL,
		Token:          token,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// Client calls Bot API methods.
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a client. The http client's timeout must exceed the long-poll
// timeout passed to GetUpdates.
func NewClient(config Config, httpClient *http.Client) *Client {
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	config.APIURL = strings.TrimRight(config.APIURL, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, config: config}
}

// SendMessage posts text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, true)
	return err
}

// GetUpdates long-polls for updates with an id of at least offset. Updates that
// carry no text message are returned too, so callers can advance the offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	result, err := c.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message"},
	}, false)
	if err != nil {
		return nil, err
	}

	var updates []Update
	result.ForEach(func(_, u gjson.Result) bool {
		updates = append(updates, decodeUpdate(u))
		return true
	})
	return updates, nil
}

// call invokes method and returns the "result" field of a successful reply.
func (c *Client) call(ctx context.Context, method string, body any, retry bool) (gjson.Result, error) {
	attempts := 1
	if retry {
		attempts = max(c.config.MaxRetries+1, 1)
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return gjson.Result{}, ctx.Err()
			case <-time.After(c.backoff(attempt, lastErr)):
			}
		}

		result, err := c.doRequest(ctx, method, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
	}
	return gjson.Result{}, lastErr
}

// doRequest executes a single HTTP request without retries
func (c *Client) doRequest(ctx context.Context, method string, body any) (gjson.Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return gjson.Result{}, core.NewInvalidInputError("failed to marshal " + method + " request")
	}

	// the token is part of the path; keep it out of errors and logs
	endpoint := c.config.APIURL + "/bot" + c.config.Token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, core.NewTransportError(method, 0, "creating request", nil)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, core.NewTransportError(method, 0, "sending request", redactToken(err, c.config.Token))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, core.NewTransportError(method, resp.StatusCode, "reading response", err)
	}

	reply := gjson.ParseBytes(raw)
	if resp.StatusCode != http.StatusOK || !reply.Get("ok").Bool() {
		description := reply.Get("description").String()
		if description == "" {
			description = http.StatusText(resp.StatusCode)
		}
		return gjson.Result{}, &apiError{
			err:        core.NewTransportError(method, resp.StatusCode, description, nil),
			retryAfter: time.Duration(reply.Get("parameters.retry_after").Int()) * time.Second,
		}
	}
	return reply.Get("result"), nil
}

// apiError is a Bot API failure reply, carrying the server's retry hint.
type apiError struct {
	err        *core.Error
	retryAfter time.Duration
}

func (e *apiError) Error() string { return e.err.Error() }
func (e *apiError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var api *apiError
	if errors.As(err, &api) {
		code := api.err.StatusCode
		return code == http.StatusTooManyRequests || code >= 500
	}
	return core.IsKind(err, core.KindTransport)
}

// backoff returns the pause before attempt, honouring retry_after when the
// server sent one.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	var api *apiError
	if errors.As(lastErr, &api) && api.retryAfter > 0 {
		return api.retryAfter
	}
	d := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffFactor, float64(attempt-1))
	if d > float64(c.config.MaxBackoff) {
		d = float64(c.config.MaxBackoff)
	}
	return time.Duration(d)
}

// redactToken strips the bot token from a transport error message.
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}
