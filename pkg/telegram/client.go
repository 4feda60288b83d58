// Package telegram is a minimal Bot API client covering sendMessage.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// ErrNotOK is returned when the Bot API answers with "ok": false.
var ErrNotOK = errors.New("telegram: api returned ok=false")

// Client posts messages to the Telegram Bot API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customises the client.
type Option func(*Client)

// WithBaseURL points the client at another API host (tests, proxies).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient builds a client for token with a request timeout.
func NewClient(token string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Configured reports whether a bot token is present.
func (c *Client) Configured() bool {
	return c != nil && c.token != ""
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// SendMessage delivers text to chatID with a single attempt.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("telegram: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", stripURL(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", stripURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telegram: read response: %w", err)
	}

	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("telegram: decode response (status %d): %w", resp.StatusCode, err)
	}
	if !decoded.OK {
		if decoded.Description != "" {
			return fmt.Errorf("%w: %s", ErrNotOK, decoded.Description)
		}
		return ErrNotOK
	}
	return nil
}

// stripURL drops the request URL, which embeds the bot token, from
// transport errors.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}
	return err
}
