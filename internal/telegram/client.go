// Package telegram is a minimal Bot API client for channel posting.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/xelth-com/catalogbot/internal/images"
)

// Bot API limits
const (
	MaxCaptionLength = 1024
	MaxMessageLength = 4096
	MaxMediaGroup    = 10
)

var ErrNoToken = errors.New("telegram bot token is not configured")

// APIError is a non-OK Bot API reply
type APIError struct {
	Method      string
	StatusCode  int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.StatusCode, e.Description)
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type message struct {
	MessageID int `json:"message_id"`
}

// Client talks to one bot. Outbound calls share a rate limiter.
type Client struct {
	token      string
	baseURL    string
	imagesDir  string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }

func WithLogger(l *slog.Logger) Option { return func(cl *Client) { cl.logger = l } }

// WithImagesDir is where local photo file names are resolved
func WithImagesDir(dir string) Option { return func(cl *Client) { cl.imagesDir = dir } }

// WithRateLimit allows perSec calls per second; zero or less disables limiting
func WithRateLimit(perSec float64) Option {
	return func(cl *Client) {
		if perSec <= 0 {
			cl.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		cl.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

// WithRetry sets the retry cap and the base pause between 5xx retries
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(cl *Client) {
		cl.maxRetries = maxRetries
		cl.backoff = backoff
	}
}

// NewClient creates a Bot API client. baseURL defaults to the public API.
func NewClient(token, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	c := &Client{
		token:      token,
		baseURL:    baseURL,
		imagesDir:  "images",
		http:       images.NewHTTPClient(nil),
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		maxRetries: 3,
		backoff:    time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage posts plain text and returns the message id
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (int, error) {
	var m message
	err := c.call(ctx, "sendMessage", func() (*payload, error) {
		return jsonPayload(map[string]any{"chat_id": chatID, "text": text})
	}, &m)
	return m.MessageID, err
}

// SendPhoto posts one photo. External URLs are passed through, local file
// names are uploaded.
func (c *Client) SendPhoto(ctx context.Context, chatID, photo, caption string) (int, error) {
	var m message
	err := c.call(ctx, "sendPhoto", func() (*payload, error) {
		if images.IsExternal(photo) {
			return jsonPayload(map[string]any{"chat_id": chatID, "photo": photo, "caption": caption})
		}
		mp := newMultipart()
		mp.field("chat_id", chatID)
		if caption != "" {
			mp.field("caption", caption)
		}
		if err := mp.file("photo", c.localPath(photo)); err != nil {
			return nil, err
		}
		return mp.close()
	}, &m)
	return m.MessageID, err
}

type inputMedia struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

// SendMediaGroup posts 2 to 10 photos as an album with caption on the first
func (c *Client) SendMediaGroup(ctx context.Context, chatID string, photos []string, caption string) ([]int, error) {
	if len(photos) < 2 || len(photos) > MaxMediaGroup {
		return nil, fmt.Errorf("media group needs 2 to %d photos, got %d", MaxMediaGroup, len(photos))
	}
	var msgs []message
	err := c.call(ctx, "sendMediaGroup", func() (*payload, error) {
		mp := newMultipart()
		mp.field("chat_id", chatID)
		media := make([]inputMedia, len(photos))
		for i, photo := range photos {
			media[i] = inputMedia{Type: "photo", Media: photo}
			if i == 0 {
				media[i].Caption = caption
			}
			if !images.IsExternal(photo) {
				part := "photo" + strconv.Itoa(i)
				media[i].Media = "attach://" + part
				if err := mp.file(part, c.localPath(photo)); err != nil {
					return nil, err
				}
			}
		}
		raw, err := json.Marshal(media)
		if err != nil {
			return nil, err
		}
		mp.field("media", string(raw))
		return mp.close()
	}, &msgs)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(msgs))
	for i, m := range msgs {
		ids[i] = m.MessageID
	}
	return ids, nil
}

func (c *Client) localPath(name string) string {
	return filepath.Join(c.imagesDir, filepath.Base(name))
}

// call performs method with retries. build is invoked once; the encoded body
// is replayed on every attempt.
func (c *Client) call(ctx context.Context, method string, build func() (*payload, error), out any) error {
	if c.token == "" {
		return ErrNoToken
	}
	body, err := build()
	if err != nil {
		return fmt.Errorf("telegram %s: build request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		lastErr = c.do(ctx, method, url, body, out)
		var apiErr *APIError
		if lastErr == nil || !errors.As(lastErr, &apiErr) || !apiErr.retryable() || attempt == c.maxRetries {
			return lastErr
		}

		wait := apiErr.RetryAfter
		if wait == 0 {
			wait = time.Duration(attempt+1) * c.backoff
		}
		c.logger.Warn("telegram call throttled, retrying", "method", method, "status", apiErr.StatusCode, "wait", wait, "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, url string, body *payload, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body.data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", body.contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram %s: read response: %w", method, err)
	}

	var r apiResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{Method: method, StatusCode: resp.StatusCode, Description: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if !r.OK {
		apiErr := &APIError{Method: method, StatusCode: resp.StatusCode, Description: r.Description}
		if r.ErrorCode != 0 {
			apiErr.StatusCode = r.ErrorCode
		}
		if r.Parameters != nil && r.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(r.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	if out != nil {
		if err := json.Unmarshal(r.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

type payload struct {
	data        []byte
	contentType string
}

func jsonPayload(v any) (*payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &payload{data: data, contentType: "application/json"}, nil
}

type multipartBody struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newMultipart() *multipartBody {
	m := &multipartBody{}
	m.w = multipart.NewWriter(&m.buf)
	return m
}

func (m *multipartBody) field(name, value string) {
	if m.err == nil {
		m.err = m.w.WriteField(name, value)
	}
}

func (m *multipartBody) file(field, path string) error {
	if m.err != nil {
		return m.err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	part, err := m.w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func (m *multipartBody) close() (*payload, error) {
	if m.err != nil {
		return nil, m.err
	}
	if err := m.w.Close(); err != nil {
		return nil, err
	}
	return &payload{data: m.buf.Bytes(), contentType: m.w.FormDataContentType()}, nil
}
