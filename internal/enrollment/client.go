package enrollment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

// Config holds the configuration for the enrollment client
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RetryCount   int
	RetryBackoff time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:3000/v1",
		Timeout:      10 * time.Second,
		RetryCount:   2,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// Client talks to the session authority. Every call is bounded by
// Config.Timeout; only Complete and Cancel are retried.
type Client struct {
	httpClient *http.Client
	config     Config
}

func NewClient(config Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// Start opens a session for childID. Any failure is reported as
// ErrSessionInit wrapping the cause.
func (c *Client) Start(ctx context.Context, childID, name string) (*StartResponse, error) {
	var resp StartResponse
	err := c.doJSON(ctx, "/start-enrollment", StartRequest{ChildID: childID, Name: name}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionInit, err)
	}
	if !resp.Success || resp.SessionID == "" {
		return nil, fmt.Errorf("%w: %s", ErrSessionInit, resp.Message)
	}
	return &resp, nil
}

// UploadFrame submits one captured frame for bucket. A rejection by the
// server is a successful call with Accepted=false.
func (c *Client) UploadFrame(ctx context.Context, sessionID string, bucket domain.PoseBucket, quality float64, image []byte) (*FrameResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := map[string]string{
		"sessionId":  sessionID,
		"poseBucket": bucket.String(),
		"quality":    strconv.FormatFloat(quality, 'f', 4, 64),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s.jpg"`, bucket))
	header.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write image part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var resp FrameResponse
	if err := c.do(ctx, "/enroll-frame", w.FormDataContentType(), body.Bytes(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Complete(ctx context.Context, sessionID string) (*AckResponse, error) {
	var resp AckResponse
	if err := c.doWithRetry(ctx, "/complete", SessionRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Cancel(ctx context.Context, sessionID string) (*AckResponse, error) {
	var resp AckResponse
	if err := c.doWithRetry(ctx, "/cancel-enrollment", SessionRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doWithRetry retries transport failures and 5xx responses with linear
// backoff. Client errors are returned immediately.
func (c *Client) doWithRetry(ctx context.Context, path string, body, result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.config.RetryBackoff):
			}
		}

		lastErr = c.doJSON(ctx, path, body, result)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}

		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && !apiErr.Retryable() {
			return lastErr
		}
		if errors.Is(lastErr, ErrInvalidResponse) {
			return lastErr
		}
	}

	return lastErr
}

func (c *Client) doJSON(ctx context.Context, path string, body, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, path, "application/json", payload, result)
}

// do executes a single POST request
func (c *Client) do(ctx context.Context, path, contentType string, payload []byte, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := strings.TrimRight(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var er errorResponse
		if json.Unmarshal(respBody, &er) == nil && (er.Error.Code != "" || er.Message != "") {
			apiErr.Code = er.Error.Code
			apiErr.Message = er.Message
			if er.Error.Message != "" {
				apiErr.Message = er.Error.Message
			}
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}
	return nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
