// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jeranaias/lumen/internal/gateway"
	"github.com/jeranaias/lumen/internal/model"
)

const (
	// DefaultServerURL matches the server's default listen address.
	DefaultServerURL = "http://127.0.0.1:8787"

	// DefaultTitleTimeout bounds a title request.
	DefaultTitleTimeout = 30 * time.Second

	sendMessagePath   = "/api/sendMessage"
	generateTitlePath = "/api/generateTitle"
)

// ErrNoBody is returned when a successful response carries no body.
var ErrNoBody = errors.New("response has no body")

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("server returned %d", e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// HTTP talks to a lumen server.
type HTTP struct {
	baseURL      string
	client       *http.Client
	titleTimeout time.Duration
}

var _ Transport = (*HTTP)(nil)

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		h.client = c
	}
}

// WithTitleTimeout overrides DefaultTitleTimeout.
func WithTitleTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.titleTimeout = d
	}
}

// NewHTTP creates a transport for the server at baseURL.
// The default client has no overall timeout since replies stream for as
// long as the model takes.
func NewHTTP(baseURL string, opts ...HTTPOption) *HTTP {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	h := &HTTP{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{},
		titleTimeout: DefaultTitleTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// BaseURL returns the server URL.
func (h *HTTP) BaseURL() string {
	return h.baseURL
}

// SendTurn posts the history and returns the streaming response body.
func (h *HTTP) SendTurn(ctx context.Context, history []model.Message, lang model.Language) (io.ReadCloser, error) {
	resp, err := h.post(ctx, sendMessagePath, gateway.NewSendMessageRequest(history, lang))
	if err != nil {
		return nil, err
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrNoBody
	}
	return resp.Body, nil
}

// GenerateTitle posts the first exchange and returns the server's title.
func (h *HTTP) GenerateTitle(ctx context.Context, firstUser, firstReply string, lang model.Language) (string, error) {
	if h.titleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.titleTimeout)
		defer cancel()
	}

	resp, err := h.post(ctx, generateTitlePath, gateway.GenerateTitleRequest{
		FirstUserMessage: firstUser,
		FirstAIResponse:  firstReply,
		Language:         lang.String(),
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out gateway.GenerateTitleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode title response")
	}
	return out.Title, nil
}

// post sends body as JSON. On success the caller owns resp.Body.
func (h *HTTP) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "post %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, readStatusError(resp)
	}
	return resp, nil
}

func readStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body gateway.ErrorResponse
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		statusErr.Message = body.Error
		statusErr.Details = body.Details
	} else {
		statusErr.Message = strings.TrimSpace(string(data))
	}
	return statusErr
}
