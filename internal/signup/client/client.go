// Package client talks to the session verification and signup endpoints
// over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/talentgate/internal/observability/tracing"
	"github.com/smallbiznis/talentgate/internal/signup/domain"
)

const (
	defaultTimeout  = 20 * time.Second
	maxResponseBody = 1 << 20
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (%d): %s", e.Type, e.Status, e.Message)
}

// Client implements domain.SessionVerifier and domain.IdentityBackend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: tracing.WrapHTTPClient(&http.Client{Timeout: defaultTimeout}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) VerifySession(ctx context.Context, sessionID string) (domain.SessionVerification, error) {
	var out domain.SessionVerification
	err := c.post(ctx, "/verify-session", map[string]string{"session_id": sessionID}, &out)
	return out, err
}

func (c *Client) SignUp(ctx context.Context, data domain.PendingSignupData) (domain.Account, error) {
	body := map[string]string{
		"email":     data.Email,
		"password":  data.Password,
		"name":      data.Name,
		"user_type": data.UserType,
	}
	var out domain.Account
	if err := c.post(ctx, "/auth/signup", body, &out); err != nil {
		return domain.Account{}, err
	}
	if out.UserID == "" {
		return domain.Account{}, errors.New("signup response missing user_id")
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, payload)
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

func decodeError(status int, payload []byte) error {
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: status}
	if json.Unmarshal(payload, &envelope) == nil {
		apiErr.Type = envelope.Error.Type
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
