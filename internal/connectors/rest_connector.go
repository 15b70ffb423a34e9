package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RESTConnector talks to a generic JSON partner API:
//
//	POST {base}/{entity}           create
//	PUT  {base}/{entity}/{id}      update
//	GET  {base}/{entity}           list (pull)
//	POST {base}/oauth/token        refresh-token grant
type RESTConnector struct {
	baseURL string
	entity  string
	token   func() string
	client  *http.Client
}

func NewRESTConnector(cfg AdapterConfig) *RESTConnector {
	return &RESTConnector{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		entity:  cfg.Entity,
		token:   cfg.AccessToken,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type restEnvelope struct {
	ID        string `json:"id"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

func (c *RESTConnector) CreateRecord(ctx context.Context, payload map[string]interface{}) (*RecordOutcome, error) {
	env, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s", c.baseURL, c.entity), payload)
	if err != nil {
		return nil, err
	}
	return &RecordOutcome{Success: true, ExternalID: env.ID}, nil
}

func (c *RESTConnector) UpdateRecord(ctx context.Context, externalID string, payload map[string]interface{}) (*RecordOutcome, error) {
	target := fmt.Sprintf("%s/%s/%s", c.baseURL, c.entity, url.PathEscape(externalID))
	if _, err := c.do(ctx, http.MethodPut, target, payload); err != nil {
		return nil, err
	}
	return &RecordOutcome{Success: true, ExternalID: externalID}, nil
}

// ListRecords pulls remote records updated since the given time.
func (c *RESTConnector) ListRecords(ctx context.Context, updatedSince time.Time, limit int) ([]map[string]interface{}, error) {
	q := url.Values{}
	if !updatedSince.IsZero() {
		q.Set("updated_since", updatedSince.UTC().Format(time.RFC3339))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s?%s", c.baseURL, c.entity, q.Encode()), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(resp)
	}

	var body struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	return body.Data, nil
}

// RefreshToken exchanges the refresh token for fresh credentials.
func (c *RESTConnector) RefreshToken(ctx context.Context, refreshToken string) (*RefreshedToken, error) {
	payload := map[string]interface{}{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}
	buf, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(resp)
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return nil, &AdapterError{Code: "INVALID_TOKEN", Message: "token endpoint returned no access token"}
	}

	refreshed := &RefreshedToken{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
	}
	if body.ExpiresIn > 0 {
		expiry := time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
		refreshed.ExpiresAt = &expiry
	}
	return refreshed, nil
}

func (c *RESTConnector) do(ctx context.Context, method, target string, payload map[string]interface{}) (*restEnvelope, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(resp)
	}

	var env restEnvelope
	// Some partner APIs return an empty body on update; that is fine.
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return &env, nil
}

func (c *RESTConnector) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
}

// transportError maps client-side failures onto the code vocabulary.
func transportError(err error) error {
	code := "NETWORK_ERROR"
	if errors.Is(err, context.DeadlineExceeded) {
		code = "TIMEOUT"
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		code = "TIMEOUT"
	}
	return &AdapterError{Code: code, Message: err.Error()}
}

// responseError maps an HTTP error response onto the code vocabulary.
// A code carried in the response body wins over the status mapping.
func responseError(resp *http.Response) error {
	var env restEnvelope
	_ = json.NewDecoder(resp.Body).Decode(&env)

	code := env.ErrorCode
	if code == "" {
		code = statusToCode(resp.StatusCode)
	}
	msg := env.Error
	if msg == "" {
		msg = resp.Status
	}
	return &AdapterError{Code: code, Message: msg}
}

func statusToCode(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusRequestTimeout:
		return "TIMEOUT"
	case http.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusBadGateway:
		return "BAD_GATEWAY"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case http.StatusGatewayTimeout:
		return "GATEWAY_TIMEOUT"
	}
	if status >= 500 {
		return "SERVER_ERROR"
	}
	return "BAD_REQUEST"
}
