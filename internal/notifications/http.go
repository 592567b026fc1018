package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vidredact/internal/services"
)

const (
	preflightPath = "/updateprocess"
	completePath  = "/finishprocess"
	emailPath     = "/sendemail"
	proceedBody   = "1"
	maxBodyBytes  = 64 << 10
)

// HTTPClient implements Client against the upstream REST endpoints.
type HTTPClient struct {
	base   string
	client *http.Client
}

// NewHTTPClient returns a client for base (scheme and host, optional path prefix).
func NewHTTPClient(base string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// Preflight issues GET /updateprocess?worknum=<id>. Only a body of exactly "1"
// means proceed.
func (c *HTTPClient) Preflight(ctx context.Context, workID string) (bool, error) {
	body, err := c.do(ctx, http.MethodGet, preflightPath, workID, nil)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(body)) == proceedBody, nil
}

// Complete issues PUT /finishprocess?worknum=<id>. The upstream answers with
// JSON 0 when nobody is to be notified, otherwise with {email, name}.
func (c *HTTPClient) Complete(ctx context.Context, workID string) (*Recipient, error) {
	body, err := c.do(ctx, http.MethodPut, completePath, workID, nil)
	if err != nil {
		return nil, err
	}
	return parseRecipient(body)
}

// SendEmail issues POST /sendemail with the recipient as JSON.
func (c *HTTPClient) SendEmail(ctx context.Context, recipient Recipient) error {
	payload, err := json.Marshal(recipient)
	if err != nil {
		return fmt.Errorf("encode recipient: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, emailPath, "", payload)
	return err
}

func parseRecipient(body []byte) (*Recipient, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || string(trimmed) == "0" || string(trimmed) == "null" {
		return nil, nil
	}
	var recipient Recipient
	if err := json.Unmarshal(trimmed, &recipient); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "notify", "decode completion", "unexpected response body", err)
	}
	if strings.TrimSpace(recipient.Email) == "" {
		return nil, nil
	}
	return &recipient, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, workID string, payload []byte) ([]byte, error) {
	endpoint := c.base + path
	if workID != "" {
		endpoint += "?" + url.Values{"worknum": {workID}}.Encode()
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "notify", method+" "+path, "callback unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return nil, services.Wrap(services.ErrExternalTool, "notify", method+" "+path,
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	return body, nil
}
