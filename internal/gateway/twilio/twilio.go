// Package twilio implements the gateway Sender against the Twilio
// Messages API.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

// httpDoer abstracts the HTTP client, enabling test mocks.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends SMS via Twilio's REST API.
type Client struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	http       httpDoer
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string  // optional; defaults to the Twilio API
	HTTPClient httpDoer // optional; defaults to a 10s-timeout client
}

// NewClient creates a Twilio Client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.AccountSID == "" {
		return nil, fmt.Errorf("twilio: account sid is required")
	}
	if opts.AuthToken == "" {
		return nil, fmt.Errorf("twilio: auth token is required")
	}
	if opts.FromNumber == "" {
		return nil, fmt.Errorf("twilio: from number is required")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		accountSID: opts.AccountSID,
		authToken:  opts.AuthToken,
		from:       opts.FromNumber,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		http:       hc,
	}, nil
}

// messageResponse is the subset of Twilio's message resource we read.
type messageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send posts one outbound message and returns the provider message SID.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("twilio: build request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio: send to %s: %w", to, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("twilio: read response: %w", err)
	}

	var mr messageResponse
	if err := json.Unmarshal(data, &mr); err != nil {
		return "", fmt.Errorf("twilio: parse response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("twilio: send to %s failed: %d %s", to, mr.Code, mr.Message)
	}
	return mr.SID, nil
}
