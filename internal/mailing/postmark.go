package mailing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/httpretry"
)

// PostmarkClient sends single emails through the Postmark HTTP API.
type PostmarkClient struct {
	baseURL     string
	serverToken string
	httpClient  httpretry.HTTPDoer
}

// NewPostmarkClient creates a Postmark sender. timeout bounds each API call
// end to end; transient failures are retried with backoff inside the client.
func NewPostmarkClient(baseURL, serverToken string, timeout time.Duration) *PostmarkClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostmarkClient{
		baseURL:     baseURL,
		serverToken: serverToken,
		httpClient:  httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 2),
	}
}

type postmarkRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody,omitempty"`
	TextBody string `json:"TextBody,omitempty"`
}

type postmarkResponse struct {
	MessageID string `json:"MessageID"`
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// Send delivers one message. A provider rejection (4xx/5xx with an error
// payload) comes back as a failed SendResult; only transport-level faults
// return an error.
func (c *PostmarkClient) Send(ctx context.Context, msg *domain.EmailMessage) (*domain.SendResult, error) {
	payload := postmarkRequest{
		From:     fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail),
		To:       msg.To,
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLContent,
		TextBody: msg.TextContent,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal postmark request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build postmark request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postmark request failed: %w", err)
	}
	defer resp.Body.Close()

	var pmResp postmarkResponse
	json.NewDecoder(resp.Body).Decode(&pmResp)

	if resp.StatusCode >= 400 || pmResp.ErrorCode != 0 {
		reason := pmResp.Message
		if reason == "" {
			reason = fmt.Sprintf("postmark returned status %d", resp.StatusCode)
		}
		return &domain.SendResult{
			Success: false,
			SentAt:  time.Now().UTC(),
			Error:   reason,
		}, nil
	}

	return &domain.SendResult{
		Success:   true,
		MessageID: pmResp.MessageID,
		SentAt:    time.Now().UTC(),
	}, nil
}
