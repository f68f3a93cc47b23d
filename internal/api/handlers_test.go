package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/service/dispatch"
	"github.com/ignite/newsletter/internal/service/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory subscription.Repository for handler tests.
type memStore struct {
	mu     sync.Mutex
	subs   map[string]domain.Subscription // keyed by subscriber id
	tokens map[string]string              // token -> subscriber id
	nextID int
}

func newMemStore() *memStore {
	return &memStore{
		subs:   make(map[string]domain.Subscription),
		tokens: make(map[string]string),
	}
}

func (m *memStore) InsertPending(ctx context.Context, sub domain.NewSubscriber, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("subscriber-%d", m.nextID)
	m.subs[id] = domain.Subscription{
		ID:     id,
		Name:   sub.Name.String(),
		Email:  sub.Email.String(),
		Status: domain.StatusPendingConfirmation,
	}
	m.tokens[token] = id
	return id, nil
}

func (m *memStore) SubscriberIDByToken(ctx context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	if !ok {
		return "", subscription.ErrTokenNotFound
	}
	return id, nil
}

func (m *memStore) MarkConfirmed(ctx context.Context, subscriberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := m.subs[subscriberID]
	sub.Status = domain.StatusConfirmed
	m.subs[subscriberID] = sub
	return nil
}

func (m *memStore) ConfirmedEmails(ctx context.Context) ([]domain.SubscriberEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SubscriberEmail
	for _, s := range m.subs {
		if s.Status == domain.StatusConfirmed {
			e, err := domain.ParseSubscriberEmail(s.Email)
			if err != nil {
				continue
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// captureSender records every message and always reports success.
type captureSender struct {
	mu   sync.Mutex
	sent []*domain.EmailMessage
}

func (c *captureSender) Send(ctx context.Context, msg *domain.EmailMessage) (*domain.SendResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return &domain.SendResult{Success: true, MessageID: "test"}, nil
}

func (c *captureSender) messages() []*domain.EmailMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.EmailMessage(nil), c.sent...)
}

const testOperatorToken = "test-operator-token"

func setupTestServer(t *testing.T) (*httptest.Server, *memStore, *captureSender) {
	t.Helper()
	store := newMemStore()
	sender := &captureSender{}

	subs := subscription.NewService(store, sender, "Newsletter", "news@example.com", "https://newsletter.example.com")
	disp := dispatch.NewService(store, sender, "Newsletter", "news@example.com", 4, nil)
	handlers := NewHandlers(subs, disp, auth.NewOperator(testOperatorToken))

	srv := NewServer(handlers, NewHealthChecker(nil, nil))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store, sender
}

func postSubscription(t *testing.T, ts *httptest.Server, name, email string) *http.Response {
	t.Helper()
	form := url.Values{"name": {name}, "email": {email}}
	resp, err := http.Post(ts.URL+"/subscriptions", "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	require.NoError(t, err)
	return resp
}

var confirmLinkRe = regexp.MustCompile(`/subscriptions/confirm\?token=([A-Za-z0-9]+)`)

func TestSubscribeReturns200ForValidForm(t *testing.T) {
	ts, store, sender := setupTestServer(t)

	resp := postSubscription(t, ts, "le guin", "ursula_le_guin@gmail.com")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, store.subs, 1)
	for _, s := range store.subs {
		assert.Equal(t, "le guin", s.Name)
		assert.Equal(t, "ursula_le_guin@gmail.com", s.Email)
		assert.Equal(t, domain.StatusPendingConfirmation, s.Status)
	}
	require.Len(t, sender.messages(), 1)
	assert.Equal(t, "ursula_le_guin@gmail.com", sender.messages()[0].To)
}

func TestSubscribeRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		formName  string
		formEmail string
	}{
		{"empty name", "", "ursula_le_guin@gmail.com"},
		{"empty email", "le guin", ""},
		{"invalid email", "le guin", "definitely-not-an-email"},
		{"forbidden character in name", "le/guin", "ursula_le_guin@gmail.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, store, _ := setupTestServer(t)

			resp := postSubscription(t, ts, tt.formName, tt.formEmail)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Empty(t, store.subs, "invalid input must not persist anything")
		})
	}
}

func TestConfirmFlowEndToEnd(t *testing.T) {
	ts, store, sender := setupTestServer(t)

	resp := postSubscription(t, ts, "le guin", "ursula_le_guin@gmail.com")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Extract the confirmation link from the email that was sent
	require.Len(t, sender.messages(), 1)
	match := confirmLinkRe.FindStringSubmatch(sender.messages()[0].TextContent)
	require.NotNil(t, match, "confirmation email must carry a tokenized link")
	token := match[1]

	resp, err := http.Get(ts.URL + "/subscriptions/confirm?token=" + token)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, s := range store.subs {
		assert.Equal(t, domain.StatusConfirmed, s.Status)
	}

	// Re-redeeming the same token is a no-op success
	resp, err = http.Get(ts.URL + "/subscriptions/confirm?token=" + token)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConfirmRejectsBadTokens(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	// Missing token parameter
	resp, err := http.Get(ts.URL + "/subscriptions/confirm")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown token
	resp, err = http.Get(ts.URL + "/subscriptions/confirm?token=" + strings.Repeat("x", 25))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func publishNewsletter(t *testing.T, ts *httptest.Server, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/newsletters", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestPublishNewsletterDeliversToConfirmedOnly(t *testing.T) {
	ts, _, sender := setupTestServer(t)

	// One confirmed, one still pending
	resp := postSubscription(t, ts, "le guin", "ursula_le_guin@gmail.com")
	resp.Body.Close()
	resp = postSubscription(t, ts, "pending person", "pending@example.com")
	resp.Body.Close()

	match := confirmLinkRe.FindStringSubmatch(sender.messages()[0].TextContent)
	require.NotNil(t, match)
	resp, err := http.Get(ts.URL + "/subscriptions/confirm?token=" + match[1])
	require.NoError(t, err)
	resp.Body.Close()

	resp = publishNewsletter(t, ts, testOperatorToken, map[string]string{
		"subject":      "Issue #1",
		"html_content": "<p>News</p>",
		"text_content": "News",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report publishResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 0, report.Failed)

	var newsletterRecipients []string
	for _, m := range sender.messages() {
		if m.Subject == "Issue #1" {
			newsletterRecipients = append(newsletterRecipients, m.To)
		}
	}
	assert.Equal(t, []string{"ursula_le_guin@gmail.com"}, newsletterRecipients)
}

func TestPublishNewsletterRequiresAuth(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	body := map[string]string{"subject": "Issue", "text_content": "hi"}

	resp := publishNewsletter(t, ts, "", body)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = publishNewsletter(t, ts, "wrong-token", body)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPublishNewsletterRejectsInvalidIssue(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	resp := publishNewsletter(t, ts, testOperatorToken, map[string]string{
		"html_content": "<p>hi</p>", "text_content": "hi",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = publishNewsletter(t, ts, testOperatorToken, map[string]string{"subject": "Issue"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Malformed JSON body
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/newsletters", strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testOperatorToken)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Contains(t, status.Checks, "database")

	resp, err = http.Get(ts.URL + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
