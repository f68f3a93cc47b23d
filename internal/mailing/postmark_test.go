package mailing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter/internal/domain"
)

func testMessage() *domain.EmailMessage {
	return &domain.EmailMessage{
		To:          "ursula_le_guin@gmail.com",
		FromName:    "IGNITE",
		FromEmail:   "newsletter@ignite.com",
		Subject:     "Welcome!",
		HTMLContent: "<p>confirm</p>",
		TextContent: "confirm",
	}
}

func TestPostmarkSend(t *testing.T) {
	var gotReq postmarkRequest
	var gotToken string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/email", r.URL.Path)
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(postmarkResponse{MessageID: "pm-123"})
	}))
	defer srv.Close()

	client := NewPostmarkClient(srv.URL, "secret-token", 5*time.Second)
	res, err := client.Send(context.Background(), testMessage())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "pm-123", res.MessageID)
	assert.Equal(t, "secret-token", gotToken)
	assert.Equal(t, "ursula_le_guin@gmail.com", gotReq.To)
	assert.Equal(t, "IGNITE <newsletter@ignite.com>", gotReq.From)
	assert.Equal(t, "Welcome!", gotReq.Subject)
	assert.Equal(t, "<p>confirm</p>", gotReq.HTMLBody)
	assert.Equal(t, "confirm", gotReq.TextBody)
}

func TestPostmarkProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(postmarkResponse{
			ErrorCode: 300,
			Message:   "Invalid 'To' address",
		})
	}))
	defer srv.Close()

	client := NewPostmarkClient(srv.URL, "secret-token", 5*time.Second)
	res, err := client.Send(context.Background(), testMessage())

	// A rejection is a failed result, not a transport error.
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid 'To' address", res.Error)
}

func TestPostmarkTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // server is gone: connection refused

	client := NewPostmarkClient(srv.URL, "secret-token", time.Second)
	_, err := client.Send(context.Background(), testMessage())
	assert.Error(t, err)
}

func TestPostmarkRetriesTransientServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(postmarkResponse{MessageID: "pm-retry"})
	}))
	defer srv.Close()

	client := NewPostmarkClient(srv.URL, "secret-token", 5*time.Second)
	res, err := client.Send(context.Background(), testMessage())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 2, attempts)
}
