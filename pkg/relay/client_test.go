package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	config := Config{
		URL:      "https://relay.example.com/v1/",
		Username: "testuser",
		Password: "testpass",
		Sender:   "TourExplorer",
	}

	client := NewClient(config)

	assert.NotNil(t, client)
	assert.Equal(t, "https://relay.example.com/v1", client.apiURL)
	assert.Equal(t, config.Username, client.username)
	assert.Equal(t, config.Sender, client.sender)
	assert.NotNil(t, client.client)
	assert.Equal(t, "http-relay", client.Name())
}

func TestSend_WithoutAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var msg Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "ana@example.com", msg.To)
		assert.Equal(t, "TourExplorer", msg.Sender)

		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Sender: "TourExplorer"})
	err := client.Send(context.Background(), Message{To: "ana@example.com", Subject: "Booking confirmed", Body: "hello"})
	assert.NoError(t, err)
}

func TestSend_LoginAndTokenReuse(t *testing.T) {
	var logins, sends int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			atomic.AddInt32(&logins, 1)
			w.Write([]byte(`{"success":true,"token":"tok-1","expiration":3600}`))
		case "/send":
			atomic.AddInt32(&sends, 1)
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			w.Write([]byte(`{"success":true}`))
		}
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Username: "u", Password: "p"})
	require.NoError(t, client.Send(context.Background(), Message{To: "a@example.com"}))
	require.NoError(t, client.Send(context.Background(), Message{To: "b@example.com"}))

	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
	assert.Equal(t, int32(2), atomic.LoadInt32(&sends))
}

func TestSend_Failures(t *testing.T) {
	t.Run("Rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false,"message":"quota exceeded"}`))
		}))
		defer server.Close()

		err := NewClient(Config{URL: server.URL}).Send(context.Background(), Message{To: "a@example.com"})
		assert.True(t, errors.Is(err, ErrRejected))
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("Server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		err := NewClient(Config{URL: server.URL}).Send(context.Background(), Message{To: "a@example.com"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})

	t.Run("Login failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false,"message":"bad credentials"}`))
		}))
		defer server.Close()

		err := NewClient(Config{URL: server.URL, Username: "u", Password: "wrong"}).Send(context.Background(), Message{To: "a@example.com"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "bad credentials")
	})

	t.Run("Not configured", func(t *testing.T) {
		err := NewClient(Config{}).Send(context.Background(), Message{To: "a@example.com"})
		assert.EqualError(t, err, "relay URL is not configured")
	})

	t.Run("Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{"success":true}`))
		}))
		defer server.Close()

		err := NewClient(Config{URL: server.URL, Timeout: 50 * time.Millisecond}).Send(context.Background(), Message{To: "a@example.com"})
		assert.Error(t, err)
	})
}
