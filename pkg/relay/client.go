package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrRejected is returned when the relay answers {"success": false}
var ErrRejected = errors.New("message rejected by relay")

// Client sends rendered messages through a third-party message relay
type Client struct {
	apiURL   string
	username string
	password string
	sender   string
	client   *http.Client

	// Token management
	token       string
	tokenMutex  sync.RWMutex
	tokenExpiry time.Time
}

// Config holds configuration for the relay client
type Config struct {
	URL      string
	Username string // optional; no login is performed when empty
	Password string
	Sender   string
	Timeout  time.Duration
}

// NewClient creates a new relay client
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiURL:   strings.TrimRight(config.URL, "/"),
		username: config.Username,
		password: config.Password,
		sender:   config.Sender,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Message is a single outbound notification
type Message struct {
	To      string `json:"to"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

// loginRequest represents the login request structure
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse represents the login response structure
type loginResponse struct {
	Success    bool   `json:"success"`
	Token      string `json:"token"`
	Expiration int    `json:"expiration"` // seconds
	Message    string `json:"message"`
}

// sendResponse represents the relay answer to a send
type sendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Name identifies the relay in logs
func (c *Client) Name() string {
	return "http-relay"
}

// Send delivers one message. A nil error means the relay reported success.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c.apiURL == "" {
		return fmt.Errorf("relay URL is not configured")
	}

	if err := c.ensureValidToken(ctx); err != nil {
		return fmt.Errorf("failed to get relay token: %w", err)
	}

	if msg.Sender == "" {
		msg.Sender = c.sender
	}

	var resp sendResponse
	if err := c.post(ctx, "/send", msg, true, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return nil
}

// login retrieves an access token
func (c *Client) login(ctx context.Context) error {
	var resp loginResponse
	if err := c.post(ctx, "/login", loginRequest{Username: c.username, Password: c.password}, false, &resp); err != nil {
		return err
	}
	if !resp.Success || resp.Token == "" {
		return fmt.Errorf("login failed: %s", resp.Message)
	}

	c.tokenMutex.Lock()
	c.token = resp.Token
	c.tokenExpiry = time.Now().Add(time.Duration(resp.Expiration) * time.Second)
	c.tokenMutex.Unlock()

	return nil
}

// isTokenValid checks if the current token is still valid
func (c *Client) isTokenValid() bool {
	c.tokenMutex.RLock()
	defer c.tokenMutex.RUnlock()

	if c.token == "" {
		return false
	}

	// Refresh a minute before the relay would reject the token
	return time.Now().Before(c.tokenExpiry.Add(-1 * time.Minute))
}

func (c *Client) ensureValidToken(ctx context.Context) error {
	if c.username == "" || c.isTokenValid() {
		return nil
	}
	return c.login(ctx)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, authenticated bool, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if authenticated && c.username != "" {
		c.tokenMutex.RLock()
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
		c.tokenMutex.RUnlock()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send relay request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read relay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse relay response: %w", err)
	}
	return nil
}
