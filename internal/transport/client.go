package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the outbound capability surface the relay consumes from the chat
// platform. Every call is context-bounded; failures are reported, logged by
// the caller, and never retried automatically.
type Client interface {
	// DeleteMessage removes a specific message from a chat.
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	// SendMessage posts a text reply into a chat.
	SendMessage(ctx context.Context, chatID int64, text string) error
	// MemberRole reports a participant's role in a chat (creator,
	// administrator, member, ...).
	MemberRole(ctx context.Context, chatID, userID int64) (string, error)
	// BanMember removes a participant from a chat.
	BanMember(ctx context.Context, chatID, userID int64) error
	// UnbanMember lifts a ban, allowing the participant to rejoin.
	UnbanMember(ctx context.Context, chatID, userID int64) error
}

// HTTPClient talks to the transport sidecar over JSON/HTTP. Each capability
// maps to POST {base}/{method} with a JSON body; the sidecar owns the actual
// platform session, tokens, and rate limits.
type HTTPClient struct {
	base string
	hc   *http.Client
}

// NewHTTPClient builds a sidecar client. timeout bounds each call on top of
// any context deadline.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		base: baseURL,
		hc:   &http.Client{Timeout: timeout},
	}
}

type roleResponse struct {
	Status string `json:"status"`
}

// DeleteMessage implements Client.
func (c *HTTPClient) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.post(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

// SendMessage implements Client.
func (c *HTTPClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.post(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, nil)
}

// MemberRole implements Client.
func (c *HTTPClient) MemberRole(ctx context.Context, chatID, userID int64) (string, error) {
	var out roleResponse
	if err := c.post(ctx, "getChatMember", map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// BanMember implements Client.
func (c *HTTPClient) BanMember(ctx context.Context, chatID, userID int64) error {
	return c.post(ctx, "banChatMember", map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}, nil)
}

// UnbanMember implements Client.
func (c *HTTPClient) UnbanMember(ctx context.Context, chatID, userID int64) error {
	return c.post(ctx, "unbanChatMember", map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}, nil)
}

func (c *HTTPClient) post(ctx context.Context, method string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("transport %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+method, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("transport %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("transport %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a short prefix for the error message, discard the rest.
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("transport %s: status %d: %s", method, resp.StatusCode, bytes.TrimSpace(b))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("transport %s: decode: %w", method, err)
		}
	}
	return nil
}
