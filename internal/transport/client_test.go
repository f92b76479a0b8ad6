package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPClient_PostsCapabilityCalls(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)

	if err := c.DeleteMessage(context.Background(), -100, 7); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if gotPath != "/deleteMessage" {
		t.Fatalf("path = %q, want /deleteMessage", gotPath)
	}
	if gotBody["chat_id"].(float64) != -100 || gotBody["message_id"].(float64) != 7 {
		t.Fatalf("body = %v", gotBody)
	}

	if err := c.SendMessage(context.Background(), -100, "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if gotPath != "/sendMessage" || gotBody["text"] != "hello" {
		t.Fatalf("path=%q body=%v", gotPath, gotBody)
	}

	if err := c.BanMember(context.Background(), -100, 42); err != nil {
		t.Fatalf("BanMember: %v", err)
	}
	if gotPath != "/banChatMember" {
		t.Fatalf("path = %q, want /banChatMember", gotPath)
	}

	if err := c.UnbanMember(context.Background(), -100, 42); err != nil {
		t.Fatalf("UnbanMember: %v", err)
	}
	if gotPath != "/unbanChatMember" {
		t.Fatalf("path = %q, want /unbanChatMember", gotPath)
	}
}

func TestHTTPClient_MemberRoleDecodesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getChatMember" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"administrator"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	role, err := c.MemberRole(context.Background(), -100, 42)
	if err != nil {
		t.Fatalf("MemberRole: %v", err)
	}
	if role != RoleAdministrator {
		t.Fatalf("role = %q, want administrator", role)
	}
}

func TestHTTPClient_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "message to delete not found", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	err := c.DeleteMessage(context.Background(), -100, 7)
	if err == nil {
		t.Fatalf("expected error on 400")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("err = %v, want status in message", err)
	}
}

func TestHTTPClient_HonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read; otherwise
		// it never notices the client disconnect, r.Context() is never
		// cancelled, and srv.Close() deadlocks on this handler.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := c.SendMessage(ctx, -100, "late"); err == nil {
		t.Fatalf("expected context deadline error")
	}
}

func TestEvent_Private(t *testing.T) {
	cases := []struct {
		chatType string
		want     bool
	}{
		{"", true},
		{ChatTypePrivate, true},
		{ChatTypeGroup, false},
		{ChatTypeSupergroup, false},
	}
	for _, c := range cases {
		ev := &Event{ChatType: c.chatType}
		if got := ev.Private(); got != c.want {
			t.Errorf("Private() with chat type %q = %v, want %v", c.chatType, got, c.want)
		}
	}
}
