// Package transport defines the boundary to the chat platform. The relay
// never talks to the platform directly; it consumes inbound events and a
// small capability surface (delete, reply, role query, ban/unban) behind the
// Client interface. The concrete implementation in this package speaks JSON
// over HTTP to a transport sidecar; tests substitute fakes.
package transport

import "time"

// Chat context types as reported by the platform.
const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
)

// Member roles as reported by a role query.
const (
	RoleCreator       = "creator"
	RoleAdministrator = "administrator"
	RoleMember        = "member"
)

// Document describes an attached file on an event.
type Document struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

// Member identifies a chat participant in a membership-change event.
type Member struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	IsBot bool   `json:"is_bot"`
}

// Event is one inbound chat update, normalized to what the pipeline needs.
type Event struct {
	UpdateID  int64  `json:"update_id"`
	ChatID    int64  `json:"chat_id"`
	ChatType  string `json:"chat_type"`
	ChatTitle string `json:"chat_title,omitempty"`

	MessageID  int64  `json:"message_id,omitempty"`
	SenderID   int64  `json:"sender_id,omitempty"`
	SenderName string `json:"sender_name,omitempty"`

	Text       string    `json:"text,omitempty"`
	Document   *Document `json:"document,omitempty"`
	NewMembers []Member  `json:"new_members,omitempty"`

	// BotStatus is set on membership-status updates for the relay itself
	// (e.g. "administrator" when it is promoted).
	BotStatus string `json:"bot_status,omitempty"`

	Time time.Time `json:"time"`
}

// Private reports whether the event occurred in a one-to-one context.
// Events with no chat context at all are treated as private: they carry no
// group to gate.
func (e *Event) Private() bool {
	return e.ChatType == "" || e.ChatType == ChatTypePrivate
}
