package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/transport"
)

// ----- Fake role querier -----

type fakeRoles struct {
	role  string
	err   error
	calls int
}

func (f *fakeRoles) MemberRole(ctx context.Context, chatID, userID int64) (string, error) {
	f.calls++
	return f.role, f.err
}

func groupEvent(senderID int64) *transport.Event {
	return &transport.Event{
		ChatID:   -100,
		ChatType: transport.ChatTypeSupergroup,
		SenderID: senderID,
	}
}

func TestIsAdmin_OwnerAlways(t *testing.T) {
	roles := &fakeRoles{role: transport.RoleMember}
	c := NewChecker(999, roles, 16, time.Minute, zerolog.Nop())

	if !c.IsAdmin(context.Background(), groupEvent(999)) {
		t.Fatalf("owner denied")
	}
	if roles.calls != 0 {
		t.Fatalf("role queried for the owner")
	}
}

func TestIsAdmin_PrivateContext(t *testing.T) {
	c := NewChecker(999, &fakeRoles{}, 16, time.Minute, zerolog.Nop())

	ev := &transport.Event{ChatType: transport.ChatTypePrivate, SenderID: 42}
	if !c.IsAdmin(context.Background(), ev) {
		t.Fatalf("private context denied")
	}
}

func TestIsAdmin_AnonymousSentinel(t *testing.T) {
	roles := &fakeRoles{role: transport.RoleMember}
	c := NewChecker(999, roles, 16, time.Minute, zerolog.Nop())

	if !c.IsAdmin(context.Background(), groupEvent(AnonymousAdminID)) {
		t.Fatalf("anonymous-admin sentinel denied")
	}
	if roles.calls != 0 {
		t.Fatalf("role queried for the sentinel identity")
	}
}

func TestIsAdmin_MissingSenderDenied(t *testing.T) {
	c := NewChecker(999, &fakeRoles{role: transport.RoleCreator}, 16, time.Minute, zerolog.Nop())

	if c.IsAdmin(context.Background(), groupEvent(0)) {
		t.Fatalf("event without a sender granted admin")
	}
}

func TestIsAdmin_LiveRoleQuery(t *testing.T) {
	for role, want := range map[string]bool{
		transport.RoleCreator:       true,
		transport.RoleAdministrator: true,
		transport.RoleMember:        false,
		"left":                      false,
	} {
		c := NewChecker(999, &fakeRoles{role: role}, 16, time.Minute, zerolog.Nop())
		if got := c.IsAdmin(context.Background(), groupEvent(42)); got != want {
			t.Errorf("role %q: IsAdmin = %v, want %v", role, got, want)
		}
	}
}

func TestIsAdmin_FailsClosedOnQueryError(t *testing.T) {
	roles := &fakeRoles{err: errors.New("kicked")}
	c := NewChecker(999, roles, 16, time.Minute, zerolog.Nop())

	if c.IsAdmin(context.Background(), groupEvent(42)) {
		t.Fatalf("query error granted admin, want fail-closed")
	}

	// Errors are not cached; the next call retries the transport.
	roles.err = nil
	roles.role = transport.RoleAdministrator
	if !c.IsAdmin(context.Background(), groupEvent(42)) {
		t.Fatalf("recovered transport still denied")
	}
	if roles.calls != 2 {
		t.Fatalf("calls = %d, want 2 (error must not be cached)", roles.calls)
	}
}

func TestIsAdmin_CachesRoleLookups(t *testing.T) {
	roles := &fakeRoles{role: transport.RoleAdministrator}
	c := NewChecker(999, roles, 16, time.Minute, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if !c.IsAdmin(context.Background(), groupEvent(42)) {
			t.Fatalf("admin denied on call %d", i)
		}
	}
	if roles.calls != 1 {
		t.Fatalf("role queried %d times, want 1 (cached)", roles.calls)
	}

	// A different chat is a different cache entry.
	ev := groupEvent(42)
	ev.ChatID = -200
	c.IsAdmin(context.Background(), ev)
	if roles.calls != 2 {
		t.Fatalf("calls = %d, want 2 (cache keyed per chat)", roles.calls)
	}
}
