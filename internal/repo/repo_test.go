package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/domain"
)

// newTestDB opens a fresh migrated SQLite database in a per-test temp dir.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ----- Group -----

func TestFindGroup_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := FindGroup(context.Background(), db, -100)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertGroup_InsertThenUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if _, err := UpsertGroup(ctx, db, -100, "Ops Room", 42, now); err != nil {
		t.Fatalf("insert: %v", err)
	}

	g, err := FindGroup(ctx, db, -100)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !g.IsAuthorized || g.Name != "Ops Room" {
		t.Fatalf("group = %+v, want authorized with name", g)
	}
	if g.AuthorizedBy == nil || *g.AuthorizedBy != 42 {
		t.Fatalf("AuthorizedBy = %v, want 42", g.AuthorizedBy)
	}

	// Re-upsert with an empty name re-stamps metadata but keeps the title.
	later := now.Add(time.Hour)
	if _, err := UpsertGroup(ctx, db, -100, "", 77, later); err != nil {
		t.Fatalf("update: %v", err)
	}
	g, err = FindGroup(ctx, db, -100)
	if err != nil {
		t.Fatalf("find after update: %v", err)
	}
	if g.Name != "Ops Room" {
		t.Fatalf("empty name erased the title: %q", g.Name)
	}
	if *g.AuthorizedBy != 77 {
		t.Fatalf("AuthorizedBy = %d, want re-stamped 77", *g.AuthorizedBy)
	}
}

func TestListAuthorizedGroupIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []int64{-100, -200} {
		if _, err := UpsertGroup(ctx, db, id, "", 42, now); err != nil {
			t.Fatalf("upsert %d: %v", id, err)
		}
	}
	// A known but unauthorized group must not be listed.
	if err := db.Create(&domain.Group{ChatID: -300, Name: "Cold"}).Error; err != nil {
		t.Fatalf("create unauthorized group: %v", err)
	}

	ids, err := ListAuthorizedGroupIDs(ctx, db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want the two authorized groups", ids)
	}
	for _, id := range ids {
		if id != -100 && id != -200 {
			t.Fatalf("unexpected id %d in %v", id, ids)
		}
	}
}

// ----- License -----

func TestLicenseLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	lic, err := CreateLicense(ctx, db, 999)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lic.Key == "" || lic.IsRedeemed {
		t.Fatalf("fresh license malformed: %+v", lic)
	}

	got, err := FindLicense(ctx, db, lic.Key)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != lic.ID {
		t.Fatalf("found wrong license: %+v", got)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := RedeemLicense(ctx, db, lic.ID, 42, -100, now); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	got, err = FindLicense(ctx, db, lic.Key)
	if err != nil {
		t.Fatalf("find after redeem: %v", err)
	}
	if !got.IsRedeemed || got.RedeemedBy == nil || *got.RedeemedBy != 42 {
		t.Fatalf("license not fully redeemed: %+v", got)
	}
	if got.RedeemedInChat == nil || *got.RedeemedInChat != -100 {
		t.Fatalf("RedeemedInChat = %v, want -100", got.RedeemedInChat)
	}

	// Second redemption finds zero unredeemed rows.
	err = RedeemLicense(ctx, db, lic.ID, 43, -200, now)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("double redeem err = %v, want ErrNotFound", err)
	}
}

func TestFindLicense_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := FindLicense(context.Background(), db, "no-such-key")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListLicensesIssued(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := CreateLicense(ctx, db, 999); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := CreateLicense(ctx, db, 111); err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := ListLicensesIssued(ctx, db, 999)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
}

// ----- User -----

func TestUpsertUser_BumpsLastSeen(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	first := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	if err := UpsertUser(ctx, db, 42, "alice", first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := UpsertUser(ctx, db, 42, "alice_new", first.Add(time.Hour)); err != nil {
		t.Fatalf("update: %v", err)
	}

	var u domain.User
	if err := db.First(&u, "user_id = ?", 42).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.Username != "alice_new" {
		t.Fatalf("username = %q, want refreshed", u.Username)
	}
	if !u.LastSeen.Equal(first.Add(time.Hour)) {
		t.Fatalf("last_seen = %v, want bumped", u.LastSeen)
	}
}

func TestUpsertUser_LastSeenNeverRegresses(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	noon := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	if err := UpsertUser(ctx, db, 7, "alice", noon); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// An older event from another chat arrives late.
	if err := UpsertUser(ctx, db, 7, "alice", noon.Add(-time.Hour)); err != nil {
		t.Fatalf("late update: %v", err)
	}

	var u domain.User
	if err := db.First(&u, "user_id = ?", 7).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if !u.LastSeen.Equal(noon) {
		t.Fatalf("last_seen = %v, want %v kept (must not move backwards)", u.LastSeen, noon)
	}

	// A genuinely newer event still advances it.
	if err := UpsertUser(ctx, db, 7, "alice", noon.Add(time.Hour)); err != nil {
		t.Fatalf("newer update: %v", err)
	}
	if err := db.First(&u, "user_id = ?", 7).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if !u.LastSeen.Equal(noon.Add(time.Hour)) {
		t.Fatalf("last_seen = %v, want advanced to %v", u.LastSeen, noon.Add(time.Hour))
	}
}

func TestInactiveUsers_FindAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	if err := UpsertUser(ctx, db, 1, "stale", cutoff.Add(-time.Hour)); err != nil {
		t.Fatalf("insert stale: %v", err)
	}
	if err := UpsertUser(ctx, db, 2, "fresh", cutoff.Add(time.Hour)); err != nil {
		t.Fatalf("insert fresh: %v", err)
	}

	inactive, err := FindInactiveUsers(ctx, db, cutoff)
	if err != nil {
		t.Fatalf("find inactive: %v", err)
	}
	if len(inactive) != 1 || inactive[0].UserID != 1 {
		t.Fatalf("inactive = %+v, want only the stale user", inactive)
	}

	n, err := DeleteInactiveUsers(ctx, db, cutoff)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d rows, want 1", n)
	}

	var remaining int64
	if err := db.Model(&domain.User{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("remaining = %d, want the fresh user only", remaining)
	}
}

// ----- Setting / SecurityLog -----

func TestSettingUpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := GetSetting(ctx, db, domain.SettingAdminContact); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := UpsertSetting(ctx, db, domain.SettingAdminContact, "@ops_team"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := UpsertSetting(ctx, db, domain.SettingAdminContact, "@night_shift"); err != nil {
		t.Fatalf("update: %v", err)
	}

	s, err := GetSetting(ctx, db, domain.SettingAdminContact)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Value != "@night_shift" {
		t.Fatalf("value = %q, want the replacement", s.Value)
	}
}

func TestCreateSecurityLog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := CreateSecurityLog(ctx, db, domain.SecurityKindLink, 42, "alice", -100, "Ops Room", "http://example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var entry domain.SecurityLog
	if err := db.First(&entry, "kind = ?", domain.SecurityKindLink).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if entry.UserID != 42 || entry.Details != "http://example.com" {
		t.Fatalf("entry = %+v", entry)
	}
}
