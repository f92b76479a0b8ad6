// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User
// activity model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/domain"
)

// UpsertUser inserts or refreshes a participant activity record. Called by
// the activity recorder on every group-context event.
//
// last_seen never moves backwards: events for one participant may arrive out
// of order across chats, so the update keeps the greater of the stored and
// incoming timestamps.
func UpsertUser(ctx context.Context, db *gorm.DB, userID int64, username string, seenAt time.Time) error {
	u := &domain.User{
		UserID:   userID,
		Username: username,
		LastSeen: seenAt,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"username":   username,
				"last_seen":  gorm.Expr("MAX(last_seen, excluded.last_seen)"),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(u).Error
}

// FindInactiveUsers returns every participant whose last_seen is strictly
// before the cutoff.
func FindInactiveUsers(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Where("last_seen < ?", cutoff).
		Order("last_seen asc").
		Find(&out).Error
	return out, err
}

// DeleteInactiveUsers removes every participant whose last_seen is strictly
// before the cutoff and returns the number of rows deleted.
func DeleteInactiveUsers(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("last_seen < ?", cutoff).
		Delete(&domain.User{})
	return res.RowsAffected, res.Error
}
