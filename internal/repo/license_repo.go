// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the License model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/domain"
)

// CreateLicense inserts a new license row in the issued (unredeemed) state.
// Both the row ID and the key itself are random UUIDs.
func CreateLicense(ctx context.Context, db *gorm.DB, createdBy int64) (*domain.License, error) {
	l := &domain.License{
		ID:        uuid.NewString(),
		Key:       uuid.NewString(),
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// FindLicense fetches a license by its key, or ErrNotFound if missing.
func FindLicense(ctx context.Context, db *gorm.DB, key string) (*domain.License, error) {
	var l domain.License
	err := db.WithContext(ctx).
		Where("key = ?", key).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// RedeemLicense marks a license as redeemed, recording who spent it, when,
// and in which chat. The WHERE clause guards against double redemption: if
// the row was already redeemed (possibly by a concurrent activation), zero
// rows are affected and ErrNotFound is returned so the caller can report the
// key as spent.
func RedeemLicense(ctx context.Context, db *gorm.DB, id string, redeemedBy, chatID int64, redeemedAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.License{}).
		Where("id = ? AND is_redeemed = ?", id, false).
		Updates(map[string]any{
			"is_redeemed":      true,
			"redeemed_by":      redeemedBy,
			"redeemed_at":      redeemedAt,
			"redeemed_in_chat": chatID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListLicensesIssued returns every license created by the given identity,
// most recent first.
func ListLicensesIssued(ctx context.Context, db *gorm.DB, createdBy int64) ([]domain.License, error) {
	var out []domain.License
	err := db.WithContext(ctx).
		Where("created_by = ?", createdBy).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
