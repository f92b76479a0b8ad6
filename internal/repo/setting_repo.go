// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Setting
// key/value model and the SecurityLog audit model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/domain"
)

// GetSetting fetches a setting by key, or ErrNotFound if missing.
func GetSetting(ctx context.Context, db *gorm.DB, key string) (*domain.Setting, error) {
	var s domain.Setting
	err := db.WithContext(ctx).
		Where("key = ?", key).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSetting inserts or replaces a setting value.
func UpsertSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	s := &domain.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(s).Error
}

// CreateSecurityLog records a moderation action. Kind must be one of the
// domain.SecurityKind* constants; the check constraint enforces it.
func CreateSecurityLog(ctx context.Context, db *gorm.DB, kind string, userID int64, username string, chatID int64, chatTitle, details string) error {
	entry := &domain.SecurityLog{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    userID,
		Username:  username,
		ChatID:    chatID,
		ChatTitle: chatTitle,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(entry).Error
}
