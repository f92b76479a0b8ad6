// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Group model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a group is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the store layer and services.
var ErrNotFound = gorm.ErrRecordNotFound

// FindGroup fetches a group by chat ID, or ErrNotFound if missing.
func FindGroup(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Group, error) {
	var g domain.Group
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// UpsertGroup inserts or updates a group row, flipping it to authorized and
// stamping the authorization metadata. Name is only overwritten when
// non-empty so a bare override does not erase a known title.
func UpsertGroup(ctx context.Context, db *gorm.DB, chatID int64, name string, authorizedBy int64, authorizedAt time.Time) (*domain.Group, error) {
	g := &domain.Group{
		ChatID:       chatID,
		Name:         name,
		IsAuthorized: true,
		AuthorizedAt: &authorizedAt,
		AuthorizedBy: &authorizedBy,
	}
	cols := []string{"is_authorized", "authorized_at", "authorized_by", "updated_at"}
	if name != "" {
		cols = append(cols, "name")
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(g).Error
	if err != nil {
		return nil, err
	}
	return g, nil
}

// ListAuthorizedGroupIDs returns the chat IDs of every authorized group.
// This feeds the authorization cache reload.
func ListAuthorizedGroupIDs(ctx context.Context, db *gorm.DB) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.Group{}).
		Where("is_authorized = ?", true).
		Pluck("chat_id", &ids).Error
	return ids, err
}
