// Package domain defines the persistence models for groups, licenses,
// participants, settings, and security events. These types are mapped with
// GORM and form the core data layer of the relay.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Security-log entry kinds. The shield and the document moderator record
// one entry per blocked message.
const (
	SecurityKindMalware      = "MALWARE"
	SecurityKindLink         = "LINK"
	SecurityKindUnauthorized = "UNAUTHORIZED"
)

// SettingAdminContact is the Setting key holding the contact tag mentioned
// in security alerts (e.g. "@moderators").
const SettingAdminContact = "ADMIN_USERNAME"

// Group represents a chat known to the relay. A group becomes serviceable
// once IsAuthorized flips to true, which only the license state machine does.
//
// Invariant: IsAuthorized == true implies AuthorizedAt and AuthorizedBy are
// set. Groups are never deleted; authorization is soft state.
type Group struct {
	ChatID       int64      `json:"chat_id"       gorm:"primaryKey;autoIncrement:false"`
	Name         string     `json:"name"          gorm:"type:varchar(255)"`
	IsAuthorized bool       `json:"is_authorized" gorm:"not null;default:false;index"`
	AuthorizedAt *time.Time `json:"authorized_at,omitempty"`
	AuthorizedBy *int64     `json:"authorized_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Group.
func (Group) TableName() string { return "groups" }

// License is a one-time activation key. Once IsRedeemed is true the key is
// permanently inert; no code path un-redeems it.
type License struct {
	ID             string     `json:"id"              gorm:"type:char(36);primaryKey"`
	Key            string     `json:"key"             gorm:"type:char(36);not null;uniqueIndex"`
	CreatedBy      int64      `json:"created_by"      gorm:"not null"`
	CreatedAt      time.Time  `json:"created_at"`
	IsRedeemed     bool       `json:"is_redeemed"     gorm:"not null;default:false;index"`
	RedeemedBy     *int64     `json:"redeemed_by,omitempty"`
	RedeemedAt     *time.Time `json:"redeemed_at,omitempty"`
	RedeemedInChat *int64     `json:"redeemed_in_chat,omitempty"`
}

// TableName returns the database table name for License.
func (License) TableName() string { return "licenses" }

// User is a participant activity record. LastSeen is monotonically
// non-decreasing under normal operation; the activity recorder bumps it on
// every observed group-context event and a background job prunes records
// after prolonged inactivity.
type User struct {
	UserID    int64     `json:"user_id"   gorm:"primaryKey;autoIncrement:false"`
	Username  string    `json:"username"  gorm:"type:varchar(255)"`
	LastSeen  time.Time `json:"last_seen" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Setting is a generic key/value row for small pieces of mutable
// configuration, e.g. the designated security-alert contact tag.
type Setting struct {
	Key       string    `json:"key"        gorm:"type:varchar(64);primaryKey"`
	Value     string    `json:"value"      gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Setting.
func (Setting) TableName() string { return "settings" }

// SecurityLog records a moderation action taken at the transport boundary.
type SecurityLog struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Kind      string         `json:"kind"       gorm:"type:varchar(16);not null;check:kind IN ('MALWARE','LINK','UNAUTHORIZED');index"`
	UserID    int64          `json:"user_id"    gorm:"not null;index"`
	Username  string         `json:"username"   gorm:"type:varchar(255)"`
	ChatID    int64          `json:"chat_id"    gorm:"not null;index"`
	ChatTitle string         `json:"chat_title" gorm:"type:varchar(255)"`
	Details   string         `json:"details"    gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for SecurityLog.
func (SecurityLog) TableName() string { return "security_logs" }
