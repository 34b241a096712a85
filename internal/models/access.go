package models

import (
	"time"
)

// FileAccess is one grant: a user's permission state for one file.
// The composite unique index keeps at most one row per (user, file)
// pair; absence of a row means deny.
type FileAccess struct {
	AccessID   uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID     uint64    `gorm:"not null;index:idx_user_file,unique" json:"user_id"`
	FileID     uint64    `gorm:"not null;index:idx_user_file,unique" json:"file_id"`
	Permission bool      `gorm:"not null;default:true" json:"permission"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// DownloadLog is one ledger entry per successful download. Rows are
// never updated; they are removed only when the file they reference is
// deleted.
type DownloadLog struct {
	LogID     uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    uint64    `gorm:"not null;index" json:"user_id"`
	FileID    uint64    `gorm:"not null;index" json:"file_id"`
	Detail    JSON      `json:"detail,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}

// TableName overrides the table name for FileAccess
func (FileAccess) TableName() string {
	return "file_access"
}

// TableName overrides the table name for DownloadLog
func (DownloadLog) TableName() string {
	return "download_logs"
}
