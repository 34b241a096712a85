package models

import (
	"time"
)

// File is a catalog record for one uploaded blob. Filename uniqueness is
// enforced by the index, so racing uploads resolve in the database.
type File struct {
	FileID        uint64    `gorm:"primaryKey;autoIncrement" json:"file_id"`
	Filename      string    `gorm:"uniqueIndex;size:255;not null" json:"filename"`
	StoragePath   string    `gorm:"size:512;not null" json:"-"`
	Size          int64     `gorm:"not null;default:0" json:"size"`
	DownloadCount uint64    `gorm:"not null;default:0" json:"download_count"`
	CreatedAt     time.Time `json:"uploaded_at"`
	UpdatedAt     time.Time `json:"-"`
}

// TableName overrides the table name for File
func (File) TableName() string {
	return "files"
}
