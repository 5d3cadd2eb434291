package model

import (
	"time"
)

// ProcessedPost is the ledger row proving a post has been handled. A row is
// inserted exactly once per (account_handle, post_id); its presence is the
// sole source of truth for "already seen" across runs.
type ProcessedPost struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountHandle string    `json:"account_handle" gorm:"type:varchar(255);not null;uniqueIndex:ux_account_post,priority:1"`
	PostID        string    `json:"post_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_account_post,priority:2"`
	PostURL       string    `json:"post_url" gorm:"type:varchar(512)"`
	Caption       string    `json:"caption"`
	Hashtags      string    `json:"hashtags"` // JSON-encoded ordered list
	Transcript    *string   `json:"transcript,omitempty"`
	ArchiveRef    *string   `json:"archive_ref,omitempty"`
	PublishedAt   time.Time `json:"published_at"`
	ProcessedAt   time.Time `json:"processed_at" gorm:"index"`
	Notified      bool      `json:"notified" gorm:"default:false"`
}

// TableName specifies the table name for ProcessedPost
func (ProcessedPost) TableName() string {
	return "processed_posts"
}
