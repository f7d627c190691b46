package models

import "time"

// Comment is a reply on a menfess. Comments are never edited, only removed.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MenfessID uint      `gorm:"index:idx_comment_thread,priority:1;not null" json:"menfess_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_comment_thread,priority:2" json:"created_at"`
}
