package models

import "time"

// Like marks a user's like on a menfess. At most one row exists per (menfess, user).
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MenfessID uint      `gorm:"not null;uniqueIndex:idx_like_menfess_user" json:"menfess_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_menfess_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
