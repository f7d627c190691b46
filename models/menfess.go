package models

import "time"

// Menfess is an anonymous or pseudonymous post. The author is never serialized;
// DisplayName is nil for anonymous posts.
type Menfess struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Approved    bool      `gorm:"index;not null;default:false" json:"approved"`
	UserID      uint      `gorm:"index;not null" json:"-"`
	CategoryID  *uint     `gorm:"index" json:"category_id"`
	VoiceNote   *string   `gorm:"size:200" json:"voice_note"`
	DisplayName *string   `gorm:"size:100" json:"display_name"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
