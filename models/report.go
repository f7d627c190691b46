package models

import "time"

// Report flags a menfess for staff review. Reports are append-only and vanish
// only with the menfess they point at.
type Report struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Reason     string    `gorm:"type:text;not null" json:"reason"`
	MenfessID  uint      `gorm:"index;not null" json:"menfess_id"`
	ReporterID uint      `gorm:"index;not null" json:"reporter_id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	Menfess    *Menfess  `gorm:"foreignKey:MenfessID" json:"-"`
	Reporter   *User     `gorm:"foreignKey:ReporterID" json:"-"`
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{&User{}, &Category{}, &Menfess{}, &Comment{}, &Like{}, &Report{}}
}
