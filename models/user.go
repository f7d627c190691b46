package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles a user account may hold.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Theme preferences.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// DefaultProfilePicture is the placeholder reference every new account starts with.
const DefaultProfilePicture = "default.png"

// User is a registered account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Username        string    `gorm:"size:80;not null;uniqueIndex" json:"username"`
	Email           string    `gorm:"size:120;not null;uniqueIndex" json:"email"`
	PasswordHash    string    `gorm:"size:255;not null" json:"-"`
	Role            string    `gorm:"size:20;not null;default:user" json:"role"`
	Suspended       bool      `gorm:"not null;default:false" json:"suspended"`
	ThemePreference string    `gorm:"size:10;not null;default:light" json:"theme_preference"`
	ProfilePicture  string    `gorm:"size:200;not null;default:default.png" json:"profile_picture"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate fills role, theme and picture when the caller left them blank.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.ThemePreference == "" {
		u.ThemePreference = ThemeLight
	}
	if u.ProfilePicture == "" {
		u.ProfilePicture = DefaultProfilePicture
	}
	return nil
}

// ValidRole reports whether r names a known role.
func ValidRole(r string) bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// ValidTheme reports whether t names a known theme.
func ValidTheme(t string) bool {
	return t == ThemeLight || t == ThemeDark
}
