package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a runner. Passwords are stored as bcrypt hashes only.
//
// The check-in fields form the per-user streak state: LastCheckInDate holds a
// local calendar date as a YYYY-MM-DD string (never a timestamp), CurrentStreak
// counts consecutive local days with a check-in, and LastBonusStreak records
// the highest streak value a bonus was already granted at.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string `gorm:"size:255" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	DisplayName  string `gorm:"size:64" json:"display_name"`
	Bio          string `gorm:"size:255" json:"bio"`
	AvatarURL    string `gorm:"size:512" json:"avatar_url"`

	LastCheckInDate string `gorm:"size:10" json:"last_check_in_date"`
	CurrentStreak   int    `gorm:"default:0" json:"current_streak"`
	LastBonusStreak int    `gorm:"default:0" json:"-"`

	// Strava connection; tokens never leave the server.
	StravaAthleteID    string     `gorm:"size:32;index" json:"-"`
	StravaAccessToken  string     `gorm:"size:255" json:"-"`
	StravaRefreshToken string     `gorm:"size:255" json:"-"`
	StravaTokenExpiry  *time.Time `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// StravaConnected reports whether the user has linked a Strava account.
func (u *User) StravaConnected() bool {
	return u.StravaAthleteID != ""
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
