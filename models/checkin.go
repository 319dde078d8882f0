package models

import "time"

// CheckIn stores one check-in record per user per local calendar day.
// CheckinDate is the local date string (YYYY-MM-DD) resolved in the timezone
// the user supplied at call time; the unique index is the last line of
// defense against double-crediting a day.
type CheckIn struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_checkins_user_day" json:"user_id"`
	CheckinDate    string    `gorm:"size:10;not null;uniqueIndex:idx_checkins_user_day" json:"checkin_date"`
	Timezone       string    `gorm:"size:64" json:"timezone"`
	MedalsAwarded  int       `json:"medals_awarded"`
	StreakAchieved int       `json:"streak_achieved"`
	StreakBonus    bool      `json:"streak_bonus"`
	CreatedAt      time.Time `json:"created_at"`
}
