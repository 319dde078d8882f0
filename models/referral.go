package models

import "time"

// Referral links a referred user to their referrer. A user can be referred at
// most once, ever; the unique index on ReferredUserID enforces that at the
// storage layer. MedalsEarned is the running total credited to the referrer
// from this relationship and never exceeds the configured cap.
type Referral struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ReferrerID     uint      `gorm:"index;not null" json:"referrer_id"`
	ReferredUserID uint      `gorm:"uniqueIndex;not null" json:"referred_user_id"`
	ReferralCode   string    `gorm:"size:16;not null" json:"referral_code"`
	MedalsEarned   int       `gorm:"default:0" json:"medals_earned"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
