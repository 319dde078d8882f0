package models

import "time"

// Medal ledger entry reasons. Every balance change carries exactly one.
const (
	MedalReasonCheckIn         = "CHECK_IN"
	MedalReasonStreakBonus     = "STREAK_BONUS"
	MedalReasonReferralWelcome = "REFERRAL_WELCOME"
	MedalReasonReferralShare   = "REFERRAL_SHARE"
)

// MedalEntry is an immutable, append-only ledger record. The set of entries
// for a user is the source of truth for their medal balance; nothing in the
// system stores a balance that can drift from this table.
type MedalEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Amount    int       `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"size:32;not null" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (MedalEntry) TableName() string {
	return "medal_entries"
}

// Earned reports whether the reason counts as medals earned by the user's own
// activity, which is what referral shares are computed from.
func (m *MedalEntry) Earned() bool {
	return m.Reason == MedalReasonCheckIn || m.Reason == MedalReasonStreakBonus
}
