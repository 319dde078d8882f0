package models

import "time"

// Activity is a run synced from the fitness provider. Rows are keyed by the
// provider's activity id so repeated syncs are idempotent. Activities are a
// read surface only; they never touch the medal ledger.
type Activity struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index;not null" json:"user_id"`
	ExternalID     string    `gorm:"size:64;uniqueIndex;not null" json:"external_id"`
	Name           string    `gorm:"size:255" json:"name"`
	Sport          string    `gorm:"size:32" json:"sport"`
	DistanceMeters float64   `json:"distance_meters"`
	MovingTimeSec  int       `json:"moving_time_sec"`
	StartedAt      time.Time `json:"started_at"`
	CreatedAt      time.Time `json:"created_at"`
}
