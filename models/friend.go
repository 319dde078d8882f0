package models

import "time"

// FriendCode is a user's shareable code, generated lazily on first request
// and immutable afterwards. Referral claims and friend lookups resolve users
// through it.
type FriendCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Code      string    `gorm:"size:12;uniqueIndex;not null" json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Friendship is a one-directional follow edge created by redeeming a friend
// code. Listing friends reads the edges owned by the caller.
type Friendship struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_friendships_pair" json:"user_id"`
	FriendID  uint      `gorm:"not null;uniqueIndex:idx_friendships_pair" json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
}
