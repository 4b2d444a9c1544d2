package models

import (
	"time"
)

// Friendship links a referrer (side A) with the player they invited (side B).
// Exactly one row exists per referral event; the unique index on the pair
// closes the door on double awards.
type Friendship struct {
	ID        uint  `gorm:"primaryKey"`
	UserAID   uint  `gorm:"not null;index;uniqueIndex:uq_friendship_pair"`
	UserBID   uint  `gorm:"not null;index;uniqueIndex:uq_friendship_pair"`
	BonusA    int64 `gorm:"not null;default:0"`
	BonusB    int64 `gorm:"not null;default:0"`
	CreatedAt time.Time
}
