package models

import (
	"fmt"
	"time"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	TelegramID   int64  `gorm:"uniqueIndex;not null"`
	Username     string `gorm:"size:255"`
	FirstName    string `gorm:"size:255"`
	LastName     string `gorm:"size:255"`
	PhotoURL     string `gorm:"size:512"`
	LanguageCode string `gorm:"size:10;default:'en'"`
	IsPremium    bool

	Level int   `gorm:"default:1"`
	Watts int64 `gorm:"default:0"`

	ReferralCode string `gorm:"size:16;uniqueIndex;not null"`
	// Set once when a referral is applied during first authentication,
	// never modified afterwards.
	ReferredByID *uint `gorm:"index"`

	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt time.Time
}

// DisplayName returns the best available name for showing to other players.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return fmt.Sprintf("User_%d", u.TelegramID)
}
