package referral

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/denisislamov/wattstap-referral-service/internal/models"
)

// Stats is the referral summary shown on the invite screen.
type Stats struct {
	ReferralCode        string
	InviteLink          string
	BonusPerFriend      int64
	TotalFriendsInvited int64
	TotalBonusEarned    int64
}

// Friend is one entry of the friends list, seen from the caller's side of
// the friendship row.
type Friend struct {
	PlayerID      string
	Nickname      string
	Level         int
	AvatarURL     string
	TotalEarnings int64
	YourBonus     int64
	InvitedAt     time.Time
}

// Service serves read projections over users and friendships; it never
// mutates anything.
type Service struct {
	db          *gorm.DB
	bonus       int64
	botUsername string
}

func NewService(db *gorm.DB, bonus int64, botUsername string) *Service {
	return &Service{db: db, bonus: bonus, botUsername: botUsername}
}

func (s *Service) Stats(ctx context.Context, user *models.User) (*Stats, error) {
	db := s.db.WithContext(ctx)

	var invited int64
	if err := db.Model(&models.User{}).Where("referred_by_id = ?", user.ID).Count(&invited).Error; err != nil {
		return nil, fmt.Errorf("failed to count invited users: %w", err)
	}

	var earned int64
	if err := db.Model(&models.Friendship{}).Where("user_a_id = ?", user.ID).
		Select("COALESCE(SUM(bonus_a), 0)").Scan(&earned).Error; err != nil {
		return nil, fmt.Errorf("failed to sum referral bonuses: %w", err)
	}

	return &Stats{
		ReferralCode:        user.ReferralCode,
		InviteLink:          fmt.Sprintf("https://t.me/%s?startattach=REF_%s", s.botUsername, user.ReferralCode),
		BonusPerFriend:      s.bonus,
		TotalFriendsInvited: invited,
		TotalBonusEarned:    earned,
	}, nil
}

// Friends lists both sides of the user's friendships, newest first, along
// with the total bonus the user earned across them.
func (s *Service) Friends(ctx context.Context, user *models.User) ([]Friend, int64, error) {
	db := s.db.WithContext(ctx)

	var links []models.Friendship
	if err := db.Where("user_a_id = ? OR user_b_id = ?", user.ID, user.ID).
		Order("created_at desc").Find(&links).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load friendships: %w", err)
	}
	if len(links) == 0 {
		return []Friend{}, 0, nil
	}

	friendIDs := make([]uint, 0, len(links))
	for _, link := range links {
		if link.UserAID == user.ID {
			friendIDs = append(friendIDs, link.UserBID)
		} else {
			friendIDs = append(friendIDs, link.UserAID)
		}
	}

	var profiles []models.User
	if err := db.Where("id IN ?", friendIDs).Find(&profiles).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load friend profiles: %w", err)
	}
	byID := make(map[uint]*models.User, len(profiles))
	for i := range profiles {
		byID[profiles[i].ID] = &profiles[i]
	}

	friends := make([]Friend, 0, len(links))
	var totalBonus int64
	for _, link := range links {
		friendID, yourBonus := link.UserBID, link.BonusA
		if link.UserBID == user.ID {
			friendID, yourBonus = link.UserAID, link.BonusB
		}

		profile, ok := byID[friendID]
		if !ok {
			continue
		}

		totalBonus += yourBonus
		friends = append(friends, Friend{
			PlayerID:      fmt.Sprintf("%d", profile.ID),
			Nickname:      profile.DisplayName(),
			Level:         profile.Level,
			AvatarURL:     profile.PhotoURL,
			TotalEarnings: profile.Watts,
			YourBonus:     yourBonus,
			InvitedAt:     link.CreatedAt,
		})
	}

	return friends, totalBonus, nil
}
