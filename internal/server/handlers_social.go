package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type myReferralResponse struct {
	ReferralCode        string `json:"referralCode"`
	InviteLink          string `json:"inviteLink"`
	BonusPerFriend      int64  `json:"bonusPerFriend"`
	TotalFriendsInvited int64  `json:"totalFriendsInvited"`
	TotalBonusEarned    int64  `json:"totalBonusEarned"`
}

type friendInfo struct {
	PlayerID      string    `json:"playerId"`
	Nickname      string    `json:"nickname"`
	Level         int       `json:"level"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	TotalEarnings int64     `json:"totalEarnings"`
	YourBonus     int64     `json:"yourBonus"`
	InvitedAt     time.Time `json:"invitedAt"`
}

type friendsListResponse struct {
	Friends          []friendInfo `json:"friends"`
	TotalFriends     int          `json:"totalFriends"`
	TotalBonusEarned int64        `json:"totalBonusEarned"`
}

func (s *Server) myReferral(c *gin.Context) {
	user := currentUser(c)

	stats, err := s.social.Stats(c.Request.Context(), user)
	if err != nil {
		log.Printf("Failed to load referral stats for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load referral stats"})
		return
	}

	c.JSON(http.StatusOK, myReferralResponse{
		ReferralCode:        stats.ReferralCode,
		InviteLink:          stats.InviteLink,
		BonusPerFriend:      stats.BonusPerFriend,
		TotalFriendsInvited: stats.TotalFriendsInvited,
		TotalBonusEarned:    stats.TotalBonusEarned,
	})
}

func (s *Server) friends(c *gin.Context) {
	user := currentUser(c)

	friends, totalBonus, err := s.social.Friends(c.Request.Context(), user)
	if err != nil {
		log.Printf("Failed to load friends for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friends"})
		return
	}

	out := make([]friendInfo, 0, len(friends))
	for _, f := range friends {
		out = append(out, friendInfo{
			PlayerID:      f.PlayerID,
			Nickname:      f.Nickname,
			Level:         f.Level,
			AvatarURL:     f.AvatarURL,
			TotalEarnings: f.TotalEarnings,
			YourBonus:     f.YourBonus,
			InvitedAt:     f.InvitedAt,
		})
	}

	c.JSON(http.StatusOK, friendsListResponse{
		Friends:          out,
		TotalFriends:     len(out),
		TotalBonusEarned: totalBonus,
	})
}
