package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denisislamov/wattstap-referral-service/internal/models"
	"github.com/denisislamov/wattstap-referral-service/internal/referral"
)

type telegramAuthRequest struct {
	InitData     string `json:"initData" binding:"required"`
	ReferralCode string `json:"referralCode"`
}

type playerInfo struct {
	PlayerID     string `json:"playerId"`
	Nickname     string `json:"nickname"`
	Level        int    `json:"level"`
	IsNewPlayer  bool   `json:"isNewPlayer"`
	ReferralCode string `json:"referralCode"`
}

type referrerInfo struct {
	UserID    int64  `json:"userId"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Level     int    `json:"level"`
}

type referralResult struct {
	Applied          bool          `json:"applied"`
	Referrer         *referrerInfo `json:"referrer,omitempty"`
	BonusForReferrer int64         `json:"bonusForReferrer"`
	Message          string        `json:"message,omitempty"`
}

type authResponse struct {
	Token     string          `json:"token"`
	ExpiresIn int             `json:"expiresIn"`
	Player    playerInfo      `json:"player"`
	Referral  *referralResult `json:"referral,omitempty"`
}

func (s *Server) authTelegram(c *gin.Context) {
	var req telegramAuthRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := s.validator.Validate(req.InitData)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": fmt.Sprintf("authentication failed: %v", err)})
		return
	}

	// Explicit referralCode beats the start_param embedded in initData
	code := req.ReferralCode
	if code == "" {
		code = data.StartParam
	}

	outcome, err := s.engine.Authenticate(c.Request.Context(), data.User, code)
	if err != nil {
		log.Printf("Authentication failed for telegram user %d: %v", data.User.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}

	token, expiresIn, err := s.issuer.Issue(outcome.User.ID, outcome.User.TelegramID)
	if err != nil {
		log.Printf("Failed to issue token for user %d: %v", outcome.User.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Token:     token,
		ExpiresIn: expiresIn,
		Player: playerInfo{
			PlayerID:     fmt.Sprintf("%d", outcome.User.ID),
			Nickname:     outcome.User.DisplayName(),
			Level:        outcome.User.Level,
			IsNewPlayer:  outcome.IsNew,
			ReferralCode: outcome.User.ReferralCode,
		},
		Referral: toReferralResult(outcome.Referral),
	})

	if outcome.Referral != nil && outcome.Referral.Applied {
		referrer, invitee, bonus := outcome.Referral.Referrer, outcome.User, outcome.Referral.Bonus
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.notifier.ReferralApplied(ctx, referrer, invitee, bonus)
		}()
	}
}

func toReferralResult(r *referral.Result) *referralResult {
	if r == nil {
		return nil
	}
	out := &referralResult{
		Applied:          r.Applied,
		BonusForReferrer: r.Bonus,
		Message:          r.Message,
	}
	if r.Referrer != nil {
		out.Referrer = toReferrerInfo(r.Referrer)
	}
	return out
}

func toReferrerInfo(u *models.User) *referrerInfo {
	return &referrerInfo{
		UserID:    u.TelegramID,
		Nickname:  u.DisplayName(),
		AvatarURL: u.PhotoURL,
		Level:     u.Level,
	}
}
