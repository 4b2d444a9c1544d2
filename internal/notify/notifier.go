package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/redis/go-redis/v9"

	"github.com/denisislamov/wattstap-referral-service/internal/models"
)

// Notifier pushes best-effort Telegram messages to referrers when their
// code lands. It never sits on the request path: failures are logged and
// dropped. A nil *Notifier is a valid no-op.
type Notifier struct {
	bot   *telego.Bot
	redis *redis.Client
}

func New(botToken string, rdb *redis.Client) (*Notifier, error) {
	bot, err := telego.NewBot(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &Notifier{bot: bot, redis: rdb}, nil
}

// ReferralApplied tells the referrer a friend joined through their link.
// Redis dedups the message per referrer/invitee pair so a crashed-and-retried
// request does not ping twice.
func (n *Notifier) ReferralApplied(ctx context.Context, referrer, invitee *models.User, bonus int64) {
	if n == nil {
		return
	}

	key := fmt.Sprintf("notified_referral_%d_%d", referrer.ID, invitee.ID)
	if n.redis != nil {
		exists, err := n.redis.Exists(ctx, key).Result()
		if err != nil {
			log.Printf("Failed to check notification dedup key %s: %v", key, err)
		} else if exists > 0 {
			return
		}
	}

	msg := fmt.Sprintf("🎉 %s joined WattsTap via your invite link! +%d watts", invitee.DisplayName(), bonus)
	if _, err := n.bot.SendMessage(tu.Message(tu.ID(referrer.TelegramID), msg)); err != nil {
		log.Printf("Failed to send referral notification to %d: %v", referrer.TelegramID, err)
		return
	}

	if n.redis != nil {
		n.redis.Set(ctx, key, "true", 48*time.Hour)
	}
}
