package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/denisislamov/wattstap-referral-service/internal/models"
	"github.com/denisislamov/wattstap-referral-service/internal/telegram"
)

const (
	initialWatts = 1000

	// codeAttempts bounds the pre-insert uniqueness probes, createAttempts
	// bounds retries when a concurrent insert still wins the race on the
	// referral_code unique index.
	codeAttempts   = 10
	createAttempts = 3
)

// Result describes what happened to the referral code sent along with an
// authentication request. A not-found or self-referral code degrades to
// Applied=false instead of failing the request.
type Result struct {
	Applied  bool
	Referrer *models.User
	Bonus    int64
	Message  string
}

// AuthOutcome is the state after one authentication event.
type AuthOutcome struct {
	User     *models.User
	IsNew    bool
	Referral *Result
}

// Engine runs the referral award flow. All mutations of one authentication
// event happen inside a single transaction.
type Engine struct {
	db         *gorm.DB
	bonus      int64
	codeLength int
}

func NewEngine(db *gorm.DB, bonus int64, codeLength int) *Engine {
	return &Engine{db: db, bonus: bonus, codeLength: codeLength}
}

// Authenticate finds or creates the user for a verified Telegram profile and,
// for new users arriving with a referral code, applies the award flow:
// link referred_by, credit the referrer, record the friendship.
// Re-authenticating an existing user never re-applies a referral.
func (e *Engine) Authenticate(ctx context.Context, tg telegram.WebAppUser, referralCode string) (*AuthOutcome, error) {
	outcome := &AuthOutcome{}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("telegram_id = ?", tg.ID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&existing).Update("last_login_at", time.Now()).Error; err != nil {
				return fmt.Errorf("failed to update last login: %w", err)
			}
			outcome.User = &existing
			if referralCode != "" {
				outcome.Referral = &Result{Applied: false, Message: "Referral code can only be applied on first login"}
			}
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to look up user: %w", err)
		}

		outcome.IsNew = true

		var referrer *models.User
		if referralCode != "" {
			var candidate models.User
			lookupErr := tx.Where("referral_code = ?", NormalizeCode(referralCode)).First(&candidate).Error
			switch {
			case lookupErr == nil:
				if ok, reason := canApply(&candidate, tg.ID); ok {
					referrer = &candidate
				} else {
					outcome.Referral = &Result{Applied: false, Message: reason}
				}
			case errors.Is(lookupErr, gorm.ErrRecordNotFound):
				outcome.Referral = &Result{Applied: false, Message: "Invalid referral code"}
			default:
				return fmt.Errorf("failed to look up referrer: %w", lookupErr)
			}
		}

		user, err := e.createUser(tx, tg)
		if err != nil {
			return err
		}
		outcome.User = user

		if referrer == nil {
			if outcome.Referral == nil {
				outcome.Referral = &Result{Applied: false, Message: "No referral code provided"}
			}
			return nil
		}

		if err := tx.Model(user).Update("referred_by_id", referrer.ID).Error; err != nil {
			return fmt.Errorf("failed to link referrer: %w", err)
		}
		user.ReferredByID = &referrer.ID

		// Atomic increment, not read-modify-write: concurrent referrals of
		// the same referrer must not lose updates.
		if err := tx.Model(&models.User{}).Where("id = ?", referrer.ID).
			UpdateColumn("watts", gorm.Expr("watts + ?", e.bonus)).Error; err != nil {
			return fmt.Errorf("failed to credit referrer: %w", err)
		}
		referrer.Watts += e.bonus

		friendship := models.Friendship{
			UserAID: referrer.ID,
			UserBID: user.ID,
			BonusA:  e.bonus,
		}
		if err := tx.Create(&friendship).Error; err != nil {
			return fmt.Errorf("failed to create friendship: %w", err)
		}

		outcome.Referral = &Result{
			Applied:  true,
			Referrer: referrer,
			Bonus:    e.bonus,
			Message:  fmt.Sprintf("You were invited by %s!", referrer.DisplayName()),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// canApply rejects self-referral: the code owner and the authenticating
// Telegram account must be different people.
func canApply(referrer *models.User, telegramID int64) (bool, string) {
	if referrer.TelegramID == telegramID {
		return false, "Cannot use your own referral code"
	}
	return true, "OK"
}

func (e *Engine) createUser(tx *gorm.DB, tg telegram.WebAppUser) (*models.User, error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		code, err := e.uniqueCode(tx)
		if err != nil {
			return nil, err
		}

		user := models.User{
			TelegramID:   tg.ID,
			Username:     tg.Username,
			FirstName:    tg.FirstName,
			LastName:     tg.LastName,
			PhotoURL:     tg.PhotoURL,
			LanguageCode: tg.LanguageCode,
			IsPremium:    tg.IsPremium,
			Level:        1,
			Watts:        initialWatts,
			ReferralCode: code,
			LastLoginAt:  time.Now(),
		}

		err = tx.Create(&user).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		// Lost the race on the referral_code unique index, try a fresh code.
	}
	return nil, fmt.Errorf("failed to create user %d: referral code conflicts exhausted", tg.ID)
}

// uniqueCode probes generated codes against the users table; the unique
// index remains the real guarantee, this just keeps insert retries rare.
func (e *Engine) uniqueCode(tx *gorm.DB) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := GenerateCode(e.codeLength)
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	// The short space is unexpectedly crowded, widen it.
	return GenerateCode(e.codeLength + 4)
}
