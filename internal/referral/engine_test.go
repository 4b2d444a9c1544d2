package referral

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/denisislamov/wattstap-referral-service/internal/models"
	"github.com/denisislamov/wattstap-referral-service/internal/telegram"
)

const testBonus = 5000

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Per-test in-memory database to avoid cross-test interference
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Friendship{}))
	return db
}

func newTestEngine(db *gorm.DB) *Engine {
	return NewEngine(db, testBonus, 8)
}

func tgUser(id int64, username string) telegram.WebAppUser {
	return telegram.WebAppUser{ID: id, FirstName: "Test", Username: username, LanguageCode: "en"}
}

func TestAuthenticateNewUserWithoutCode(t *testing.T) {
	db := setupDB(t)
	engine := newTestEngine(db)

	outcome, err := engine.Authenticate(context.Background(), tgUser(111, "alice"), "")
	require.NoError(t, err)
	require.True(t, outcome.IsNew)
	require.NotZero(t, outcome.User.ID)
	require.Len(t, outcome.User.ReferralCode, 8)
	require.Equal(t, int64(initialWatts), outcome.User.Watts)
	require.Nil(t, outcome.User.ReferredByID)
	require.False(t, outcome.Referral.Applied)
}

func TestAuthenticateAppliesReferral(t *testing.T) {
	db := setupDB(t)
	engine := newTestEngine(db)

	referrer := models.User{TelegramID: 111, Username: "alice", Level: 3, Watts: 100, ReferralCode: "ABC234XY"}
	require.NoError(t, db.Create(&referrer).Error)

	outcome, err := engine.Authenticate(context.Background(), tgUser(222, "bob"), "ABC234XY")
	require.NoError(t, err)
	require.True(t, outcome.IsNew)
	require.True(t, outcome.Referral.Applied)
	require.Equal(t, int64(testBonus), outcome.Referral.Bonus)
	require.Equal(t, "alice", outcome.Referral.Referrer.Username)

	// New user is linked to the referrer
	require.NotNil(t, outcome.User.ReferredByID)
	require.Equal(t, referrer.ID, *outcome.User.ReferredByID)

	// Referrer credited by exactly the bonus
	var reloaded models.User
	require.NoError(t, db.First(&reloaded, referrer.ID).Error)
	require.Equal(t, int64(100+testBonus), reloaded.Watts)

	// Exactly one friendship row with the bonus on the referrer's side
	var links []models.Friendship
	require.NoError(t, db.Find(&links).Error)
	require.Len(t, links, 1)
	require.Equal(t, referrer.ID, links[0].UserAID)
	require.Equal(t, outcome.User.ID, links[0].UserBID)
	require.Equal(t, int64(testBonus), links[0].BonusA)
	require.Equal(t, int64(0), links[0].BonusB)
}

func TestAuthenticateNormalizesCode(t *testing.T) {
	db := setupDB(t)
	engine := newTestEngine(db)

	referrer := models.User{TelegramID: 111, ReferralCode: "ABC234XY"}
	require.NoError(t, db.Create(&referrer).Error)

	outcome, err := engine.Authenticate(context.Background(), tgUser(222, "bob"), "ref_abc234xy")
	require.NoError(t, err)
	require.True(t, outcome.Referral.Applied)
}

func TestAuthenticateUnknownCodeDegrades(t *testing.T) {
	db := setupDB(t)
	engine := newTestEngine(db)

	outcome, err := engine.Authenticate(context.Background(), tgUser(222, "bob"), "ZZZZZZ")
	require.NoError(t, err)
	require.True(t, outcome.IsNew)
	require.False(t, outcome.Referral.Applied)

	// User still registered with a fresh code, no friendship created
	require.Len(t, outcome.User.ReferralCode, 8)
	var count int64
	require.NoError(t, db.Model(&models.Friendship{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestAuthenticateExistingUserIsIdempotent(t *testing.T) {
	db := setupDB(t)
	engine := newTestEngine(db)

	referrer := models.User{TelegramID: 111, ReferralCode: "ABC234XY"}
	require.NoError(t, db.Create(&referrer).Error)

	first, err := engine.Authenticate(context.Background(), tgUser(222, "bob"), "ABC234XY")
	require.NoError(t, err)
	require.True(t, first.Referral.Applied)

	// Re-authenticating with the same (or any) code must not re-apply
	second, err := engine.Authenticate(context.Background(), tgUser(222, "bob"), "ABC234XY")
	require.NoError(t, err)
	require.False(t, second.IsNew)
	require.False(t, second.Referral.Applied)
	require.Equal(t, first.User.ID, second.User.ID)
	require.Equal(t, first.User.ReferralCode, second.User.ReferralCode)
	require.NotNil(t, second.User.ReferredByID)
	require.Equal(t, referrer.ID, *second.User.ReferredByID)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, referrer.ID).Error)
	require.Equal(t, int64(testBonus), reloaded.Watts)

	var count int64
	require.NoError(t, db.Model(&models.Friendship{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestCanApplyRejectsSelfReferral(t *testing.T) {
	referrer := &models.User{TelegramID: 111, ReferralCode: "ABC234XY"}

	ok, reason := canApply(referrer, 111)
	require.False(t, ok)
	require.Equal(t, "Cannot use your own referral code", reason)

	ok, _ = canApply(referrer, 222)
	require.True(t, ok)
}

func TestAuthenticateCodesStayUnique(t *testing.T) {
	db := setupDB(t)
	engine := newTestEngine(db)

	seen := make(map[string]bool)
	for i := int64(1); i <= 50; i++ {
		outcome, err := engine.Authenticate(context.Background(), tgUser(1000+i, fmt.Sprintf("user%d", i)), "")
		require.NoError(t, err)
		require.False(t, seen[outcome.User.ReferralCode], "duplicate code %s", outcome.User.ReferralCode)
		seen[outcome.User.ReferralCode] = true
	}
}

func TestAuthenticateSecondReferralForSameReferrer(t *testing.T) {
	db := setupDB(t)
	engine := newTestEngine(db)

	referrer := models.User{TelegramID: 111, ReferralCode: "ABC234XY"}
	require.NoError(t, db.Create(&referrer).Error)

	_, err := engine.Authenticate(context.Background(), tgUser(222, "bob"), "ABC234XY")
	require.NoError(t, err)
	_, err = engine.Authenticate(context.Background(), tgUser(333, "carol"), "ABC234XY")
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, referrer.ID).Error)
	require.Equal(t, int64(2*testBonus), reloaded.Watts)

	var count int64
	require.NoError(t, db.Model(&models.Friendship{}).Where("user_a_id = ?", referrer.ID).Count(&count).Error)
	require.Equal(t, int64(2), count)
}
