package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformed        = errors.New("malformed init data")
	ErrInvalidSignature = errors.New("invalid init data signature")
	ErrExpired          = errors.New("init data expired")
)

type WebAppUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	IsPremium    bool   `json:"is_premium"`
	PhotoURL     string `json:"photo_url"`
}

type InitData struct {
	User       WebAppUser
	AuthDate   time.Time
	StartParam string
	QueryID    string
}

// Validator verifies Telegram WebApp initData payloads.
// The secret key is HMAC-SHA256 of the bot token keyed with "WebAppData",
// as documented by Telegram.
type Validator struct {
	secretKey []byte
	maxAge    time.Duration
	now       func() time.Time
}

func NewValidator(botToken string, maxAge time.Duration) *Validator {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return &Validator{
		secretKey: mac.Sum(nil),
		maxAge:    maxAge,
		now:       time.Now,
	}
}

// Validate checks the signature and freshness of initData and returns the
// embedded user profile. Errors wrap ErrMalformed, ErrInvalidSignature or
// ErrExpired.
func (v *Validator) Validate(initData string) (*InitData, error) {
	initData = strings.TrimSpace(initData)
	if initData == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	vals, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	providedHash := vals.Get("hash")
	if providedHash == "" {
		return nil, fmt.Errorf("%w: missing hash", ErrMalformed)
	}
	vals.Del("hash")

	// data_check_string: key=value joined with \n, sorted by key
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+vals.Get(k))
	}
	dataCheck := strings.Join(parts, "\n")

	mac := hmac.New(sha256.New, v.secretKey)
	mac.Write([]byte(dataCheck))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(providedHash)) {
		return nil, ErrInvalidSignature
	}

	authDateRaw := vals.Get("auth_date")
	if authDateRaw == "" {
		return nil, fmt.Errorf("%w: missing auth_date", ErrMalformed)
	}
	authUnix, err := strconv.ParseInt(authDateRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid auth_date", ErrMalformed)
	}
	authDate := time.Unix(authUnix, 0)

	if v.maxAge > 0 && v.now().Sub(authDate) > v.maxAge {
		return nil, ErrExpired
	}

	userRaw := vals.Get("user")
	if userRaw == "" {
		return nil, fmt.Errorf("%w: missing user", ErrMalformed)
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(userRaw), &user); err != nil {
		return nil, fmt.Errorf("%w: invalid user payload", ErrMalformed)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("%w: user id missing", ErrMalformed)
	}
	if strings.TrimSpace(user.FirstName) == "" {
		user.FirstName = "User"
	}

	return &InitData{
		User:       user,
		AuthDate:   authDate,
		StartParam: vals.Get("start_param"),
		QueryID:    vals.Get("query_id"),
	}, nil
}
