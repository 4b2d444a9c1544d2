package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/denisislamov/wattstap-referral-service/internal/auth"
	"github.com/denisislamov/wattstap-referral-service/internal/config"
	"github.com/denisislamov/wattstap-referral-service/internal/notify"
	"github.com/denisislamov/wattstap-referral-service/internal/referral"
	"github.com/denisislamov/wattstap-referral-service/internal/telegram"
)

type Server struct {
	cfg       *config.Config
	db        *gorm.DB
	rdb       *redis.Client
	validator *telegram.Validator
	issuer    *auth.Issuer
	engine    *referral.Engine
	social    *referral.Service
	notifier  *notify.Notifier
}

func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, notifier *notify.Notifier) *Server {
	return &Server{
		cfg:       cfg,
		db:        db,
		rdb:       rdb,
		validator: telegram.NewValidator(cfg.BotToken, time.Duration(cfg.InitDataMaxAgeSeconds)*time.Second),
		issuer:    auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpirationSeconds)*time.Second),
		engine:    referral.NewEngine(db, cfg.ReferralBonusWatts, cfg.ReferralCodeLength),
		social:    referral.NewService(db, cfg.ReferralBonusWatts, cfg.BotUsername),
		notifier:  notifier,
	}
}

func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(requestID())

	r.GET("/health", s.health)

	authGroup := r.Group("/auth")
	authGroup.POST("/telegram", s.rateLimit(), s.authTelegram)

	social := r.Group("/social", s.requireUser())
	social.GET("/my-referral", s.myReferral)
	social.GET("/friends", s.friends)

	if !s.cfg.IsProduction() {
		dev := r.Group("/dev")
		dev.DELETE("/reset-all", s.devResetAll)
		dev.DELETE("/reset-user/:telegramID", s.devResetUser)
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":      "healthy",
		"service":     "wattstap-referral-service",
		"environment": s.cfg.AppEnv,
	})
}
