package server

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/denisislamov/wattstap-referral-service/internal/models"
)

const userContextKey = "currentUser"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// requireUser validates the Bearer token and loads the user behind it.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
			return
		}

		claims, err := s.issuer.Parse(strings.TrimPrefix(header, prefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}

		var user models.User
		if err := s.db.First(&user, userID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set(userContextKey, &user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// rateLimit throttles the auth endpoint with a fixed redis window per client
// IP. Without redis the limiter is a pass-through.
func (s *Server) rateLimit() gin.HandlerFunc {
	exempt := parseCIDRs(s.cfg.RateLimitExemptCIDRs)
	window := time.Duration(s.cfg.AuthRateWindowSeconds) * time.Second

	return func(c *gin.Context) {
		if s.rdb == nil || s.cfg.AuthRateLimit <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ipInAny(ip, exempt) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("ratelimit_auth_%s", ip)
		count, err := s.rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis trouble must not lock users out
			log.Printf("Rate limit check failed for %s: %v", ip, err)
			c.Next()
			return
		}
		if count == 1 {
			s.rdb.Expire(ctx, key, window)
		}
		if count > int64(s.cfg.AuthRateLimit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func parseCIDRs(cidrs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, netblock, err := net.ParseCIDR(cidr)
		if err != nil {
			log.Printf("Skipping invalid CIDR %q: %v", cidr, err)
			continue
		}
		nets = append(nets, netblock)
	}
	return nets
}

func ipInAny(ip string, nets []*net.IPNet) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, netblock := range nets {
		if netblock.Contains(parsed) {
			return true
		}
	}
	return false
}
