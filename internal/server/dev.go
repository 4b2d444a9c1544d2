package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/denisislamov/wattstap-referral-service/internal/models"
)

// Dev-only reset endpoints; the router mounts them outside production.

func (s *Server) devResetAll(c *gin.Context) {
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Friendship{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error
	})
	if err != nil {
		log.Printf("Failed to reset all data: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all users and friendships deleted", "status": "ok"})
}

func (s *Server) devResetUser(c *gin.Context) {
	telegramID, err := strconv.ParseInt(c.Param("telegramID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram id"})
		return
	}

	err = s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
			return err
		}

		if err := tx.Where("user_a_id = ? OR user_b_id = ?", user.ID, user.ID).
			Delete(&models.Friendship{}).Error; err != nil {
			return err
		}

		// Unlink anyone this user invited before removing the row
		if err := tx.Model(&models.User{}).Where("referred_by_id = ?", user.ID).
			Update("referred_by_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to reset user %d: %v", telegramID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted", "status": "ok"})
}
