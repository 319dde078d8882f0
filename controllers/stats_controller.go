package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/paceline/paceline/models"
	"github.com/paceline/paceline/utils"
)

// StatsController provides public aggregate statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate counts for the landing page.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var activityCount int64
	var checkInsToday int64
	var medalsMinted int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}

	if err := s.db.Model(&models.Activity{}).Count(&activityCount).Error; err != nil {
		activityCount = 0
	}

	// Check-in dates are stored as local date strings; the headline number
	// uses the UTC calendar day.
	today := time.Now().UTC().Format("2006-01-02")
	if err := s.db.Model(&models.CheckIn{}).Where("checkin_date = ?", today).Count(&checkInsToday).Error; err != nil {
		checkInsToday = 0
	}

	if err := s.db.Model(&models.MedalEntry{}).
		Select("COALESCE(SUM(amount),0)").
		Scan(&medalsMinted).Error; err != nil {
		medalsMinted = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":      userCount,
		"activity_count":  activityCount,
		"check_ins_today": checkInsToday,
		"medals_minted":   medalsMinted,
	})
}
