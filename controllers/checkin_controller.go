package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/paceline/paceline/services"
	"github.com/paceline/paceline/utils"
)

// CheckInController handles daily check-in endpoints.
type CheckInController struct {
	checkins *services.CheckInService
}

// NewCheckInController creates a new controller instance.
func NewCheckInController(checkins *services.CheckInService) *CheckInController {
	return &CheckInController{checkins: checkins}
}

type checkInRequest struct {
	Timezone string `json:"timezone"`
}

// DailyCheckIn records a check-in for the caller's current local day and
// returns the medals awarded and resulting streak. A repeated same-day call
// is rejected without awarding anything.
func (c *CheckInController) DailyCheckIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	// Body is optional; a missing or malformed timezone falls back to UTC.
	var req checkInRequest
	_ = ctx.ShouldBindJSON(&req)

	result, err := c.checkins.CheckIn(userID, req.Timezone)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyCheckedIn) {
			utils.Error(ctx, http.StatusBadRequest, 40030, err.Error())
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to record check-in")
		return
	}

	utils.Success(ctx, result)
}

// CheckInStatus reports eligibility, current streak and days until the next
// bonus without mutating anything.
func (c *CheckInController) CheckInStatus(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	status, err := c.checkins.Status(userID, ctx.Query("timezone"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load check-in status")
		return
	}

	utils.Success(ctx, gin.H{
		"can_check_in":     status.CanCheckIn,
		"current_streak":   status.CurrentStreak,
		"days_until_bonus": status.DaysUntilBonus,
		"last_check_in":    nullableDate(status.LastCheckIn),
	})
}
