package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paceline/paceline/models"
	"github.com/paceline/paceline/services"
	"github.com/paceline/paceline/utils"
)

// ActivityController handles the Strava link and synced activity listings.
type ActivityController struct {
	db     *gorm.DB
	strava *services.StravaService
}

// NewActivityController creates a new controller instance.
func NewActivityController(db *gorm.DB, strava *services.StravaService) *ActivityController {
	return &ActivityController{db: db, strava: strava}
}

// StravaConnect starts the OAuth flow and hands the client the provider URL.
func (a *ActivityController) StravaConnect(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	state := uuid.NewString()
	utils.SaveOAuthState(state, userID, 10*time.Minute)

	utils.Success(ctx, gin.H{
		"auth_url": a.strava.OAuthConfig().AuthCodeURL(state),
	})
}

// StravaCallback finishes the OAuth flow. It is hit by the provider redirect,
// so the user is identified by the state token rather than a bearer header.
func (a *ActivityController) StravaCallback(ctx *gin.Context) {
	state := ctx.Query("state")
	code := ctx.Query("code")
	if state == "" || code == "" {
		utils.Error(ctx, http.StatusBadRequest, 40080, "missing state or code")
		return
	}

	userID, ok := utils.ConsumeOAuthState(state)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40081, "invalid or expired state")
		return
	}

	if err := a.strava.Connect(ctx.Request.Context(), userID, code); err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("strava connect failed user_id=%d err=%v", userID, err)
		}
		utils.Error(ctx, http.StatusBadGateway, 50280, "failed to connect strava account")
		return
	}

	utils.Success(ctx, gin.H{"message": "strava account connected"})
}

// Sync pulls the caller's recent runs from the provider.
func (a *ActivityController) Sync(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	created, err := a.strava.SyncActivities(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrStravaNotConnected) {
			utils.Error(ctx, http.StatusBadRequest, 40082, "strava account not connected")
			return
		}
		utils.Error(ctx, http.StatusBadGateway, 50281, "failed to sync activities")
		return
	}

	utils.Success(ctx, gin.H{"synced": created})
}

// List returns the caller's synced activities, newest first.
func (a *ActivityController) List(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	page, pageSize := pagination(ctx)

	var total int64
	if err := a.db.Model(&models.Activity{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50082, "failed to count activities")
		return
	}

	var activities []models.Activity
	err := a.db.Where("user_id = ?", userID).
		Order("started_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&activities).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to load activities")
		return
	}

	utils.Success(ctx, gin.H{
		"items": activities,
		"pagination": gin.H{
			"page":      page,
			"page_size": pageSize,
			"total":     total,
		},
	})
}
