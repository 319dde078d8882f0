package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/paceline/paceline/config"
	"github.com/paceline/paceline/models"
	"github.com/paceline/paceline/services"
	"github.com/paceline/paceline/utils"
)

// ReferralController handles referral claims and the referrer's overview.
type ReferralController struct {
	db        *gorm.DB
	referrals *services.ReferralService
}

// NewReferralController creates a new controller instance.
func NewReferralController(db *gorm.DB, referrals *services.ReferralService) *ReferralController {
	return &ReferralController{db: db, referrals: referrals}
}

type claimRequest struct {
	Code string `json:"code" binding:"required"`
}

// Claim redeems a referral code for the calling user. All rejections leave
// no state behind; a success must not be retried.
func (r *ReferralController) Claim(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req claimRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "referral code is required")
		return
	}

	result, err := r.referrals.Claim(userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidReferralCode):
			utils.Error(ctx, http.StatusNotFound, 40441, "referral code not found")
		case errors.Is(err, services.ErrSelfReferral):
			utils.Error(ctx, http.StatusBadRequest, 40041, "cannot claim your own referral code")
		case errors.Is(err, services.ErrAlreadyReferred):
			utils.Error(ctx, http.StatusConflict, 40940, "a referral was already claimed for this account")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to claim referral")
		}
		return
	}

	utils.Success(ctx, result)
}

// List returns the caller's referrals with medals earned so far and the
// per-relationship cap.
func (r *ReferralController) List(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	rels, err := r.referrals.ListForReferrer(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load referrals")
		return
	}

	ids := make([]uint, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.ReferredUserID)
	}
	names := map[uint]string{}
	if len(ids) > 0 {
		var users []models.User
		if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load referred users")
			return
		}
		for _, u := range users {
			names[u.ID] = u.Name()
		}
	}

	items := make([]gin.H, 0, len(rels))
	for _, rel := range rels {
		items = append(items, gin.H{
			"referred_name": names[rel.ReferredUserID],
			"medals_earned": rel.MedalsEarned,
			"claimed_at":    rel.CreatedAt,
		})
	}

	utils.Success(ctx, gin.H{
		"items": items,
		"cap":   config.Get().ReferralShareCap,
	})
}
