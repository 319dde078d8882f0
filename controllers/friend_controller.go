package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/paceline/paceline/models"
	"github.com/paceline/paceline/services"
	"github.com/paceline/paceline/utils"
)

// FriendController handles friend codes and the friends list.
type FriendController struct {
	db    *gorm.DB
	codes *services.FriendCodeService
}

// NewFriendController creates a new controller instance.
func NewFriendController(db *gorm.DB, codes *services.FriendCodeService) *FriendController {
	return &FriendController{db: db, codes: codes}
}

// MyCode returns the caller's shareable code, creating it on first request.
func (f *FriendController) MyCode(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	fc, err := f.codes.Ensure(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to load friend code")
		return
	}
	utils.Success(ctx, gin.H{"code": fc.Code})
}

type addFriendRequest struct {
	Code string `json:"code" binding:"required"`
}

// AddFriend follows the user owning the given friend code.
func (f *FriendController) AddFriend(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req addFriendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "friend code is required")
		return
	}

	friend, err := f.codes.Resolve(req.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40470, "friend code not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to resolve friend code")
		return
	}
	if friend.ID == userID {
		utils.Error(ctx, http.StatusBadRequest, 40071, "cannot add yourself")
		return
	}

	edge := models.Friendship{UserID: userID, FriendID: friend.ID}
	if err := f.db.Create(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40970, "already friends")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to add friend")
		return
	}

	utils.Success(ctx, gin.H{"friend": publicUser(*friend)})
}

// ListFriends returns the caller's friends with their current streaks.
func (f *FriendController) ListFriends(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var friends []models.User
	err := f.db.
		Joins("JOIN friendships ON friendships.friend_id = users.id").
		Where("friendships.user_id = ?", userID).
		Order("friendships.id").
		Find(&friends).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to load friends")
		return
	}

	items := make([]gin.H, 0, len(friends))
	for _, u := range friends {
		item := publicUser(u)
		item["last_check_in"] = nullableDate(u.LastCheckInDate)
		items = append(items, item)
	}
	utils.Success(ctx, gin.H{"items": items})
}
