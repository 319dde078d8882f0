package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/paceline/paceline/middleware"
	"github.com/paceline/paceline/models"
)

// getUserID extracts the authenticated user id placed by the auth middleware.
func getUserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// publicUser is the profile shape safe to show to other users.
func publicUser(u models.User) gin.H {
	return gin.H{
		"id":             u.ID,
		"username":       u.Username,
		"display_name":   u.DisplayName,
		"avatar_url":     u.AvatarURL,
		"current_streak": u.CurrentStreak,
		"created_at":     u.CreatedAt,
	}
}

func publicUserCacheKey(userID uint) string {
	return "cache:user:public:" + strconv.FormatUint(uint64(userID), 10)
}

// nullableDate maps an empty stored date string to JSON null.
func nullableDate(d string) interface{} {
	if d == "" {
		return nil
	}
	return d
}

// pagination reads page/page_size query params with sane bounds.
func pagination(ctx *gin.Context) (page, pageSize int) {
	page, pageSize = 1, 10
	if v := strings.TrimSpace(ctx.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(ctx.Query("page_size")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}
	return page, pageSize
}
