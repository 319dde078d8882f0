package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/paceline/paceline/config"
	"github.com/paceline/paceline/controllers"
	"github.com/paceline/paceline/middleware"
	"github.com/paceline/paceline/services"
	"github.com/paceline/paceline/utils"
)

// SetupRouter wires routes, middlewares, services and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file so request noise stays out of
	// the application log.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	ledger := services.NewLedger(db)
	referrals := services.NewReferralService(db, ledger)
	checkins := services.NewCheckInService(db, ledger, referrals)
	friendCodes := services.NewFriendCodeService(db)
	strava := services.NewStravaService(db)

	authController := controllers.NewAuthController(db)
	checkInController := controllers.NewCheckInController(checkins)
	medalController := controllers.NewMedalController(ledger)
	referralController := controllers.NewReferralController(db, referrals)
	friendController := controllers.NewFriendController(db, friendCodes)
	activityController := controllers.NewActivityController(db, strava)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public surfaces
	api.GET("/stats", statsController.GetStats)
	api.GET("/users/:id", authController.GetUserPublic)
	// Hit by the provider redirect; authenticated via single-use state token.
	api.GET("/strava/callback", activityController.StravaCallback)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.GET("/users", authController.ListUsers)
	protected.POST("/checkin", checkInController.DailyCheckIn)
	protected.GET("/checkin/status", checkInController.CheckInStatus)
	protected.GET("/medals", medalController.GetMedals)
	protected.POST("/referrals/claim", referralController.Claim)
	protected.GET("/referrals", referralController.List)
	protected.GET("/friends/code", friendController.MyCode)
	protected.POST("/friends", friendController.AddFriend)
	protected.GET("/friends", friendController.ListFriends)
	protected.GET("/strava/connect", activityController.StravaConnect)
	protected.POST("/activities/sync", activityController.Sync)
	protected.GET("/activities", activityController.List)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
