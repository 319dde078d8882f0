package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/paceline/paceline/middleware"
	"github.com/paceline/paceline/models"
	"github.com/paceline/paceline/services"
	"github.com/paceline/paceline/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	// Cache reads must miss: user ids repeat across per-test databases, so a
	// reachable Redis could serve balances cached by an earlier test.
	os.Setenv("REDIS_PORT", "0")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.CheckIn{},
		&models.MedalEntry{},
		&models.Referral{},
		&models.FriendCode{},
		&models.Friendship{},
	))
	return db
}

// authAs injects the user id the way the JWT middleware would.
func authAs(userID uint) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(middleware.ContextUserIDKey, userID)
		ctx.Next()
	}
}

func newEngagementRouter(t *testing.T, db *gorm.DB, userID uint) *gin.Engine {
	t.Helper()
	ledger := services.NewLedger(db)
	referrals := services.NewReferralService(db, ledger)
	checkins := services.NewCheckInService(db, ledger, referrals)

	checkinCtl := NewCheckInController(checkins)
	referralCtl := NewReferralController(db, referrals)
	medalCtl := NewMedalController(ledger)

	r := gin.New()
	api := r.Group("/api/v1", authAs(userID))
	api.POST("/checkin", checkinCtl.DailyCheckIn)
	api.GET("/checkin/status", checkinCtl.CheckInStatus)
	api.GET("/medals", medalCtl.GetMedals)
	api.POST("/referrals/claim", referralCtl.Claim)
	api.GET("/referrals", referralCtl.List)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, utils.JSONResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp utils.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestDailyCheckInEndpoint(t *testing.T) {
	db := newTestDB(t)
	user := models.User{Username: "runner"}
	require.NoError(t, db.Create(&user).Error)
	r := newEngagementRouter(t, db, user.ID)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/checkin", gin.H{"timezone": "UTC"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), data["current_streak"])
	assert.Equal(t, false, data["streak_bonus"])
	assert.Greater(t, data["medals_awarded"], float64(0))

	// Second call the same day is a client error with a stable code.
	w, resp = doJSON(t, r, http.MethodPost, "/api/v1/checkin", gin.H{"timezone": "UTC"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40030, resp.Code)
}

func TestDailyCheckInAcceptsEmptyBody(t *testing.T) {
	db := newTestDB(t)
	user := models.User{Username: "runner"}
	require.NoError(t, db.Create(&user).Error)
	r := newEngagementRouter(t, db, user.ID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkin", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckInStatusEndpoint(t *testing.T) {
	db := newTestDB(t)
	user := models.User{Username: "runner"}
	require.NoError(t, db.Create(&user).Error)
	r := newEngagementRouter(t, db, user.ID)

	w, resp := doJSON(t, r, http.MethodGet, "/api/v1/checkin/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["can_check_in"])
	assert.Nil(t, data["last_check_in"])

	_, _ = doJSON(t, r, http.MethodPost, "/api/v1/checkin", nil)

	_, resp = doJSON(t, r, http.MethodGet, "/api/v1/checkin/status", nil)
	data, ok = resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, data["can_check_in"])
	assert.NotNil(t, data["last_check_in"])
}

func TestCheckInStatusUnknownUser(t *testing.T) {
	db := newTestDB(t)
	r := newEngagementRouter(t, db, 424242)

	w, resp := doJSON(t, r, http.MethodGet, "/api/v1/checkin/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40410, resp.Code)
}

func TestMedalsEndpointReflectsLedger(t *testing.T) {
	db := newTestDB(t)
	user := models.User{Username: "runner"}
	require.NoError(t, db.Create(&user).Error)
	r := newEngagementRouter(t, db, user.ID)

	_, _ = doJSON(t, r, http.MethodPost, "/api/v1/checkin", nil)

	w, resp := doJSON(t, r, http.MethodGet, "/api/v1/medals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Greater(t, data["balance"], float64(0))

	entries, ok := data["entries"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, models.MedalReasonCheckIn, entry["reason"])
}

func TestClaimReferralEndpoint(t *testing.T) {
	db := newTestDB(t)
	referrer := models.User{Username: "alice"}
	require.NoError(t, db.Create(&referrer).Error)
	referred := models.User{Username: "bob"}
	require.NoError(t, db.Create(&referred).Error)

	fc, err := services.NewFriendCodeService(db).Ensure(referrer.ID)
	require.NoError(t, err)

	r := newEngagementRouter(t, db, referred.ID)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/referrals/claim", gin.H{"code": fc.Code})
	require.Equal(t, http.StatusOK, w.Code)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice", data["referrer_name"])
	assert.Greater(t, data["welcome_bonus"], float64(0))

	// Repeat claim conflicts.
	w, resp = doJSON(t, r, http.MethodPost, "/api/v1/referrals/claim", gin.H{"code": fc.Code})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40940, resp.Code)

	// Unknown code.
	w, resp = doJSON(t, r, http.MethodPost, "/api/v1/referrals/claim", gin.H{"code": "NOSUCH"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40441, resp.Code)

	// Missing body field.
	w, resp = doJSON(t, r, http.MethodPost, "/api/v1/referrals/claim", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40040, resp.Code)
}

func TestSelfReferralRejected(t *testing.T) {
	db := newTestDB(t)
	user := models.User{Username: "alice"}
	require.NoError(t, db.Create(&user).Error)
	fc, err := services.NewFriendCodeService(db).Ensure(user.ID)
	require.NoError(t, err)

	r := newEngagementRouter(t, db, user.ID)
	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/referrals/claim", gin.H{"code": fc.Code})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40041, resp.Code)
}

func TestReferralListEndpoint(t *testing.T) {
	db := newTestDB(t)
	referrer := models.User{Username: "alice"}
	require.NoError(t, db.Create(&referrer).Error)
	referred := models.User{Username: "bob", DisplayName: "Bob R"}
	require.NoError(t, db.Create(&referred).Error)

	fc, err := services.NewFriendCodeService(db).Ensure(referrer.ID)
	require.NoError(t, err)
	ledger := services.NewLedger(db)
	_, err = services.NewReferralService(db, ledger).Claim(referred.ID, fc.Code)
	require.NoError(t, err)

	r := newEngagementRouter(t, db, referrer.ID)
	w, resp := doJSON(t, r, http.MethodGet, "/api/v1/referrals", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Greater(t, data["cap"], float64(0))

	items, ok := data["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "Bob R", item["referred_name"])
	assert.Equal(t, float64(0), item["medals_earned"])
}
