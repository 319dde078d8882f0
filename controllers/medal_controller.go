package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/paceline/paceline/services"
	"github.com/paceline/paceline/utils"
)

// MedalController exposes the caller's medal balance and ledger history.
type MedalController struct {
	ledger *services.Ledger
}

// NewMedalController creates a new controller instance.
func NewMedalController(ledger *services.Ledger) *MedalController {
	return &MedalController{ledger: ledger}
}

// GetMedals returns the current balance together with the recent ledger
// entries so every medal is traceable to its cause.
func (m *MedalController) GetMedals(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	balance, err := m.ledger.Balance(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load medal balance")
		return
	}

	limit := 50
	if v := ctx.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := m.ledger.Entries(userID, limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load medal history")
		return
	}

	utils.Success(ctx, gin.H{
		"balance": balance,
		"entries": entries,
	})
}
