package main

import (
	"github.com/paceline/paceline/config"
	"github.com/paceline/paceline/models"
	"github.com/paceline/paceline/routes"
	"github.com/paceline/paceline/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.CheckIn{},
		&models.MedalEntry{},
		&models.Referral{},
		&models.FriendCode{},
		&models.Friendship{},
		&models.Activity{},
	)

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
