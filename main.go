package main

import (
	"github.com/cppla/healthtracker/config"
	"github.com/cppla/healthtracker/models"
	"github.com/cppla/healthtracker/routes"
	"github.com/cppla/healthtracker/store"
	"github.com/cppla/healthtracker/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db, err := config.InitDatabase(cfg, &models.Entry{})
	if err != nil {
		utils.Sugar.Fatalf("database init failed: %v", err)
	}
	st := store.NewGormStore(db)
	utils.Sugar.Infof("connected to %s store", cfg.DBDriver)

	cache := utils.NewStatsCache(utils.NewRedisClient(cfg), cfg.StatsCacheTTL)

	r := routes.SetupRouter(cfg, st, cache)

	utils.Sugar.Infof("Starting server on port %s (graceful), API at http://localhost:%s/api", cfg.AppPort, cfg.AppPort)
	err = utils.GraceServer(":"+cfg.AppPort, r, func() {
		if err := st.Close(); err != nil {
			utils.Sugar.Errorf("error closing database: %v", err)
			return
		}
		utils.Sugar.Info("database connection closed")
	})
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
