package fx

import (
	"squad-tracker/internal/api"
	"squad-tracker/internal/auth"
	"squad-tracker/internal/config"
	"squad-tracker/internal/database"
	"squad-tracker/internal/logger"
	"squad-tracker/internal/poller"
	"squad-tracker/internal/repository"
	"squad-tracker/internal/server"
	"squad-tracker/internal/service"
	"squad-tracker/internal/store"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// storage
	fx.Provide(store.New),
	fx.Provide(repository.NewActionLogRepository),
	// vendor api + accounts
	fx.Provide(api.NewClient),
	fx.Provide(auth.NewTokenBook),
	// svc
	fx.Provide(service.NewTrackerService),
	fx.Provide(service.NewSettingsService),
	fx.Provide(service.NewBoosterService),
	fx.Provide(service.NewLikerService),
	// loops + http
	fx.Provide(poller.New),
	fx.Provide(server.New),
)
