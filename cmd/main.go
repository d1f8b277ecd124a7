package main

import (
	"context"
	"errors"

	aconfig "github.com/karibuweb/service-admin/config"
	"github.com/karibuweb/service-admin/service/events"
	"github.com/karibuweb/service-admin/service/handlers"
	"github.com/karibuweb/service-admin/service/repository"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/datastore"
	"github.com/pitabwire/util"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWithOIDC[aconfig.AdminConfig](ctx)
	if err != nil {
		util.Log(ctx).WithError(err).Fatal("could not process configs")
		return
	}

	if cfg.Name() == "" {
		cfg.ServiceName = "service_admin"
	}

	ctx, svc := frame.NewServiceWithContext(ctx, frame.WithName(cfg.Name()),
		frame.WithConfig(&cfg), frame.WithDatastore())

	if handleDatabaseMigration(ctx, &cfg, svc.DatastoreManager()) {
		return
	}

	authServer := handlers.NewAuthServer(ctx, svc, &cfg)

	serviceOptions := []frame.Option{
		frame.WithHTTPHandler(authServer.NewAdminRouterV1(ctx)),
		frame.WithRegisterEvents(
			events.NewEmailCodeDispatchHandler(ctx, &cfg),
		),
	}

	svc.Init(ctx, serviceOptions...)

	log := util.Log(ctx)
	log.WithField("server port", cfg.HTTPPort()).
		Info(" Initiating server operations")
	err = svc.Run(ctx, "")
	if err != nil {
		log = log.WithError(err)

		if errors.Is(err, context.Canceled) {
			log.Error("server stopping")
		} else {
			log.Fatal("server stopping with error")
		}
	}
}

// handleDatabaseMigration performs database migration if configured to do so.
func handleDatabaseMigration(
	ctx context.Context,
	cfg config.ConfigurationDatabase,
	dbManager datastore.Manager,
) bool {

	if cfg.DoDatabaseMigrate() {

		err := repository.Migrate(ctx, dbManager, cfg.GetDatabaseMigrationPath())
		if err != nil {
			util.Log(ctx).WithError(err).Fatal("main -- Could not migrate successfully")
		}
		return true
	}
	return false
}
