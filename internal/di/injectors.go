//go:build wireinject
// +build wireinject

package di

import (
	"cgmd/internal"
	"cgmd/internal/controllers"
	"cgmd/internal/providers"
	"cgmd/internal/scheduler"
	"cgmd/internal/services"
	"cgmd/internal/snapshot"
	"cgmd/internal/storage"
	"cgmd/internal/structures"
	"cgmd/internal/upstream"

	wire "github.com/google/wire"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewCredentialsProvider,

		snapshot.NewPublisher,
		storage.NewCompressor,
		storage.NewFileManager,
		storage.NewSessionStore,
		storage.NewMeasurementStore,

		upstream.NewClient,
		upstream.NewAuthManager,
		upstream.NewResolver,
		upstream.NewFetcher,
		wire.Bind(new(services.AuthenticatorInterface), new(*upstream.AuthManager)),
		wire.Bind(new(services.SubjectResolverInterface), new(*upstream.Resolver)),
		wire.Bind(new(services.ReadingFetcherInterface), new(*upstream.Fetcher)),

		services.NewGlucoseService,
		scheduler.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
