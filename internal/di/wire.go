//go:build wireinject
// +build wireinject

package di

import (
	"InvestCore/pkg/config"
	"InvestCore/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideStorage,
		ProvideQueue,
		ProvideMessaging,
		ProvideRegistry,

		// Retrain loop
		ProvideTracker,
		ProvideTrigger,
		ProvideWorker,

		// Use cases
		ProvidePredictionService,
		ProvideFeedbackService,
		ProvideNotifyService,

		// HTTP
		ProvideCoreHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
