package ingest

import "go.uber.org/fx"

// Module provides the ingest adapter and the configured feed to Fx.
var Module = fx.Provide(
	NewAdapter,
	NewFetcher,
	NewConfiguredFeed,
)
