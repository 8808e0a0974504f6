package seeder

import "go.uber.org/fx"

// Module provides the demo catalog seeder to Fx.
var Module = fx.Provide(New)
