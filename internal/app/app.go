package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/catalog/internal/cache"
	"github.com/Additional-Code/catalog/internal/config"
	"github.com/Additional-Code/catalog/internal/database"
	"github.com/Additional-Code/catalog/internal/ingest"
	"github.com/Additional-Code/catalog/internal/logger"
	"github.com/Additional-Code/catalog/internal/messaging"
	"github.com/Additional-Code/catalog/internal/migration"
	"github.com/Additional-Code/catalog/internal/observability"
	repositorycatalog "github.com/Additional-Code/catalog/internal/repository/catalog"
	grpcserver "github.com/Additional-Code/catalog/internal/server/grpc"
	httpserver "github.com/Additional-Code/catalog/internal/server/http"
	servicecatalog "github.com/Additional-Code/catalog/internal/service/catalog"
	transporthttp "github.com/Additional-Code/catalog/internal/transport/http"
	"github.com/Additional-Code/catalog/internal/worker"
	workerorder "github.com/Additional-Code/catalog/internal/worker/order"
)

// Infra provides configuration, logging, telemetry and connections without
// touching the schema.
var Infra = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
)

// Core provides the foundational modules shared across executables: the
// catalog store, ingest adapter and pipeline service on top of Infra.
var Core = fx.Options(
	Infra,
	migration.AutoMigrate,
	repositorycatalog.Module,
	ingest.Module,
	servicecatalog.Module,
)

// HTTP wires the HTTP and gRPC transports on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background consumption of order events.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring.
var Module = HTTP
