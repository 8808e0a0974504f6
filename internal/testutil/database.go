// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/Additional-Code/catalog/internal/config"
	"github.com/Additional-Code/catalog/internal/database"
	"github.com/Additional-Code/catalog/internal/migration"
)

var dbSeq atomic.Int64

// SQLiteDSN returns a DSN for a private in-memory sqlite database.
func SQLiteDSN(t *testing.T) string {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
}

// NewCatalogDB opens an in-memory sqlite database with the catalog schema applied.
func NewCatalogDB(t *testing.T) *bun.DB {
	t.Helper()
	return openCatalogDB(t, SQLiteDSN(t))
}

// NewCatalogFileDB is NewCatalogDB backed by a file in a temp dir. Use it when
// a test may lose the connection, which drops an in-memory database.
func NewCatalogFileDB(t *testing.T) *bun.DB {
	t.Helper()
	return openCatalogDB(t, "file:"+filepath.Join(t.TempDir(), "catalog.db"))
}

func openCatalogDB(t *testing.T, dsn string) *bun.DB {
	t.Helper()

	db, err := database.Open("sqlite", dsn, config.Database{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mig, err := migration.NewMigrator(db.DB, "sqlite", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, mig.Up(context.Background()))

	return db
}
