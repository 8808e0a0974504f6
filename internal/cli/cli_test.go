package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const savedPage = `<html><body>
<div class="book"><a class="title">Master and Margarita</a><span class="price">349 ₽</span></div>
<div class="book"><a class="title">Dead Souls</a><span class="price">299 ₽</span></div>
<div class="book"><a class="title">The Idiot</a><span class="price">free soon</span></div>
<div class="book"><a class="title">Oblomov</a><span class="price">199,50 ₽</span></div>
</body></html>`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(page, []byte(savedPage), 0o600))

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_WRITER_DSN", "file:"+filepath.Join(dir, "catalog.db"))
	t.Setenv("OBS_ENABLE_METRICS", "false")
	t.Setenv("OBS_LOG_LEVEL", "error")
	t.Setenv("INGEST_FEED_URL", "file://"+page)
	t.Setenv("INGEST_LISTING_SELECTOR", ".book")
	t.Setenv("INGEST_TITLE_SELECTOR", ".title")
	t.Setenv("INGEST_PRICE_SELECTOR", ".price")
	t.Setenv("REPORT_FORMAT", "txt")
	t.Setenv("REPORT_OUTPUT_PATH", filepath.Join(dir, "orders.txt"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunThenListOrders(t *testing.T) {
	dir := setupEnv(t)

	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "products: 3 stored, 1 skipped")
	assert.Contains(t, out, "orders: 3 created")

	data, err := os.ReadFile(filepath.Join(dir, "orders.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total orders: 3")
	assert.Contains(t, string(data), "Master and Margarita")

	out, err = execute(t, "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "CUSTOMER")
	assert.Contains(t, out, "Petrov P.P.")
	assert.Contains(t, out, "Total orders: 3")

	out, err = execute(t, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1")
}

func TestReportFormatFlagIsValidated(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "report", "--format", "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf")
}

func TestSeedOnEmptyStore(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 1 supplier, 2 products, 2 orders")

	out, err = execute(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing seeded")
}
