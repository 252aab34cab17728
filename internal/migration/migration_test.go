package migration

import (
	"testing"
	"testing/fstest"

	catalogdomain "github.com/railzwaylabs/caremarket/internal/catalog/domain"
	"github.com/railzwaylabs/caremarket/internal/config"
	"github.com/railzwaylabs/caremarket/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmbeddedMigrations(t *testing.T) {
	schema, err := Inspect()
	require.NoError(t, err)
	assert.Equal(t, uint(5), schema.Version)
	assert.Equal(t, "5", schema.VersionString())
	assert.Len(t, schema.Checksum, 64)
	assert.Equal(t, "000001_system.up.sql", schema.Files[0])

	again, err := inspect(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	assert.Equal(t, schema.Checksum, again.Checksum)
}

func TestInspectChecksumFollowsContent(t *testing.T) {
	files := fstest.MapFS{
		"sql/000001_a.up.sql":   {Data: []byte("CREATE TABLE a (id int);")},
		"sql/000001_a.down.sql": {Data: []byte("DROP TABLE a;")},
		"sql/000002_b.up.sql":   {Data: []byte("CREATE TABLE b (id int);")},
	}
	first, err := inspect(files, "sql")
	require.NoError(t, err)
	assert.Equal(t, uint(2), first.Version)
	assert.Len(t, first.Files, 2)

	files["sql/000001_a.down.sql"] = &fstest.MapFile{Data: []byte("DROP TABLE IF EXISTS a;")}
	same, err := inspect(files, "sql")
	require.NoError(t, err)
	assert.Equal(t, first.Checksum, same.Checksum)

	files["sql/000002_b.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE b (id bigint);")}
	changed, err := inspect(files, "sql")
	require.NoError(t, err)
	assert.NotEqual(t, first.Checksum, changed.Checksum)

	files["sql/latest.up.sql"] = &fstest.MapFile{}
	_, err = inspect(files, "sql")
	assert.Error(t, err)
}

func TestParseMigrationVersion(t *testing.T) {
	v, ok := parseMigrationVersion("000004_invoices.up.sql")
	assert.True(t, ok)
	assert.Equal(t, uint(4), v)

	_, ok = parseMigrationVersion("invoices.up.sql")
	assert.False(t, ok)

	_, ok = parseMigrationVersion("_invoices.up.sql")
	assert.False(t, ok)
}

func TestRunMigrationsOnSQLiteIsRepeatable(t *testing.T) {
	db := testutil.OpenDB(t)
	cfg := config.Config{Billing: config.BillingConfig{VATRate: 21}}

	require.NoError(t, RunMigrations(db, testutil.Node(t), cfg, zap.NewNop()))

	var categories []catalogdomain.Category
	require.NoError(t, db.Order("code").Find(&categories).Error)
	require.Len(t, categories, len(defaultCategories))
	assert.Equal(t, "child-care", categories[0].Code)
	assert.Nil(t, categories[0].CommissionRate)
	assert.Equal(t, "21", categories[0].VATRate.String())

	require.NoError(t, db.Model(&catalogdomain.Category{}).
		Where("code = ?", "nursing").
		Update("name", "Nursing at home").Error)

	require.NoError(t, RunMigrations(db, testutil.Node(t), cfg, zap.NewNop()))

	var count int64
	require.NoError(t, db.Model(&catalogdomain.Category{}).Count(&count).Error)
	assert.Equal(t, int64(len(defaultCategories)), count)

	var nursing catalogdomain.Category
	require.NoError(t, db.Where("code = ?", "nursing").First(&nursing).Error)
	assert.Equal(t, "Nursing at home", nursing.Name)

	var state SystemBootstrapState
	require.NoError(t, db.First(&state).Error)
	assert.Equal(t, BootstrapStatusActive, state.Status)
	assert.Equal(t, "5", state.SchemaVersion)
	require.NotNil(t, state.Checksum)
}
