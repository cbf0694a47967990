package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPostgresTestDSN(t *testing.T) {
	t.Run("default DSN when env var not set", func(t *testing.T) {
		t.Setenv("TEST_POSTGRES_DSN", "")
		assert.Equal(t, defaultPostgresTestDSN, GetPostgresTestDSN())
	})

	t.Run("custom DSN from env var", func(t *testing.T) {
		t.Setenv("TEST_POSTGRES_DSN", "postgres://custom:pw@db:5432/esign")
		assert.Equal(t, "postgres://custom:pw@db:5432/esign", GetPostgresTestDSN())
	})
}

func TestGetMySQLTestDSN(t *testing.T) {
	t.Run("default DSN when env var not set", func(t *testing.T) {
		t.Setenv("TEST_MYSQL_DSN", "")
		assert.Equal(t, defaultMySQLTestDSN, GetMySQLTestDSN())
	})

	t.Run("custom DSN from env var", func(t *testing.T) {
		t.Setenv("TEST_MYSQL_DSN", "u:p@tcp(db:3306)/esign")
		assert.Equal(t, "u:p@tcp(db:3306)/esign", GetMySQLTestDSN())
	})
}

func TestGetMigrationsPath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "migrations", "postgresql"), 0o755))
	nested := filepath.Join(root, "internal", "pkg")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	t.Chdir(nested)

	path, err := getMigrationsPath("postgresql")
	require.NoError(t, err)
	assert.Equal(t, "postgresql", filepath.Base(path))

	_, err = getMigrationsPath("oracle")
	assert.Error(t, err)
}

func TestUuidToDriverValue(t *testing.T) {
	id := uuid.Must(uuid.NewV7())

	value, err := uuidToDriverValue(id, "postgres")
	require.NoError(t, err)
	assert.Equal(t, id, value)

	value, err = uuidToDriverValue(id, "mysql")
	require.NoError(t, err)
	assert.Len(t, value, 16)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2, $3", placeholders("postgres", 3))
	assert.Equal(t, "?, ?", placeholders("mysql", 2))
}

func TestTeardownDBWithNilDB(t *testing.T) {
	assert.NotPanics(t, func() {
		TeardownDB(t, nil)
	})
}

func TestSetupPostgresDB(t *testing.T) {
	SkipIfNoPostgres(t)

	db := SetupPostgresDB(t)
	defer TeardownDB(t, db)

	ownerID := CreateTestOwner(t, db, "postgres", "acme")
	CreateTestDocument(t, db, "postgres", ownerID)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&count))
	assert.Equal(t, 1, count)

	CleanupPostgresDB(t, db)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM owners").Scan(&count))
	assert.Zero(t, count)
}

func TestSetupMySQLDB(t *testing.T) {
	SkipIfNoMySQL(t)

	db := SetupMySQLDB(t)
	defer TeardownDB(t, db)

	ownerID := CreateTestOwner(t, db, "mysql", "acme")
	CreateTestDocument(t, db, "mysql", ownerID)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&count))
	assert.Equal(t, 1, count)

	CleanupMySQLDB(t, db)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM owners").Scan(&count))
	assert.Zero(t, count)
}

func TestFixtures(t *testing.T) {
	pdf := NewPDF(t, 2)
	assert.True(t, len(pdf) > 4 && string(pdf[:4]) == "%PDF")

	img := NewPNG(t)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, img[:4])
}
