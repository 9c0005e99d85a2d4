package database

import (
	"path/filepath"
	"testing"

	"github.com/arenalab/arena-recorder/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.internal")
	viper.Set("db.port", "5433")
	viper.Set("db.username", "arena")
	viper.Set("db.password", "pw")
	viper.Set("db.database", "sessions")

	assert.Equal(t, "host=db.internal port=5433 user=arena password=pw dbname=sessions sslmode=disable", PostgresDSN())
}

func TestSqliteSetupAndDump(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSqlite(""))
	t.Cleanup(func() { m.Close() })

	require.NoError(t, Setup(m.DB, m.Logger, "1.2.3"))
	// a second setup keeps the single info row
	require.NoError(t, Setup(m.DB, m.Logger, "1.2.3"))

	var infos []model.RecorderInfo
	require.NoError(t, m.DB.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, "1.2.3", infos[0].Version)
	assert.Equal(t, SchemaVersion, infos[0].SchemaVersion)

	require.NoError(t, m.DB.Create(&model.Session{SessionID: "abc", Label: "chaotic"}).Error)

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, m.DumpMemoryToDisk(path))
	// dumping again replaces the file
	require.NoError(t, m.DumpMemoryToDisk(path))

	disk := NewManager(zerolog.Nop())
	require.NoError(t, disk.ConnectSqlite(path))
	t.Cleanup(func() { disk.Close() })

	var s model.Session
	require.NoError(t, disk.DB.Where("session_id = ?", "abc").First(&s).Error)
	assert.Equal(t, "chaotic", s.Label)
}

func TestSqliteInMemoryDatabasesAreIsolated(t *testing.T) {
	a := NewManager(zerolog.Nop())
	b := NewManager(zerolog.Nop())
	require.NoError(t, a.ConnectSqlite(""))
	require.NoError(t, b.ConnectSqlite(""))
	t.Cleanup(func() { a.Close(); b.Close() })

	require.NoError(t, Setup(a.DB, a.Logger, "dev"))
	assert.False(t, b.DB.Migrator().HasTable(&model.Session{}))
}

func TestDumpToDisk_NoPath(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSqlite(""))
	t.Cleanup(func() { m.Close() })
	assert.Error(t, m.DumpMemoryToDisk(""))
}

func TestClose_WithoutConnection(t *testing.T) {
	assert.NoError(t, NewManager(zerolog.Nop()).Close())
}
