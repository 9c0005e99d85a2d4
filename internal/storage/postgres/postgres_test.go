package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/arenalab/arena-recorder/internal/database"
	"github.com/arenalab/arena-recorder/internal/logging"
	"github.com/arenalab/arena-recorder/internal/model"
	"github.com/arenalab/arena-recorder/internal/storage"
	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	m := database.NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSqlite(""))
	t.Cleanup(func() { m.Close() })
	return m.DB
}

func TestNew(t *testing.T) {
	b := New(Dependencies{LogManager: logging.NewSlogManager()})
	require.NotNil(t, b)
	require.NotNil(t, b.Backend)
	assert.Equal(t, "postgres", b.Name())
	assert.Equal(t, "postgres", storage.NameOf(b))
}

func TestInit_ConnectFailure(t *testing.T) {
	b := New(Dependencies{})
	b.connect = func(*database.Manager) error { return errors.New("connection refused") }

	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to postgres")
	assert.Nil(t, b.manager)
	assert.NoError(t, b.Close())
}

func TestInit_UsesConnectedManager(t *testing.T) {
	b := New(Dependencies{Version: "test"})
	b.connect = func(m *database.Manager) error {
		return m.ConnectSqlite("")
	}

	require.NoError(t, b.Init())
	require.NotNil(t, b.manager)
	require.NotNil(t, b.DB())

	var info model.RecorderInfo
	require.NoError(t, b.DB().First(&info).Error)
	assert.Equal(t, "test", info.Version)

	require.NoError(t, b.Close())
	assert.Nil(t, b.manager)
}

func TestSaveAndLoadSession(t *testing.T) {
	b := New(Dependencies{DB: newTestDB(t), LogManager: logging.NewSlogManager()})
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := &core.SessionRecord{
		SessionID: "pg-1",
		Label:     "aggressive",
		StartTime: start,
		EndTime:   start.Add(time.Second),
		TickRate:  60,
		Ticks:     60,
		Outcome:   core.OutcomeQuit,
		Events: []core.Event{
			{Kind: core.EventSessionEnded, Tick: 60, Time: 1, End: &core.EndPayload{Outcome: core.OutcomeQuit, Wave: 1}},
		},
	}
	require.NoError(t, b.SaveSession(rec))

	got, err := b.LoadSession("pg-1")
	require.NoError(t, err)
	assert.Equal(t, "aggressive", got.Label)
	require.Len(t, got.Events, 1)
	assert.Equal(t, core.OutcomeQuit, got.Events[0].End.Outcome)
	assert.Empty(t, got.Frames)
}
