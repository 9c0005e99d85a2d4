package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arenalab/arena-recorder/internal/database"
	"github.com/arenalab/arena-recorder/internal/model"
	"github.com/arenalab/arena-recorder/internal/storage"
	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func testRecord(id string) *core.SessionRecord {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &core.SessionRecord{
		SessionID: id,
		Label:     "defensive",
		StartTime: start,
		EndTime:   start.Add(2 * time.Second),
		TickRate:  60,
		Ticks:     120,
		Outcome:   core.OutcomeQuit,
		Events: []core.Event{
			{Kind: core.EventShotFired, Tick: 3, Time: 0.05, Shot: &core.ShotPayload{Position: core.V(1, 2), AmmoRemaining: 29}},
			{Kind: core.EventSessionEnded, Tick: 120, Time: 2, End: &core.EndPayload{Outcome: core.OutcomeQuit, Wave: 1}},
		},
		Frames: []core.FrameSample{
			{Tick: 10, Time: 10.0 / 60, PlayerPosition: core.V(1, 2), PlayerHealth: 100, Direction: core.DirectionNeutral},
		},
	}
}

func TestNew_NoDump(t *testing.T) {
	b, err := New(Config{}, nil, zerolog.Nop(), "test")
	require.NoError(t, err)
	require.NoError(t, b.Init())

	assert.Equal(t, "sqlite", b.Name())
	require.NoError(t, b.SaveSession(testRecord("a")))
	assert.Zero(t, b.Pending(), "rows are written before SaveSession returns")
	assert.Zero(t, b.Dumps())

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestSaveSession_DumpsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	b, err := New(Config{DumpPath: path}, nil, zerolog.Nop(), "test")
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.SaveSession(testRecord("first")))
	assert.Equal(t, 1, b.Dumps())
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, b.SaveSession(testRecord("second")))
	require.NoError(t, b.Close())
	assert.Equal(t, 3, b.Dumps())

	// the dump is a standalone database holding both sessions
	m := database.NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSqlite(path))
	defer m.Close()

	var sessions, events, frames int64
	m.DB.Model(&model.Session{}).Count(&sessions)
	m.DB.Model(&model.Event{}).Count(&events)
	m.DB.Model(&model.FrameSample{}).Count(&frames)
	assert.Equal(t, int64(2), sessions)
	assert.Equal(t, int64(4), events)
	assert.Equal(t, int64(2), frames)
}

func TestSaveSession_BeforeInit(t *testing.T) {
	b, err := New(Config{}, nil, zerolog.Nop(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	assert.Error(t, b.SaveSession(testRecord("a")))
}

func TestLoadSession(t *testing.T) {
	b, err := New(Config{}, nil, zerolog.Nop(), "test")
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })

	require.NoError(t, b.SaveSession(testRecord("load-me")))
	got, err := b.LoadSession("load-me")
	require.NoError(t, err)
	assert.Equal(t, "defensive", got.Label)
	assert.Len(t, got.Events, 2)
	assert.Len(t, got.Frames, 1)
}
