package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/internal/session"
	"github.com/arenalab/arena-recorder/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStatus_Idle(t *testing.T) {
	s := NewService(Dependencies{
		Pending: func() int { return 2 },
		Saved:   func() int { return 5 },
	})

	st := s.GetStatus()
	assert.False(t, st.Active)
	assert.Empty(t, st.SessionID)
	assert.Equal(t, 2, st.Pending)
	assert.Equal(t, 5, st.Saved)
	assert.Positive(t, st.Goroutines)
}

func TestGetStatus_Active(t *testing.T) {
	ctx := session.NewContext()
	sess, err := sim.StartSession(config.DefaultSimConfig(), sim.WithSessionID("mon"))
	require.NoError(t, err)
	ctx.Set(sess)

	st := NewService(Dependencies{Session: ctx}).GetStatus()
	assert.True(t, st.Active)
	assert.Equal(t, "mon", st.SessionID)
	assert.Equal(t, 1, st.Started)
}

func TestWriteStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	s := NewService(Dependencies{StatusPath: path})

	require.NoError(t, s.WriteStatus(Status{SessionID: "x", Tick: 9, Active: true}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Status
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "x", got.SessionID)
	assert.Equal(t, uint64(9), got.Tick)
	assert.NoFileExists(t, path+".tmp")
}

func TestWriteStatus_NoPath(t *testing.T) {
	assert.NoError(t, NewService(Dependencies{}).WriteStatus(Status{}))
}

func TestStartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	s := NewService(Dependencies{StatusPath: path, Interval: 10 * time.Millisecond})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}
