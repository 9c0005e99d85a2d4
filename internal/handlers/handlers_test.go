package handlers

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/internal/dispatcher"
	"github.com/arenalab/arena-recorder/internal/logging"
	"github.com/arenalab/arena-recorder/internal/parser"
	"github.com/arenalab/arena-recorder/internal/session"
	"github.com/arenalab/arena-recorder/internal/sim"
	"github.com/arenalab/arena-recorder/internal/storage"
	"github.com/arenalab/arena-recorder/internal/storage/mocks"
	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// singleEnemyConfig is the open arena with one pursuer straight right of the player.
func singleEnemyConfig() config.SimConfig {
	cfg := config.DefaultSimConfig()
	cfg.Covers = nil
	cfg.Waves.StartingEnemies = 1
	cfg.Waves.Increment = 0
	cfg.Waves.MaxEnemies = 1
	cfg.Waves.FinalWave = 1
	cfg.Waves.SniperEvery = 0
	cfg.Waves.SpawnPoints = []config.PointConfig{{X: 812, Y: 384}}
	return cfg
}

func newTestService(t *testing.T, backends ...storage.Backend) *Service {
	t.Helper()
	svc, err := NewService(Dependencies{
		SimConfig: singleEnemyConfig(),
		Parser:    parser.NewParser(nil, "unlabeled"),
		Backends:  backends,
		Version:   "test",
	})
	require.NoError(t, err)
	return svc
}

type fakeUploader struct {
	paths []string
	metas []core.UploadMetadata
	err   error
}

func (f *fakeUploader) Upload(path string, meta core.UploadMetadata) error {
	f.paths = append(f.paths, path)
	f.metas = append(f.metas, meta)
	return f.err
}

type uploadableBackend struct {
	*mocks.MockBackend
	*mocks.MockUploadable
}

func TestNewService_Defaults(t *testing.T) {
	svc, err := NewService(Dependencies{})
	require.NoError(t, err)
	assert.NotNil(t, svc.deps.LogManager)
	assert.NotNil(t, svc.deps.Session)
	assert.NotNil(t, svc.deps.Parser)
	assert.Nil(t, svc.LastRecord())
}

func TestHandlers_NoSession(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.HandleStatus(nil)
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = svc.HandleTick([]string{"0", "0", "1", "0", "0", "0"})
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = svc.HandleQuit(nil)
	assert.ErrorIs(t, err, session.ErrNoSession)
	assert.NoError(t, svc.Shutdown())
}

func TestHandleStart_InvalidConfig(t *testing.T) {
	svc := newTestService(t)
	svc.deps.SimConfig.Arena.TickRate = 0

	_, err := svc.HandleStart([]string{"aggressive"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	_, err = svc.deps.Session.Get()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestHandleTick_BadArgs(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.HandleStart(nil)
	require.NoError(t, err)

	_, err = svc.HandleTick([]string{"0", "0"})
	assert.ErrorIs(t, err, parser.ErrArgCount)
}

func TestStartTickQuit_SavesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)

	var saved *core.SessionRecord
	backend.EXPECT().SaveSession(gomock.Any()).DoAndReturn(func(rec *core.SessionRecord) error {
		saved = rec
		return nil
	}).Times(1)

	svc := newTestService(t, backend)

	id, err := svc.HandleStart([]string{`"defensive"`})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	for range 3 {
		res, err := svc.HandleTick([]string{"1", "0", "1", "0", "0", "0"})
		require.NoError(t, err)
		assert.Equal(t, "ok", res)
	}

	status, err := svc.HandleStatus(nil)
	require.NoError(t, err)
	var st sim.Status
	require.NoError(t, json.Unmarshal([]byte(status.(string)), &st))
	assert.Equal(t, id, st.SessionID)
	assert.Equal(t, uint64(3), st.Tick)

	quitID, err := svc.HandleQuit(nil)
	require.NoError(t, err)
	assert.Equal(t, id, quitID)

	require.NotNil(t, saved)
	assert.Equal(t, id, saved.SessionID)
	assert.Equal(t, "defensive", saved.Label)
	assert.Equal(t, core.OutcomeQuit, saved.Outcome)
	assert.Equal(t, uint64(3), saved.Ticks)
	assert.Same(t, saved, svc.LastRecord())
	assert.Equal(t, 1, svc.Saved())

	// the session is gone once it has been finalized
	_, err = svc.HandleQuit(nil)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestStart_EndsActiveSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().SaveSession(gomock.Any()).DoAndReturn(func(rec *core.SessionRecord) error {
		assert.Equal(t, "first", rec.Label)
		assert.Equal(t, core.OutcomeQuit, rec.Outcome)
		return nil
	}).Times(1)

	svc := newTestService(t, backend)

	first, err := svc.HandleStart([]string{"first"})
	require.NoError(t, err)
	second, err := svc.HandleStart([]string{"second"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	active, err := svc.deps.Session.Get()
	require.NoError(t, err)
	assert.Equal(t, second, active.ID())
	assert.Equal(t, 2, svc.deps.Session.Started())
}

func TestStep_VictoryFinalizesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().SaveSession(gomock.Any()).Return(nil).Times(1)

	svc := newTestService(t, backend)
	_, err := svc.Start("aggressive")
	require.NoError(t, err)

	fireRight := sim.Input{Aim: core.V(1, 0), Fire: true}
	ended := false
	for i := 0; i < 600 && !ended; i++ {
		ended, err = svc.Step(fireRight, 0)
		require.NoError(t, err)
	}

	require.True(t, ended)
	rec := svc.LastRecord()
	require.NotNil(t, rec)
	assert.Equal(t, core.OutcomeVictory, rec.Outcome)
	assert.Equal(t, 1, core.CountKind(rec.Events, core.EventSessionEnded))

	_, err = svc.Step(fireRight, 0)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestSave_FailingBackendDoesNotStopOthers(t *testing.T) {
	ctrl := gomock.NewController(t)
	failing := mocks.NewMockBackend(ctrl)
	working := mocks.NewMockBackend(ctrl)

	rec := &core.SessionRecord{SessionID: "s"}
	gomock.InOrder(
		failing.EXPECT().SaveSession(rec).Return(errors.New("disk full")),
		working.EXPECT().SaveSession(rec).Return(nil),
	)

	svc := newTestService(t, failing, working)
	err := svc.Save(rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, svc.Saved())
}

func TestSave_UploadsExportedFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := uploadableBackend{mocks.NewMockBackend(ctrl), mocks.NewMockUploadable(ctrl)}
	meta := core.UploadMetadata{SessionID: "s", Label: "chaotic"}

	b.MockBackend.EXPECT().SaveSession(gomock.Any()).Return(nil)
	b.MockUploadable.EXPECT().GetExportedFilePath().Return("/tmp/chaotic.json")
	b.MockUploadable.EXPECT().GetExportMetadata().Return(meta)

	up := &fakeUploader{}
	svc := newTestService(t, b)
	svc.deps.Uploader = up

	require.NoError(t, svc.Save(&core.SessionRecord{SessionID: "s"}))
	assert.Equal(t, []string{"/tmp/chaotic.json"}, up.paths)
	assert.Equal(t, []core.UploadMetadata{meta}, up.metas)
}

func TestSave_UploadFailureIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := uploadableBackend{mocks.NewMockBackend(ctrl), mocks.NewMockUploadable(ctrl)}

	b.MockBackend.EXPECT().SaveSession(gomock.Any()).Return(nil)
	b.MockUploadable.EXPECT().GetExportedFilePath().Return("/tmp/x.json")
	b.MockUploadable.EXPECT().GetExportMetadata().Return(core.UploadMetadata{})

	svc := newTestService(t, b)
	svc.deps.Uploader = &fakeUploader{err: errors.New("403")}

	err := svc.Save(&core.SessionRecord{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/tmp/x.json")
}

func TestSave_NoUploaderSkipsUpload(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := uploadableBackend{mocks.NewMockBackend(ctrl), mocks.NewMockUploadable(ctrl)}
	b.MockBackend.EXPECT().SaveSession(gomock.Any()).Return(nil)

	svc := newTestService(t, b)
	assert.NoError(t, svc.Save(&core.SessionRecord{}))
}

func TestShutdown_QuitsActiveSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().SaveSession(gomock.Any()).Return(nil).Times(1)

	svc := newTestService(t, backend)
	_, err := svc.Start("bot")
	require.NoError(t, err)

	require.NoError(t, svc.Shutdown())
	assert.Equal(t, core.OutcomeQuit, svc.LastRecord().Outcome)
	require.NoError(t, svc.Shutdown())
}

func TestRegisterHandlers_SavesOnWorker(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().SaveSession(gomock.Any()).Return(nil).Times(1)

	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)

	svc := newTestService(t, backend)
	svc.RegisterHandlers(d)

	for _, cmd := range []string{CmdStart, CmdTick, CmdQuit, CmdStatus, CmdVersion, CmdSave} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}

	version, err := d.Dispatch(dispatcher.Event{Command: CmdVersion})
	require.NoError(t, err)
	assert.Equal(t, "test", version)

	_, err = d.Dispatch(dispatcher.Event{Command: CmdStart, Args: []string{"worker"}})
	require.NoError(t, err)
	res, err := d.Dispatch(dispatcher.Event{Command: CmdTick, Args: []string{"0", "1", "0", "1", "0", "0", "0.01"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	_, err = d.Dispatch(dispatcher.Event{Command: CmdQuit})
	require.NoError(t, err)

	// Close drains the save queue
	d.Close()
	assert.Equal(t, 1, svc.Saved())
	assert.Zero(t, svc.pending.Len())
}
