package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/arenalab/arena-recorder/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Bucket names
const (
	BucketFrames    = "session_frames"
	BucketSummaries = "session_summaries"
)

// Measurement names
const (
	MeasurementFrame   = "frame_sample"
	MeasurementSummary = "session_summary"
)

// DefaultBucketNames are the InfluxDB buckets the recorder writes to.
var DefaultBucketNames = []string{
	BucketFrames,
	BucketSummaries,
}

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx.enabled is false")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// Connect establishes a connection to InfluxDB, falling back to the
// gzip line-protocol backup file when the server is unreachable.
func (m *Manager) Connect(ctx context.Context) error {
	if !viper.GetBool("influx.enabled") {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)
	m.IsValid = err == nil && running

	if !m.IsValid {
		m.Logger.Warn().Str("backupPath", m.BackupPath).
			Msg("InfluxDB client failed to initialize, writing to backup file")
		return m.OpenBackup()
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

// OpenBackup opens the gzip backup file for appending. It is a no-op if
// the backup writer is already open.
func (m *Manager) OpenBackup() error {
	if m.BackupWriter != nil {
		return nil
	}

	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := viper.GetString("influx.org")

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90, // 90 days
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Int("buckets", len(m.BucketNames)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if !strings.HasSuffix(lineProtocol, "\n") {
		lineProtocol += "\n"
	}
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteRecord writes every frame sample and the session summary of rec.
func (m *Manager) WriteRecord(rec *core.SessionRecord) error {
	for _, p := range FramePoints(rec) {
		if err := m.WritePoint(BucketFrames, p); err != nil {
			return err
		}
	}
	if err := m.WritePoint(BucketSummaries, SummaryPoint(rec)); err != nil {
		return err
	}

	m.Logger.Debug().Str("session_id", rec.SessionID).Int("frames", len(rec.Frames)).
		Bool("backup", !m.IsValid).Msg("Wrote session points")
	return nil
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
		m.Client = nil
	}

	var err error
	if m.BackupWriter != nil {
		err = m.BackupWriter.Close()
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		if cerr := m.backupFile.Close(); cerr != nil && err == nil {
			err = cerr
		}
		m.backupFile = nil
	}
	return err
}

// sampleTime maps simulation seconds onto the wall clock of the session start.
func sampleTime(rec *core.SessionRecord, seconds float64) time.Time {
	return rec.StartTime.Add(time.Duration(seconds * float64(time.Second)))
}

// FramePoints converts the frame samples of rec into points, one per sample.
// Undefined distances are left out of the field set.
func FramePoints(rec *core.SessionRecord) []*influxdb2_write.Point {
	points := make([]*influxdb2_write.Point, 0, len(rec.Frames))
	for _, f := range rec.Frames {
		p := influxdb2_write.NewPointWithMeasurement(MeasurementFrame).
			AddTag("session_id", rec.SessionID).
			AddTag("label", rec.Label).
			AddTag("direction", string(f.Direction)).
			AddField("tick", f.Tick).
			AddField("player_x", f.PlayerPosition.X).
			AddField("player_y", f.PlayerPosition.Y).
			AddField("player_health", f.PlayerHealth).
			AddField("ammo", f.Ammo).
			AddField("reloading", f.Reloading).
			AddField("enemy_count", f.EnemyCount).
			AddField("near_cover", f.NearCover).
			SetTime(sampleTime(rec, f.Time))

		if f.AvgEnemyDistance != nil {
			p.AddField("avg_enemy_distance", *f.AvgEnemyDistance)
		}
		if f.NearestEnemyDistance != nil {
			p.AddField("nearest_enemy_distance", *f.NearestEnemyDistance)
		}
		if f.NearestCoverDistance != nil {
			p.AddField("nearest_cover_distance", *f.NearestCoverDistance)
		}
		points = append(points, p)
	}
	return points
}

// SummaryPoint converts the stats and summary of rec into one point at the end time.
func SummaryPoint(rec *core.SessionRecord) *influxdb2_write.Point {
	s := rec.Stats
	sum := rec.Summary

	p := influxdb2_write.NewPointWithMeasurement(MeasurementSummary).
		AddTag("session_id", rec.SessionID).
		AddTag("label", rec.Label).
		AddTag("outcome", string(rec.Outcome)).
		AddField("duration_seconds", rec.DurationSeconds).
		AddField("ticks", rec.Ticks).
		AddField("waves_completed", rec.WavesCompleted).
		AddField("damage_dealt", s.DamageDealt).
		AddField("damage_taken", s.DamageTaken).
		AddField("shots_fired", s.ShotsFired).
		AddField("shots_hit", s.ShotsHit).
		AddField("enemies_killed", s.EnemiesKilled).
		AddField("reloads", s.Reloads).
		AddField("distance_traveled", s.DistanceTraveled).
		AddField("damage_efficiency", sum.DamageEfficiency).
		AddField("mobility", sum.Mobility).
		AddField("kills_per_second", sum.KillsPerSecond).
		AddField("shots_per_second", sum.ShotsPerSecond).
		AddField("damage_taken_per_second", sum.DamageTakenPerSecond).
		SetTime(rec.EndTime)

	optional := map[string]*float64{
		"accuracy":           sum.Accuracy,
		"pursuing_pct":       sum.PursuingPct,
		"retreating_pct":     sum.RetreatingPct,
		"neutral_pct":        sum.NeutralPct,
		"near_cover_pct":     sum.NearCoverPct,
		"using_cover_pct":    sum.UsingCoverPct,
		"avg_enemy_distance": sum.AvgEnemyDistance,
	}
	for name, v := range optional {
		if v != nil {
			p.AddField(name, *v)
		}
	}
	return p
}
