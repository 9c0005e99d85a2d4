package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&RecorderInfo{},
	&Session{},
	&Event{},
	&FrameSample{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// RecorderInfo identifies the recorder instance that owns the database
type RecorderInfo struct {
	gorm.Model
	Name          string `json:"name" gorm:"size:127"`
	Version       string `json:"version" gorm:"size:32"`
	SchemaVersion int    `json:"schemaVersion"`
}

func (*RecorderInfo) TableName() string {
	return "recorder_infos"
}

////////////////////////
// SESSION MODELS
////////////////////////

// Session is one finalized play session
type Session struct {
	ID              uint      `json:"id" gorm:"primarykey"`
	CreatedAt       time.Time `json:"createdAt"`
	SessionID       string    `json:"sessionId" gorm:"size:36;uniqueIndex:idx_session_session_id"`
	Label           string    `json:"label" gorm:"size:64;index:idx_session_label"`
	StartTime       time.Time `json:"startTime" gorm:"index:idx_session_start"`
	EndTime         time.Time `json:"endTime"`
	TickRate        int       `json:"tickRate"`
	Ticks           uint64    `json:"ticks"`
	DurationSeconds float64   `json:"durationSeconds"`
	Outcome         string    `json:"outcome" gorm:"size:16;index:idx_session_outcome"`
	WavesCompleted  int       `json:"wavesCompleted"`
	FinalWave       int       `json:"finalWave"`
	EventCount      int       `json:"eventCount"`
	FrameCount      int       `json:"frameCount"`
	Stats           Stats     `json:"stats" gorm:"embedded;embeddedPrefix:stat_"`
	Summary         Summary   `json:"summary" gorm:"embedded;embeddedPrefix:summary_"`
	Path            []byte    `json:"-"` // WKB LineString of the sampled player positions

	ThreatResponses datatypes.JSON `json:"threatResponses"`
}

func (*Session) TableName() string {
	return "sessions"
}

// Stats are the running totals at finalization
type Stats struct {
	DamageDealt      float64 `json:"damageDealt"`
	DamageTaken      float64 `json:"damageTaken"`
	ShotsFired       int     `json:"shotsFired"`
	ShotsHit         int     `json:"shotsHit"`
	EnemiesKilled    int     `json:"enemiesKilled"`
	Reloads          int     `json:"reloads"`
	DistanceTraveled float64 `json:"distanceTraveled"`
	TicksPursuing    int     `json:"ticksPursuing"`
	TicksRetreating  int     `json:"ticksRetreating"`
	TicksNeutral     int     `json:"ticksNeutral"`
	TicksNearCover   int     `json:"ticksNearCover"`
	TicksUsingCover  int     `json:"ticksUsingCover"`
	TimeInCover      float64 `json:"timeInCover"`
	CriticalHealth   int     `json:"criticalHealth"`
}

// Summary holds the derived ratios; NULL marks undefined values
type Summary struct {
	Accuracy             sql.NullFloat64 `json:"accuracy"`
	PursuingPct          sql.NullFloat64 `json:"pursuingPct"`
	RetreatingPct        sql.NullFloat64 `json:"retreatingPct"`
	NeutralPct           sql.NullFloat64 `json:"neutralPct"`
	NearCoverPct         sql.NullFloat64 `json:"nearCoverPct"`
	UsingCoverPct        sql.NullFloat64 `json:"usingCoverPct"`
	AvgEnemyDistance     sql.NullFloat64 `json:"avgEnemyDistance"`
	DamageEfficiency     float64         `json:"damageEfficiency"`
	Mobility             float64         `json:"mobility"`
	KillsPerSecond       float64         `json:"killsPerSecond"`
	ShotsPerSecond       float64         `json:"shotsPerSecond"`
	DamageTakenPerSecond float64         `json:"damageTakenPerSecond"`
}

// Event is one discrete session event. Payload holds the kind-specific body as JSON.
type Event struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	SessionID uint           `json:"sessionId" gorm:"index:idx_event_session_id"`
	Seq       int            `json:"seq"` // position in the session's event stream
	Kind      string         `json:"kind" gorm:"size:32;index:idx_event_kind"`
	Tick      uint64         `json:"tick"`
	Time      float64        `json:"time"`
	Payload   datatypes.JSON `json:"payload"`
}

func (*Event) TableName() string {
	return "events"
}

// FrameSample is a periodic behavioral snapshot
type FrameSample struct {
	ID                   uint            `json:"id" gorm:"primarykey"`
	SessionID            uint            `json:"sessionId" gorm:"index:idx_frame_session_id"`
	Tick                 uint64          `json:"tick"`
	Time                 float64         `json:"time"`
	PlayerX              float64         `json:"playerX"`
	PlayerY              float64         `json:"playerY"`
	PlayerHealth         float64         `json:"playerHealth"`
	Ammo                 int             `json:"ammo"`
	Reloading            bool            `json:"reloading"`
	EnemyCount           int             `json:"enemyCount"`
	AvgEnemyDistance     sql.NullFloat64 `json:"avgEnemyDistance"`
	NearestEnemyDistance sql.NullFloat64 `json:"nearestEnemyDistance"`
	NearestCoverDistance sql.NullFloat64 `json:"nearestCoverDistance"`
	NearCover            bool            `json:"nearCover"`
	UsingCover           bool            `json:"usingCover"`
	Direction            string          `json:"direction" gorm:"size:16"`
}

func (*FrameSample) TableName() string {
	return "frame_samples"
}
