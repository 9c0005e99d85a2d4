// pkg/core/record.go
package core

import "time"

// Direction is the per-tick movement intent relative to the nearest threat.
type Direction string

const (
	DirectionPursuing   Direction = "pursuing"
	DirectionRetreating Direction = "retreating"
	DirectionNeutral    Direction = "neutral"
)

// Outcome is how a session ended.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
	OutcomeQuit    Outcome = "quit"
)

// FrameSample is a snapshot taken every sampling interval.
type FrameSample struct {
	Tick                 uint64    `json:"tick"`
	Time                 float64   `json:"time"`
	PlayerPosition       Vec2      `json:"player_position"`
	PlayerHealth         float64   `json:"player_health"`
	Ammo                 int       `json:"ammo"`
	Reloading            bool      `json:"reloading"`
	EnemyCount           int       `json:"enemy_count"`
	AvgEnemyDistance     *float64  `json:"avg_enemy_distance"`
	NearestEnemyDistance *float64  `json:"nearest_enemy_distance"`
	NearestCoverDistance *float64  `json:"nearest_cover_distance"`
	NearCover            bool      `json:"near_cover"`
	UsingCover           bool      `json:"using_cover"`
	Direction            Direction `json:"direction"`
}

// ThreatResponseKind is how the player reacted to the enemies around it.
type ThreatResponseKind string

const (
	ResponseDefensive  ThreatResponseKind = "defensive"
	ResponseAggressive ThreatResponseKind = "aggressive"
	ResponseRetreating ThreatResponseKind = "retreating"
)

// ThreatResponse is sampled at a fixed simulated-time interval while enemies
// are alive. ThreatLevel counts live enemies inside the threat radius.
type ThreatResponse struct {
	Tick                 uint64             `json:"tick"`
	Time                 float64            `json:"time"`
	ThreatLevel          int                `json:"threat_level"`
	NearestEnemyDistance float64            `json:"nearest_enemy_distance"`
	HealthFraction       float64            `json:"player_health_pct"`
	Response             ThreatResponseKind `json:"response"`
	Speed                float64            `json:"speed"`
}

// Stats are the running totals maintained while a session is live.
type Stats struct {
	DamageDealt      float64 `json:"damage_dealt"`
	DamageTaken      float64 `json:"damage_taken"`
	ShotsFired       int     `json:"shots_fired"`
	ShotsHit         int     `json:"shots_hit"`
	EnemiesKilled    int     `json:"enemies_killed"`
	Reloads          int     `json:"reloads"`
	DistanceTraveled float64 `json:"distance_traveled"`
	TicksPursuing    int     `json:"ticks_pursuing"`
	TicksRetreating  int     `json:"ticks_retreating"`
	TicksNeutral     int     `json:"ticks_neutral"`
	TicksNearCover   int     `json:"ticks_near_cover"`
	TicksUsingCover  int     `json:"ticks_using_cover"`
	TimeInCover      float64 `json:"time_in_cover"`
	CriticalHealth   int     `json:"critical_health"`
}

// ClassifiedTicks returns the number of ticks that received a direction label.
func (s Stats) ClassifiedTicks() int {
	return s.TicksPursuing + s.TicksRetreating + s.TicksNeutral
}

// Summary holds the ratios derived at finalization.
// Nil pointers mark values that are undefined for the session.
type Summary struct {
	Accuracy             *float64 `json:"accuracy"`
	PursuingPct          *float64 `json:"pursuing_pct"`
	RetreatingPct        *float64 `json:"retreating_pct"`
	NeutralPct           *float64 `json:"neutral_pct"`
	NearCoverPct         *float64 `json:"near_cover_pct"`
	UsingCoverPct        *float64 `json:"using_cover_pct"`
	AvgEnemyDistance     *float64 `json:"avg_enemy_distance"`
	DamageEfficiency     float64  `json:"damage_efficiency"`
	Mobility             float64  `json:"mobility"`
	KillsPerSecond       float64  `json:"kills_per_second"`
	ShotsPerSecond       float64  `json:"shots_per_second"`
	DamageTakenPerSecond float64  `json:"damage_taken_per_second"`
}

// SessionRecord is the finalized telemetry of one play session.
type SessionRecord struct {
	SessionID       string           `json:"session_id"`
	Label           string           `json:"label"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	TickRate        int              `json:"tick_rate"`
	Ticks           uint64           `json:"ticks"`
	DurationSeconds float64          `json:"duration_seconds"`
	Outcome         Outcome          `json:"outcome"`
	WavesCompleted  int              `json:"waves_completed"`
	FinalWave       int              `json:"final_wave"`
	Events          []Event          `json:"events"`
	Frames          []FrameSample    `json:"frames"`
	ThreatResponses []ThreatResponse `json:"threat_responses"`
	Stats           Stats            `json:"stats"`
	Summary         Summary          `json:"summary"`
}

// UploadMetadata contains the metadata sent alongside an exported record.
type UploadMetadata struct {
	SessionID       string
	Label           string
	Outcome         string
	SessionDuration float64
}

// Metadata returns the upload metadata for r.
func (r *SessionRecord) Metadata() UploadMetadata {
	return UploadMetadata{
		SessionID:       r.SessionID,
		Label:           r.Label,
		Outcome:         string(r.Outcome),
		SessionDuration: r.DurationSeconds,
	}
}
