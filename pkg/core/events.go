// pkg/core/events.go
package core

// EventKind tags the payload carried by an Event.
type EventKind string

const (
	EventShotFired       EventKind = "shot_fired"
	EventDamageTaken     EventKind = "damage_taken"
	EventDamageDealt     EventKind = "damage_dealt"
	EventEnemyKilled     EventKind = "enemy_killed"
	EventPlayerDied      EventKind = "player_died"
	EventWaveCompleted   EventKind = "wave_completed"
	EventReloadStarted   EventKind = "reload_started"
	EventReloadCompleted EventKind = "reload_completed"
	EventCriticalHealth  EventKind = "critical_health"
	EventSessionEnded    EventKind = "session_ended"
)

// Owner identifies which side spawned a projectile.
type Owner string

const (
	OwnerPlayer Owner = "player"
	OwnerEnemy  Owner = "enemy"
)

// Event is one discrete combat or progression occurrence.
// Exactly one payload pointer is set, matching Kind.
type Event struct {
	Kind EventKind `json:"kind"`
	Tick uint64    `json:"tick"`
	Time float64   `json:"time"` // seconds since session start

	Shot     *ShotPayload     `json:"shot,omitempty"`
	Damage   *DamagePayload   `json:"damage,omitempty"`
	Kill     *KillPayload     `json:"kill,omitempty"`
	Wave     *WavePayload     `json:"wave,omitempty"`
	Reload   *ReloadPayload   `json:"reload,omitempty"`
	Critical *CriticalPayload `json:"critical,omitempty"`
	End      *EndPayload      `json:"end,omitempty"`
}

// ShotPayload describes a player shot.
type ShotPayload struct {
	Position      Vec2    `json:"position"`
	Angle         float64 `json:"angle"`
	AmmoRemaining int     `json:"ammo_remaining"`
}

// DamagePayload is shared by damage_taken and damage_dealt.
//
// When the player is the victim, ThresholdCrossed names the health mark
// ("75%", "50%" or "25%") the hit took it through, and VictimReloading tells
// whether it was caught mid-reload.
type DamagePayload struct {
	VictimID         uint32  `json:"victim_id"`
	AttackerID       uint32  `json:"attacker_id"`
	AttackerOwner    Owner   `json:"attacker_owner"`
	Amount           float64 `json:"amount"`
	Position         Vec2    `json:"position"`
	HealthRemaining  float64 `json:"health_remaining"`
	ThresholdCrossed string  `json:"threshold_crossed,omitempty"`
	VictimReloading  bool    `json:"victim_reloading,omitempty"`
}

// KillPayload is shared by enemy_killed and player_died.
type KillPayload struct {
	VictimID   uint32 `json:"victim_id"`
	AttackerID uint32 `json:"attacker_id"`
	Archetype  string `json:"archetype,omitempty"`
	Position   Vec2   `json:"position"`
}

// WavePayload describes a cleared wave.
type WavePayload struct {
	Wave           int     `json:"wave"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Enemies        int     `json:"enemies"`
}

// ReloadPayload describes reload start and completion. EnemiesNearby is
// only set on reload_started.
type ReloadPayload struct {
	Ammo          int  `json:"ammo"`
	EnemiesNearby *int `json:"enemies_nearby,omitempty"`
}

// CriticalPayload is the player's state when its health first drops below
// the critical fraction.
type CriticalPayload struct {
	Health   float64 `json:"health"`
	Ammo     int     `json:"ammo"`
	Position Vec2    `json:"position"`
}

// EndPayload closes the event stream.
type EndPayload struct {
	Outcome Outcome `json:"outcome"`
	Wave    int     `json:"wave"`
}

// CountKind returns the number of events with the given kind.
func CountKind(events []Event, kind EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// FilterKind returns the events with the given kind, in order.
func FilterKind(events []Event, kind EventKind) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
