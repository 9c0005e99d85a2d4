// Package telemetry observes a running session and builds its SessionRecord.
// It never mutates simulation state.
package telemetry

import (
	"time"

	"github.com/arenalab/arena-recorder/internal/config"
	"github.com/arenalab/arena-recorder/internal/entity"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// Pipeline owns the in-progress record of one session.
type Pipeline struct {
	cfg    config.TelemetryConfig
	record *core.SessionRecord

	prevPos  core.Vec2
	prevTime float64
	path     []core.Vec2

	wasInCover bool

	sampledEnemyDist float64
	sampledEnemyN    int

	finalized bool
}

// New starts an empty record. origin is the player's spawn position.
func New(cfg config.TelemetryConfig, sessionID, label string, start time.Time, tickRate, finalWave int, origin core.Vec2) *Pipeline {
	return &Pipeline{
		cfg: cfg,
		record: &core.SessionRecord{
			SessionID: sessionID,
			Label:     label,
			StartTime: start,
			TickRate:  tickRate,
			FinalWave: finalWave,
			Events:    make([]core.Event, 0, 64),
			Frames:    make([]core.FrameSample, 0, 64),

			ThreatResponses: []core.ThreatResponse{},
		},
		prevPos: origin,
		path:    []core.Vec2{origin},
	}
}

// Record appends events in the order given and folds them into the running
// stats. Stats are player-centric: dealt counts hits by player projectiles,
// taken counts hits by enemy projectiles.
func (p *Pipeline) Record(events ...core.Event) {
	if p.finalized {
		return
	}
	for _, e := range events {
		p.record.Events = append(p.record.Events, e)
		p.fold(e)
	}
}

func (p *Pipeline) fold(e core.Event) {
	s := &p.record.Stats
	switch e.Kind {
	case core.EventShotFired:
		s.ShotsFired++
	case core.EventDamageDealt:
		if e.Damage != nil && e.Damage.AttackerOwner == core.OwnerPlayer {
			s.DamageDealt += e.Damage.Amount
			s.ShotsHit++
		}
	case core.EventDamageTaken:
		if e.Damage != nil && e.Damage.AttackerOwner == core.OwnerEnemy {
			s.DamageTaken += e.Damage.Amount
		}
	case core.EventEnemyKilled:
		s.EnemiesKilled++
	case core.EventReloadStarted:
		s.Reloads++
	case core.EventCriticalHealth:
		s.CriticalHealth++
	}
}

// Observe classifies the tick's movement, accumulates distance and cover
// counters, samples a threat response every ThreatInterval seconds and
// captures a FrameSample every SampleInterval ticks. It runs after all
// updates of the tick and costs O(live entities + covers*live entities).
func (p *Pipeline) Observe(w *entity.World, at entity.Stamp) core.Direction {
	if p.finalized {
		return core.DirectionNeutral
	}

	s := &p.record.Stats
	player := w.Player
	pos := player.Position

	delta := pos.Sub(p.prevPos)
	dt := at.Time - p.prevTime
	p.prevPos = pos
	p.prevTime = at.Time
	p.path = append(p.path, pos)
	s.DistanceTraveled += delta.Len()

	var toEnemy core.Vec2
	nearest, nearestDist, hasEnemy := w.NearestEnemy(pos)
	if hasEnemy {
		toEnemy = nearest.Position.Sub(pos)
	}

	dir := Classify(delta, toEnemy, p.cfg.DirectionThreshold, p.cfg.Epsilon)
	switch dir {
	case core.DirectionPursuing:
		s.TicksPursuing++
	case core.DirectionRetreating:
		s.TicksRetreating++
	default:
		s.TicksNeutral++
	}

	coverDist, hasCover := w.NearestCover(pos)
	nearCover := hasCover && coverDist <= p.cfg.NearCoverDistance
	if nearCover {
		s.TicksNearCover++
	}

	inCover := usingCover(w, p.cfg.UsingCoverDistance, p.cfg.CoverAngle)
	if inCover {
		s.TicksUsingCover++
		// Only a tick that started in cover counts towards time in cover.
		if p.wasInCover && dt > 0 {
			s.TimeInCover += dt
		}
	}
	p.wasInCover = inCover

	if hasEnemy {
		p.respond(w, at, delta, dt, toEnemy, nearestDist)
	}

	if at.Tick%uint64(p.cfg.SampleInterval) == 0 {
		p.sample(w, at, dir, coverDist, hasCover, nearCover, inCover)
	}

	return dir
}

// respond appends a threat response when none has been taken in the last
// ThreatInterval seconds.
func (p *Pipeline) respond(w *entity.World, at entity.Stamp, delta core.Vec2, dt float64, toEnemy core.Vec2, nearestDist float64) {
	rs := p.record.ThreatResponses
	if n := len(rs); n > 0 && at.Time-rs[n-1].Time <= p.cfg.ThreatInterval {
		return
	}

	player := w.Player
	var speed float64
	if dt > 0 {
		speed = delta.Len() / dt
	}

	response := core.ResponseDefensive
	switch {
	case speed < p.cfg.StillSpeed:
	case delta.Dot(toEnemy) > 0:
		response = core.ResponseAggressive
	default:
		response = core.ResponseRetreating
	}

	var health float64
	if player.MaxHealth > 0 {
		health = player.Health / player.MaxHealth
	}

	p.record.ThreatResponses = append(rs, core.ThreatResponse{
		Tick:                 at.Tick,
		Time:                 at.Time,
		ThreatLevel:          w.EnemiesWithin(player.Position, p.cfg.ThreatRadius),
		NearestEnemyDistance: nearestDist,
		HealthFraction:       health,
		Response:             response,
		Speed:                speed,
	})
}

func (p *Pipeline) sample(w *entity.World, at entity.Stamp, dir core.Direction, coverDist float64, hasCover, nearCover, inCover bool) {
	player := w.Player
	frame := core.FrameSample{
		Tick:           at.Tick,
		Time:           at.Time,
		PlayerPosition: player.Position,
		PlayerHealth:   player.Health,
		Ammo:           player.Ammo,
		Reloading:      player.Reloading,
		NearCover:      nearCover,
		UsingCover:     inCover,
		Direction:      dir,
	}

	var sum float64
	nearest := -1.0
	for _, e := range w.Enemies {
		if !e.Alive() {
			continue
		}
		d := player.Position.Dist(e.Position)
		sum += d
		frame.EnemyCount++
		if nearest < 0 || d < nearest {
			nearest = d
		}
	}
	if frame.EnemyCount > 0 {
		avg := sum / float64(frame.EnemyCount)
		frame.AvgEnemyDistance = &avg
		frame.NearestEnemyDistance = &nearest
		p.sampledEnemyDist += avg
		p.sampledEnemyN++
	}
	if hasCover {
		frame.NearestCoverDistance = &coverDist
	}

	p.record.Frames = append(p.record.Frames, frame)
}

// Stats returns a copy of the running totals.
func (p *Pipeline) Stats() core.Stats {
	return p.record.Stats
}

// Events returns the recorded events. The slice must not be modified.
func (p *Pipeline) Events() []core.Event {
	return p.record.Events
}

// Frames returns the captured samples. The slice must not be modified.
func (p *Pipeline) Frames() []core.FrameSample {
	return p.record.Frames
}

// ThreatResponses returns the sampled responses. The slice must not be modified.
func (p *Pipeline) ThreatResponses() []core.ThreatResponse {
	return p.record.ThreatResponses
}

// Path returns the player position at spawn and after every observed tick.
func (p *Pipeline) Path() []core.Vec2 {
	return p.path
}

// Finalized reports whether Finalize has run.
func (p *Pipeline) Finalized() bool {
	return p.finalized
}
