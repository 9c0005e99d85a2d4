package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/arenalab/arena-recorder/internal/model"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// floatPtr converts a nullable column back to an optional value
func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// EventToCore converts a GORM Event to a core.Event.
func EventToCore(e model.Event) (core.Event, error) {
	out := core.Event{
		Kind: core.EventKind(e.Kind),
		Tick: e.Tick,
		Time: e.Time,
	}
	if len(e.Payload) == 0 {
		return out, nil
	}

	var env payloadEnvelope
	if err := json.Unmarshal(e.Payload, &env); err != nil {
		return core.Event{}, fmt.Errorf("failed to unmarshal %s payload: %w", e.Kind, err)
	}
	out.Shot = env.Shot
	out.Damage = env.Damage
	out.Kill = env.Kill
	out.Wave = env.Wave
	out.Reload = env.Reload
	out.Critical = env.Critical
	out.End = env.End
	return out, nil
}

// FrameSampleToCore converts a GORM FrameSample to a core.FrameSample.
func FrameSampleToCore(f model.FrameSample) core.FrameSample {
	return core.FrameSample{
		Tick:                 f.Tick,
		Time:                 f.Time,
		PlayerPosition:       core.V(f.PlayerX, f.PlayerY),
		PlayerHealth:         f.PlayerHealth,
		Ammo:                 f.Ammo,
		Reloading:            f.Reloading,
		EnemyCount:           f.EnemyCount,
		AvgEnemyDistance:     floatPtr(f.AvgEnemyDistance),
		NearestEnemyDistance: floatPtr(f.NearestEnemyDistance),
		NearestCoverDistance: floatPtr(f.NearestCoverDistance),
		NearCover:            f.NearCover,
		UsingCover:           f.UsingCover,
		Direction:            core.Direction(f.Direction),
	}
}

// SessionToCore rebuilds a record from its stored rows. events must be in
// Seq order and frames in Tick order.
func SessionToCore(s model.Session, events []model.Event, frames []model.FrameSample) (*core.SessionRecord, error) {
	r := &core.SessionRecord{
		SessionID:       s.SessionID,
		Label:           s.Label,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		TickRate:        s.TickRate,
		Ticks:           s.Ticks,
		DurationSeconds: s.DurationSeconds,
		Outcome:         core.Outcome(s.Outcome),
		WavesCompleted:  s.WavesCompleted,
		FinalWave:       s.FinalWave,
		Events:          make([]core.Event, 0, len(events)),
		Frames:          make([]core.FrameSample, 0, len(frames)),
		ThreatResponses: []core.ThreatResponse{},
		Stats: core.Stats{
			DamageDealt:      s.Stats.DamageDealt,
			DamageTaken:      s.Stats.DamageTaken,
			ShotsFired:       s.Stats.ShotsFired,
			ShotsHit:         s.Stats.ShotsHit,
			EnemiesKilled:    s.Stats.EnemiesKilled,
			Reloads:          s.Stats.Reloads,
			DistanceTraveled: s.Stats.DistanceTraveled,
			TicksPursuing:    s.Stats.TicksPursuing,
			TicksRetreating:  s.Stats.TicksRetreating,
			TicksNeutral:     s.Stats.TicksNeutral,
			TicksNearCover:   s.Stats.TicksNearCover,
			TicksUsingCover:  s.Stats.TicksUsingCover,
			TimeInCover:      s.Stats.TimeInCover,
			CriticalHealth:   s.Stats.CriticalHealth,
		},
		Summary: core.Summary{
			Accuracy:             floatPtr(s.Summary.Accuracy),
			PursuingPct:          floatPtr(s.Summary.PursuingPct),
			RetreatingPct:        floatPtr(s.Summary.RetreatingPct),
			NeutralPct:           floatPtr(s.Summary.NeutralPct),
			NearCoverPct:         floatPtr(s.Summary.NearCoverPct),
			UsingCoverPct:        floatPtr(s.Summary.UsingCoverPct),
			AvgEnemyDistance:     floatPtr(s.Summary.AvgEnemyDistance),
			DamageEfficiency:     s.Summary.DamageEfficiency,
			Mobility:             s.Summary.Mobility,
			KillsPerSecond:       s.Summary.KillsPerSecond,
			ShotsPerSecond:       s.Summary.ShotsPerSecond,
			DamageTakenPerSecond: s.Summary.DamageTakenPerSecond,
		},
	}

	if len(s.ThreatResponses) > 0 {
		if err := json.Unmarshal(s.ThreatResponses, &r.ThreatResponses); err != nil {
			return nil, fmt.Errorf("failed to unmarshal threat responses: %w", err)
		}
	}

	for _, e := range events {
		ev, err := EventToCore(e)
		if err != nil {
			return nil, err
		}
		r.Events = append(r.Events, ev)
	}
	for _, f := range frames {
		r.Frames = append(r.Frames, FrameSampleToCore(f))
	}
	return r, nil
}
