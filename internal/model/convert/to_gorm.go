// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/arenalab/arena-recorder/internal/geo"
	"github.com/arenalab/arena-recorder/internal/model"
	"github.com/arenalab/arena-recorder/pkg/core"
	"gorm.io/datatypes"
)

// payloadEnvelope carries whichever payload an event has, keyed the same way
// as in the exported record.
type payloadEnvelope struct {
	Shot     *core.ShotPayload     `json:"shot,omitempty"`
	Damage   *core.DamagePayload   `json:"damage,omitempty"`
	Kill     *core.KillPayload     `json:"kill,omitempty"`
	Wave     *core.WavePayload     `json:"wave,omitempty"`
	Reload   *core.ReloadPayload   `json:"reload,omitempty"`
	Critical *core.CriticalPayload `json:"critical,omitempty"`
	End      *core.EndPayload      `json:"end,omitempty"`
}

// nullFloat converts an optional value to a nullable column.
func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// CoreToSession converts a finalized record to a GORM model.Session.
// Events and frames are converted separately; only their counts are kept here.
// Threat responses are stored inline as JSON.
func CoreToSession(r *core.SessionRecord) (model.Session, error) {
	responses, err := json.Marshal(r.ThreatResponses)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to marshal threat responses: %w", err)
	}

	s := r.Stats
	sum := r.Summary
	return model.Session{
		SessionID:       r.SessionID,
		Label:           r.Label,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		TickRate:        r.TickRate,
		Ticks:           r.Ticks,
		DurationSeconds: r.DurationSeconds,
		Outcome:         string(r.Outcome),
		WavesCompleted:  r.WavesCompleted,
		FinalWave:       r.FinalWave,
		EventCount:      len(r.Events),
		FrameCount:      len(r.Frames),
		Stats: model.Stats{
			DamageDealt:      s.DamageDealt,
			DamageTaken:      s.DamageTaken,
			ShotsFired:       s.ShotsFired,
			ShotsHit:         s.ShotsHit,
			EnemiesKilled:    s.EnemiesKilled,
			Reloads:          s.Reloads,
			DistanceTraveled: s.DistanceTraveled,
			TicksPursuing:    s.TicksPursuing,
			TicksRetreating:  s.TicksRetreating,
			TicksNeutral:     s.TicksNeutral,
			TicksNearCover:   s.TicksNearCover,
			TicksUsingCover:  s.TicksUsingCover,
			TimeInCover:      s.TimeInCover,
			CriticalHealth:   s.CriticalHealth,
		},
		Summary: model.Summary{
			Accuracy:             nullFloat(sum.Accuracy),
			PursuingPct:          nullFloat(sum.PursuingPct),
			RetreatingPct:        nullFloat(sum.RetreatingPct),
			NeutralPct:           nullFloat(sum.NeutralPct),
			NearCoverPct:         nullFloat(sum.NearCoverPct),
			UsingCoverPct:        nullFloat(sum.UsingCoverPct),
			AvgEnemyDistance:     nullFloat(sum.AvgEnemyDistance),
			DamageEfficiency:     sum.DamageEfficiency,
			Mobility:             sum.Mobility,
			KillsPerSecond:       sum.KillsPerSecond,
			ShotsPerSecond:       sum.ShotsPerSecond,
			DamageTakenPerSecond: sum.DamageTakenPerSecond,
		},
		Path:            geo.PathWKB(geo.FramePath(r.Frames)),
		ThreatResponses: datatypes.JSON(responses),
	}, nil
}

// CoreToEvent converts a core.Event to a GORM model.Event.
// seq is the event's position in the session stream. SessionID is stamped by the writer.
func CoreToEvent(e core.Event, seq int) (model.Event, error) {
	payload, err := json.Marshal(payloadEnvelope{
		Shot:     e.Shot,
		Damage:   e.Damage,
		Kill:     e.Kill,
		Wave:     e.Wave,
		Reload:   e.Reload,
		Critical: e.Critical,
		End:      e.End,
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("failed to marshal %s payload: %w", e.Kind, err)
	}

	return model.Event{
		Seq:     seq,
		Kind:    string(e.Kind),
		Tick:    e.Tick,
		Time:    e.Time,
		Payload: datatypes.JSON(payload),
	}, nil
}

// CoreToEvents converts every event of a record in stream order.
func CoreToEvents(r *core.SessionRecord) ([]model.Event, error) {
	out := make([]model.Event, 0, len(r.Events))
	for i, e := range r.Events {
		ev, err := CoreToEvent(e, i)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// CoreToFrameSample converts a core.FrameSample to a GORM model.FrameSample.
func CoreToFrameSample(f core.FrameSample) model.FrameSample {
	return model.FrameSample{
		Tick:                 f.Tick,
		Time:                 f.Time,
		PlayerX:              f.PlayerPosition.X,
		PlayerY:              f.PlayerPosition.Y,
		PlayerHealth:         f.PlayerHealth,
		Ammo:                 f.Ammo,
		Reloading:            f.Reloading,
		EnemyCount:           f.EnemyCount,
		AvgEnemyDistance:     nullFloat(f.AvgEnemyDistance),
		NearestEnemyDistance: nullFloat(f.NearestEnemyDistance),
		NearestCoverDistance: nullFloat(f.NearestCoverDistance),
		NearCover:            f.NearCover,
		UsingCover:           f.UsingCover,
		Direction:            string(f.Direction),
	}
}

// CoreToFrameSamples converts every frame of a record in tick order.
func CoreToFrameSamples(r *core.SessionRecord) []model.FrameSample {
	out := make([]model.FrameSample, len(r.Frames))
	for i, f := range r.Frames {
		out[i] = CoreToFrameSample(f)
	}
	return out
}
