package telemetry

import (
	"time"

	"github.com/arenalab/arena-recorder/pkg/core"
)

// Final carries the session-level facts the pipeline does not observe itself.
type Final struct {
	Outcome        core.Outcome
	WavesCompleted int
	Ticks          uint64
	Duration       float64 // simulated seconds
	EndTime        time.Time
}

// Finalize computes the summary block and freezes the record. Only the first
// call does any work; later calls return the same record.
func (p *Pipeline) Finalize(f Final) *core.SessionRecord {
	if p.finalized {
		return p.record
	}
	p.finalized = true

	r := p.record
	r.Outcome = f.Outcome
	r.WavesCompleted = f.WavesCompleted
	r.Ticks = f.Ticks
	r.DurationSeconds = f.Duration
	r.EndTime = f.EndTime
	r.Summary = summarize(r.Stats, f.Duration)

	if p.sampledEnemyN > 0 {
		r.Summary.AvgEnemyDistance = ratio(p.sampledEnemyDist, float64(p.sampledEnemyN))
	}

	return r
}

func summarize(s core.Stats, duration float64) core.Summary {
	sum := core.Summary{
		Accuracy:         ratio(float64(s.ShotsHit), float64(s.ShotsFired)),
		DamageEfficiency: s.DamageDealt / (s.DamageTaken + 1),
	}

	if ticks := float64(s.ClassifiedTicks()); ticks > 0 {
		sum.PursuingPct = pct(s.TicksPursuing, ticks)
		sum.RetreatingPct = pct(s.TicksRetreating, ticks)
		sum.NeutralPct = pct(s.TicksNeutral, ticks)
		sum.NearCoverPct = pct(s.TicksNearCover, ticks)
		sum.UsingCoverPct = pct(s.TicksUsingCover, ticks)
	}

	if duration > 0 {
		sum.Mobility = s.DistanceTraveled / duration
		sum.KillsPerSecond = float64(s.EnemiesKilled) / duration
		sum.ShotsPerSecond = float64(s.ShotsFired) / duration
		sum.DamageTakenPerSecond = s.DamageTaken / duration
	}

	return sum
}

// ratio returns num/den, or nil when den is zero.
func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	return &v
}

func pct(n int, total float64) *float64 {
	v := float64(n) / total * 100
	return &v
}
