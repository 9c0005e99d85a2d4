package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestVec2_Basics(t *testing.T) {
	a := V(3, 4)
	b := V(1, -2)

	assert.Equal(t, V(4, 2), a.Add(b))
	assert.Equal(t, V(2, 6), a.Sub(b))
	assert.Equal(t, V(6, 8), a.Scale(2))
	assert.Equal(t, 5.0, a.Len())
	assert.Equal(t, -5.0, a.Dot(b))
	assert.InDelta(t, math.Hypot(2, 6), a.Dist(b), 1e-12)
	assert.InDelta(t, math.Atan2(4, 3), a.Angle(), 1e-12)
}

func TestVec2_IsFinite(t *testing.T) {
	assert.True(t, V(1e307, -3).IsFinite())
	assert.False(t, V(math.NaN(), 0).IsFinite())
	assert.False(t, V(0, math.Inf(-1)).IsFinite())
	assert.False(t, Vec2{}.Scale(math.Inf(1)).IsFinite())
}

func TestVec2_NormalizeZeroIsSafe(t *testing.T) {
	n := Vec2{}.Normalize()
	assert.Equal(t, Vec2{}, n)
	assert.False(t, math.IsNaN(n.X) || math.IsNaN(n.Y))
}

func TestVec2_NormalizeUnitLength(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := V(
			rapid.Float64Range(-1e4, 1e4).Draw(t, "x"),
			rapid.Float64Range(-1e4, 1e4).Draw(t, "y"),
		)
		if v.Len() < 1e-9 {
			return
		}
		if l := v.Normalize().Len(); math.Abs(l-1) > 1e-9 {
			t.Fatalf("normalized length %v", l)
		}
	})
}

func TestClamp(t *testing.T) {
	lo, hi := V(10, 10), V(100, 50)
	assert.Equal(t, V(10, 50), Clamp(V(-5, 80), lo, hi))
	assert.Equal(t, V(42, 20), Clamp(V(42, 20), lo, hi))
}

func TestFromAngle(t *testing.T) {
	v := FromAngle(math.Pi / 2)
	assert.InDelta(t, 0, v.X, 1e-12)
	assert.InDelta(t, 1, v.Y, 1e-12)
}

func TestSessionRecord_JSONFieldNames(t *testing.T) {
	acc := 0.5
	rec := SessionRecord{
		SessionID: "abc",
		Events: []Event{{
			Kind: EventShotFired,
			Tick: 3,
			Shot: &ShotPayload{Position: V(1, 2), AmmoRemaining: 29},
		}},
		Frames:  []FrameSample{{Tick: 10, Direction: DirectionNeutral}},
		Summary: Summary{Accuracy: &acc},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))

	for _, key := range []string{"session_id", "start_time", "events", "frames", "stats", "summary", "outcome", "threat_responses"} {
		assert.Contains(t, generic, key)
	}

	event := generic["events"].([]any)[0].(map[string]any)
	assert.Equal(t, "shot_fired", event["kind"])
	assert.Contains(t, event, "shot")
	assert.NotContains(t, event, "damage")

	frame := generic["frames"].([]any)[0].(map[string]any)
	assert.Nil(t, frame["nearest_enemy_distance"])
	assert.Equal(t, "neutral", frame["direction"])
	assert.Equal(t, false, frame["using_cover"])

	stats := generic["stats"].(map[string]any)
	assert.Contains(t, stats, "ticks_using_cover")
	assert.Contains(t, stats, "time_in_cover")

	summary := generic["summary"].(map[string]any)
	assert.Equal(t, 0.5, summary["accuracy"])
	assert.Nil(t, summary["pursuing_pct"])
}

func TestCountAndFilterKind(t *testing.T) {
	events := []Event{
		{Kind: EventShotFired, Tick: 1},
		{Kind: EventDamageDealt, Tick: 2},
		{Kind: EventShotFired, Tick: 3},
	}
	assert.Equal(t, 2, CountKind(events, EventShotFired))
	assert.Zero(t, CountKind(events, EventEnemyKilled))

	shots := FilterKind(events, EventShotFired)
	require.Len(t, shots, 2)
	assert.Equal(t, uint64(3), shots[1].Tick)
}
