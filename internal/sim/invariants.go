package sim

import (
	"fmt"

	"github.com/arenalab/arena-recorder/internal/entity"
)

// checkInvariants runs after compaction. Any failure is an internal defect.
func (s *Session) checkInvariants() error {
	w := s.world
	if w.Player == nil {
		return fmt.Errorf("%w: no player", ErrInvariant)
	}

	ids := make(map[uint32]struct{}, 1+len(w.Enemies))
	for _, b := range w.Bodies() {
		switch v := b.(type) {
		case *entity.Player:
			if err := checkHealth("player", v.ID, v.Health, v.MaxHealth); err != nil {
				return err
			}
			if !w.InBounds(v.Position, 0) {
				return fmt.Errorf("%w: player %d at %v outside arena", ErrInvariant, v.ID, v.Position)
			}
			if _, dup := ids[v.ID]; dup {
				return fmt.Errorf("%w: duplicate player %d", ErrInvariant, v.ID)
			}
			ids[v.ID] = struct{}{}
		case *entity.Enemy:
			if err := checkHealth("enemy", v.ID, v.Health, v.MaxHealth); err != nil {
				return err
			}
			if !w.InBounds(v.Position, 0) {
				return fmt.Errorf("%w: enemy %d at %v outside arena", ErrInvariant, v.ID, v.Position)
			}
			if _, dup := ids[v.ID]; dup {
				return fmt.Errorf("%w: duplicate entity id %d", ErrInvariant, v.ID)
			}
			ids[v.ID] = struct{}{}
		case *entity.Projectile:
			if !w.InBounds(v.Position, s.cfg.Projectile.BoundsMargin) {
				return fmt.Errorf("%w: projectile %d at %v beyond margin", ErrInvariant, v.ID, v.Position)
			}
		}
	}
	return nil
}

func checkHealth(kind string, id uint32, health, maxHealth float64) error {
	if health < 0 || health > maxHealth {
		return fmt.Errorf("%w: %s %d health %v outside [0, %v]", ErrInvariant, kind, id, health, maxHealth)
	}
	return nil
}
