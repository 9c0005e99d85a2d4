package botplayer

import (
	"context"

	"github.com/arenalab/arena-recorder/internal/sim"
)

// Driver owns the active session. *handlers.Service satisfies it.
type Driver interface {
	Start(label string) (*sim.Session, error)
	Step(in sim.Input, dt float64) (bool, error)
	Quit() (*sim.Session, error)
}

// Result describes one bot run.
type Result struct {
	SessionID string
	Ticks     int
	// Ended is false when the run was cut off by maxTicks or ctx and quit.
	Ended bool
}

// Run plays one session labeled with the policy name. A session still live
// after maxTicks, or when ctx is done, is quit so it is still recorded.
func Run(ctx context.Context, d Driver, p Policy, maxTicks int) (Result, error) {
	sess, err := d.Start(p.Name())
	if err != nil {
		return Result{}, err
	}
	res := Result{SessionID: sess.ID()}

	for res.Ticks < maxTicks && ctx.Err() == nil {
		in := p.Next(sess.Status())
		ended, err := d.Step(in, 0)
		res.Ticks++
		if err != nil {
			return res, err
		}
		if ended {
			res.Ended = true
			return res, nil
		}
	}

	if _, err := d.Quit(); err != nil {
		return res, err
	}
	return res, ctx.Err()
}
