package server

import (
	"time"

	"go.uber.org/zap"

	"github.com/xtding233/wheel-backend/internal/wheel"
)

// TimerAnimator stands in for a real renderer: it waits as long as the
// rotation would take at the configured speed, then completes the spin.
type TimerAnimator struct {
	log *zap.Logger
	// Scale shortens (or stretches) the wait; 1 means real time.
	Scale float64
}

func NewTimerAnimator(log *zap.Logger) *TimerAnimator {
	if log == nil {
		log = zap.NewNop()
	}
	return &TimerAnimator{log: log, Scale: 1}
}

// Duration is how long rot takes.
func (a *TimerAnimator) Duration(rot wheel.Rotation) time.Duration {
	if rot.Speed <= 0 {
		return 0
	}
	return time.Duration(rot.TargetAngle / rot.Speed * a.Scale * float64(time.Second))
}

// Animate completes rot after Duration(rot). done only settles rot's own
// spin, so a late timer cannot end a newer one.
func (a *TimerAnimator) Animate(rot wheel.Rotation, done wheel.Completer) {
	time.AfterFunc(a.Duration(rot), func() {
		ann, err := done.Complete(rot.SliceIndex)
		recordCompletion(a.log, rot.SliceIndex, ann, err)
	})
}
