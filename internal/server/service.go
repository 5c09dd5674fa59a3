// Package server exposes a wheel.Engine over HTTP and gRPC.
package server

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/xtding233/wheel-backend/internal/config"
	"github.com/xtding233/wheel-backend/internal/metrics"
	"github.com/xtding233/wheel-backend/internal/wheel"
)

// ErrManualCompletion is returned by Complete while a server-side animator
// is the one that settles spins.
var ErrManualCompletion = errors.New("spins are completed by the server")

// MaxSimTrials caps the trials a single simulate request may ask for.
const MaxSimTrials = 1_000_000

// SpinSettings is the JSON view of wheel.SpinConfig.
type SpinSettings struct {
	MinRevolutions  int     `json:"min_revolutions"`
	MaxRevolutions  int     `json:"max_revolutions"`
	AngularSpeed    float64 `json:"angular_speed"`
	IndicatorOffset float64 `json:"indicator_offset"`
}

// WheelView is the wheel as shown to clients: settings plus slice layout.
type WheelView struct {
	Name       string            `json:"name"`
	Version    string            `json:"version,omitempty"`
	Valid      bool              `json:"valid"`
	SliceAngle float64           `json:"slice_angle"`
	Spin       SpinSettings      `json:"spin"`
	Slices     []wheel.SliceView `json:"slices"`
}

// StateView reports the spin in progress, if any.
type StateView struct {
	Spinning bool               `json:"spinning"`
	InFlight *wheel.SpinOutcome `json:"in_flight,omitempty"`
}

// Service is the transport-neutral front of the engine. It records metrics
// and logs every state transition.
type Service struct {
	engine *wheel.Engine
	log    *zap.Logger
	manual bool

	mu      sync.RWMutex
	name    string
	version string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithManualCompletion sets whether clients may complete spins. Turn it off
// when the engine runs with a TimerAnimator.
func WithManualCompletion(on bool) ServiceOption {
	return func(s *Service) { s.manual = on }
}

// NewService wraps engine. Clients complete spins unless told otherwise.
func NewService(engine *wheel.Engine, log *zap.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{engine: engine, log: log, manual: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply swaps the slice table for the one in w. Spin settings are fixed for
// the lifetime of the engine and are not touched.
func (s *Service) Apply(w config.Wheel) wheel.ValidationResult {
	res := s.engine.Table().Configure(w.Slices)
	s.mu.Lock()
	s.name, s.version = w.Name, w.Version
	s.mu.Unlock()
	if !res.Valid {
		s.log.Warn("wheel table invalid", zap.String("wheel", w.Name), zap.String("issues", res.String()))
	}
	return res
}

// Wheel describes the current table and spin settings.
func (s *Service) Wheel() WheelView {
	t := s.engine.Table()
	cfg := s.engine.Config()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return WheelView{
		Name:       s.name,
		Version:    s.version,
		Valid:      t.IsValid(),
		SliceAngle: t.SliceAngle(),
		Spin: SpinSettings{
			MinRevolutions:  cfg.MinRevolutions,
			MaxRevolutions:  cfg.MaxRevolutions,
			AngularSpeed:    cfg.AngularSpeed,
			IndicatorOffset: cfg.IndicatorOffset,
		},
		Slices: t.Layout(),
	}
}

// State reports whether a spin is in flight.
func (s *Service) State() StateView {
	out, ok := s.engine.InFlight()
	if !ok {
		return StateView{}
	}
	return StateView{Spinning: true, InFlight: &out}
}

// Spin starts a spin on the engine.
func (s *Service) Spin() (wheel.SpinOutcome, error) {
	out, err := s.engine.Spin()
	if err != nil {
		var rej *wheel.SpinRejected
		if errors.As(err, &rej) {
			metrics.SpinRejected(string(rej.Reason))
			s.log.Info("spin rejected", zap.String("reason", string(rej.Reason)))
		}
		return wheel.SpinOutcome{}, err
	}
	metrics.SpinAccepted()
	s.log.Info("spin started",
		zap.Uint64("spin", out.SpinID),
		zap.Int("slice", out.SliceIndex),
		zap.Float64("target", out.TargetAngle),
		zap.Int("revolutions", out.Revolutions),
	)
	return out, nil
}

// Complete settles the spin in progress on behalf of a client. index must
// be the slice the spin drew.
func (s *Service) Complete(index int) (wheel.RewardAnnouncement, error) {
	if !s.manual {
		return wheel.RewardAnnouncement{}, ErrManualCompletion
	}
	ann, err := s.engine.Complete(index)
	recordCompletion(s.log, index, ann, err)
	return ann, err
}

// Simulate runs a private simulation against the live table.
func (s *Service) Simulate(trials int, seed uint64) (wheel.SimReport, error) {
	return wheel.Simulate(s.engine.Table(), s.engine.Config(), wheel.SimOptions{
		Trials: trials,
		Seed:   seed,
		Shards: simShards(trials),
	})
}

func simShards(trials int) int {
	switch {
	case trials < 10_000:
		return 1
	case trials < 100_000:
		return 4
	default:
		return 8
	}
}

func recordCompletion(log *zap.Logger, index int, ann wheel.RewardAnnouncement, err error) {
	switch {
	case err == nil:
		metrics.RewardGranted(string(ann.Payload))
		log.Info("reward", zap.Int("slice", ann.SliceIndex), zap.String("payload", string(ann.Payload)))
	case errors.Is(err, wheel.ErrIndexOutOfRange):
		// the engine is idle again, there is just nothing to hand out
		metrics.SpinSettled()
		log.Warn("completed spin on unknown slice", zap.Int("slice", index), zap.Error(err))
	default:
		log.Info("complete refused", zap.Int("slice", index), zap.Error(err))
	}
}
