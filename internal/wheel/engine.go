package wheel

import (
	"fmt"
	"sync"
)

// SpinOutcome is what Spin hands back: the winning slice and the cumulative
// angle the wheel has to rotate to. TargetAngle is not normalised to [0,360).
type SpinOutcome struct {
	SpinID      uint64  `json:"spin_id"`
	SliceIndex  int     `json:"slice_index"`
	TargetAngle float64 `json:"target_angle_degrees"`
	Revolutions int     `json:"revolutions"`
	Payload     Payload `json:"payload"`
}

// RewardAnnouncement reports the prize once the rotation finished.
type RewardAnnouncement struct {
	SliceIndex int     `json:"slice_index"`
	Payload    Payload `json:"payload"`
	Display    Display `json:"display"`
}

// Rotation is the request handed to the animator.
type Rotation struct {
	SpinID      uint64
	SliceIndex  int
	TargetAngle float64 // cumulative degrees
	Speed       float64 // degrees/sec
}

// Completer is called back by the animator exactly once per rotation. The
// Completer handed to Animate is bound to that rotation's spin.
type Completer interface {
	Complete(index int) (RewardAnnouncement, error)
}

// Animator turns the wheel. It must call done.Complete once the rotation
// ends; the engine stays spinning until it does.
type Animator interface {
	Animate(rot Rotation, done Completer)
}

// Option configures an Engine.
type Option func(*Engine)

// WithRNG replaces the default crypto-backed source.
func WithRNG(rng RandomSource) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithAnimator sets the collaborator that performs the rotation.
func WithAnimator(a Animator) Option {
	return func(e *Engine) {
		e.animator = a
	}
}

// Engine draws a slice, computes the landing angle and guards against
// overlapping spins. The table is borrowed; SpinConfig and the session are owned.
//
// State: Idle --Spin--> Spinning --Complete--> Idle.
type Engine struct {
	table    *Table
	cfg      SpinConfig
	rng      RandomSource
	animator Animator

	mu       sync.Mutex // guards spinning, inFlight, lastID and every rng draw
	spinning bool
	inFlight SpinOutcome
	lastID   uint64
}

// NewEngine creates an idle engine over table.
func NewEngine(table *Table, cfg SpinConfig, opts ...Option) (*Engine, error) {
	if table == nil {
		return nil, fmt.Errorf("nil table: %w", ErrSpinConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		table: table,
		cfg:   cfg,
		rng:   DefaultRNG(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Table returns the slice table the engine draws from.
func (e *Engine) Table() *Table { return e.table }

// Config returns the spin settings fixed at construction.
func (e *Engine) Config() SpinConfig { return e.cfg }

// IsSpinning reports whether a spin awaits completion.
func (e *Engine) IsSpinning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spinning
}

// InFlight returns the outcome of the spin in progress, if any.
func (e *Engine) InFlight() (SpinOutcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight, e.spinning
}

// Spin starts one spin. Preconditions, in order: the table is valid, no spin
// is in progress, the pointer offset fits inside a slice. A failed
// precondition returns a *SpinRejected and draws nothing.
//
// Spin panics with ErrSelectionExhausted if the weighted walk misses every
// slice of a validated table.
func (e *Engine) Spin() (SpinOutcome, error) {
	out, err := e.start()
	if err != nil {
		return SpinOutcome{}, err
	}
	if e.animator != nil {
		e.animator.Animate(Rotation{
			SpinID:      out.SpinID,
			SliceIndex:  out.SliceIndex,
			TargetAngle: out.TargetAngle,
			Speed:       e.cfg.AngularSpeed,
		}, spinCompleter{e: e, id: out.SpinID})
	}
	return out, nil
}

func (e *Engine) start() (SpinOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	slices, sum, valid := e.table.snapshot()
	if !valid {
		return SpinOutcome{}, ErrInvalidTable
	}
	if e.spinning {
		return SpinOutcome{}, ErrAlreadySpinning
	}
	angle := sliceAngle(len(slices))
	if e.cfg.IndicatorOffset >= angle {
		return SpinOutcome{}, ErrOffsetExceedsSlice
	}

	e.spinning = true

	idx, err := selectIndex(slices, sum, e.rng.Float64())
	if err != nil {
		panic(err)
	}
	revs, target := e.targetAngle(idx, angle)

	e.lastID++
	e.inFlight = SpinOutcome{
		SpinID:      e.lastID,
		SliceIndex:  idx,
		TargetAngle: target,
		Revolutions: revs,
		Payload:     slices[idx].Payload,
	}
	return e.inFlight, nil
}

// SelectWeightedIndex draws one slice index by weight without touching the
// spin state.
func (e *Engine) SelectWeightedIndex() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	slices, sum, valid := e.table.snapshot()
	if !valid {
		return 0, ErrInvalidTable
	}
	return selectIndex(slices, sum, e.rng.Float64())
}

// selectIndex walks the slices in table order: the first slice whose weight
// exceeds what is left of r wins. r in [0,1) is scaled onto [0,sum) so a
// table accepted within WeightSumTolerance cannot fall off the end; for
// sum == 1 the walk is exactly the unscaled one.
func selectIndex(slices []Slice, sum, r float64) (int, error) {
	remaining := r * sum
	for i, s := range slices {
		if remaining < s.Weight {
			return i, nil
		}
		remaining -= s.Weight
	}
	return -1, fmt.Errorf("r=%v over %d slices: %w", r, len(slices), ErrSelectionExhausted)
}

// ComputeTargetAngle draws a landing angle inside slice index.
func (e *Engine) ComputeTargetAngle(index int) (float64, error) {
	n := e.table.Len()
	if index < 0 || index >= n {
		return 0, fmt.Errorf("index %d of %d: %w", index, n, ErrIndexOutOfRange)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	_, target := e.targetAngle(index, sliceAngle(n))
	return target, nil
}

// targetAngle = revolutions*360 + angle to the slice + a random point past the pointer offset.
// Caller holds e.mu.
func (e *Engine) targetAngle(index int, angle float64) (int, float64) {
	revs := intRange(e.rng, e.cfg.MinRevolutions, e.cfg.MaxRevolutions)
	toSlice := angle * float64(index)
	within := floatRange(e.rng, e.cfg.IndicatorOffset, angle)
	return revs, float64(revs)*360 + toSlice + within
}

// Complete ends the spin in progress and announces the prize of slice index.
// index must be the slice the spin drew; any other index returns
// ErrCompletionMismatch and the spin stays in progress. If the drawn index no
// longer resolves because the table was reloaded mid-spin, the session still
// returns to idle and ErrIndexOutOfRange is returned.
func (e *Engine) Complete(index int) (RewardAnnouncement, error) {
	return e.complete(0, index)
}

// CompleteSpin is Complete for a specific spin: it also fails with
// ErrStaleSpin unless id names the spin in progress.
func (e *Engine) CompleteSpin(id uint64, index int) (RewardAnnouncement, error) {
	if id == 0 {
		return RewardAnnouncement{}, ErrStaleSpin
	}
	return e.complete(id, index)
}

// complete settles the spin in progress; id 0 matches any spin.
func (e *Engine) complete(id uint64, index int) (RewardAnnouncement, error) {
	e.mu.Lock()
	if !e.spinning {
		e.mu.Unlock()
		if id != 0 {
			return RewardAnnouncement{}, ErrStaleSpin
		}
		return RewardAnnouncement{}, ErrNotSpinning
	}
	if id != 0 && id != e.inFlight.SpinID {
		e.mu.Unlock()
		return RewardAnnouncement{}, ErrStaleSpin
	}
	if index != e.inFlight.SliceIndex {
		drawn := e.inFlight.SliceIndex
		e.mu.Unlock()
		return RewardAnnouncement{}, fmt.Errorf("index %d, drawn %d: %w", index, drawn, ErrCompletionMismatch)
	}
	e.spinning = false
	e.inFlight = SpinOutcome{}
	e.mu.Unlock()

	s, err := e.table.SliceAt(index)
	if err != nil {
		return RewardAnnouncement{}, err
	}
	return RewardAnnouncement{
		SliceIndex: index,
		Payload:    s.Payload,
		Display:    s.Display,
	}, nil
}

// spinCompleter is the Completer an animator receives: it only ever
// settles the spin it was created for.
type spinCompleter struct {
	e  *Engine
	id uint64
}

func (c spinCompleter) Complete(index int) (RewardAnnouncement, error) {
	return c.e.CompleteSpin(c.id, index)
}
