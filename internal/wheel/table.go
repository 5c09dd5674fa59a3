package wheel

import (
	"fmt"
	"sync"
)

// Payload identifies the reward a slice grants. The wheel never interprets it.
type Payload string

// Display carries presentation metadata for a slice.
type Display struct {
	Label string `json:"label,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// Slice is one weighted outcome on the wheel.
type Slice struct {
	Weight  float64 `json:"weight"`
	Payload Payload `json:"payload"`
	Display Display `json:"display"`
}

// SliceView is what a renderer needs to place one slice.
type SliceView struct {
	Index         int     `json:"index"`
	Payload       Payload `json:"payload"`
	Label         string  `json:"label,omitempty"`
	Icon          string  `json:"icon,omitempty"`
	Weight        float64 `json:"weight"`
	CenterDegrees float64 `json:"center_degrees"`
}

// Table is the ordered list of slices. Order decides both the angular
// position of a slice and the selection walk order.
//
// Validity is cached and recomputed on every Configure/Validate.
type Table struct {
	mu     sync.RWMutex
	slices []Slice
	valid  bool
	sum    float64
}

// NewTable returns an empty, invalid table.
func NewTable() *Table {
	return &Table{}
}

// Configure replaces the slices and recomputes validity.
func (t *Table) Configure(slices []Slice) ValidationResult {
	cp := append([]Slice(nil), slices...)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.slices = cp
	return t.validateLocked()
}

// Validate recomputes and caches validity.
func (t *Table) Validate() ValidationResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validateLocked()
}

func (t *Table) validateLocked() ValidationResult {
	res, sum := validateSlices(t.slices)
	t.valid = res.Valid
	t.sum = sum
	return res
}

// IsValid returns the cached validity.
func (t *Table) IsValid() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.valid
}

// Len returns the number of slices.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slices)
}

// SliceAngle returns 360/Len. An empty table yields 0; check IsValid first.
func (t *Table) SliceAngle() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sliceAngle(len(t.slices))
}

func sliceAngle(n int) float64 {
	if n == 0 {
		return 0
	}
	return 360 / float64(n)
}

// WeightAt returns the weight of slice i.
func (t *Table) WeightAt(i int) (float64, error) {
	s, err := t.SliceAt(i)
	if err != nil {
		return 0, err
	}
	return s.Weight, nil
}

// PayloadAt returns the payload of slice i.
func (t *Table) PayloadAt(i int) (Payload, error) {
	s, err := t.SliceAt(i)
	if err != nil {
		return "", err
	}
	return s.Payload, nil
}

// SliceAt returns a copy of slice i.
func (t *Table) SliceAt(i int) (Slice, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.slices) {
		return Slice{}, fmt.Errorf("index %d of %d: %w", i, len(t.slices), ErrIndexOutOfRange)
	}
	return t.slices[i], nil
}

// Slices returns a copy of the configured slices.
func (t *Table) Slices() []Slice {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Slice(nil), t.slices...)
}

// Layout places every slice at the middle of its sector.
func (t *Table) Layout() []SliceView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	angle := sliceAngle(len(t.slices))
	half := angle / 2
	out := make([]SliceView, len(t.slices))
	for i, s := range t.slices {
		out[i] = SliceView{
			Index:         i,
			Payload:       s.Payload,
			Label:         s.Display.Label,
			Icon:          s.Display.Icon,
			Weight:        s.Weight,
			CenterDegrees: float64(i)*angle + half,
		}
	}
	return out
}

// snapshot returns the slices, the validated weight sum and validity under one read lock.
func (t *Table) snapshot() ([]Slice, float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.slices, t.sum, t.valid
}
