package wheel

import "math"

// SpinConfig controls how far and how fast the wheel turns.
// Example: Min=3, Max=10 → 3..9 full turns before landing (Max is exclusive).
type SpinConfig struct {
	MinRevolutions  int     // full turns, lower bound (inclusive)
	MaxRevolutions  int     // full turns, upper bound (exclusive; == Min means exactly Min)
	AngularSpeed    float64 // degrees/sec, handed to the animator
	IndicatorOffset float64 // degrees between the pointer and the 0° reference
}

// NewSpinConfig builds a validated SpinConfig.
func NewSpinConfig(minRev, maxRev int, speed, offset float64) (SpinConfig, error) {
	c := SpinConfig{
		MinRevolutions:  minRev,
		MaxRevolutions:  maxRev,
		AngularSpeed:    speed,
		IndicatorOffset: offset,
	}
	if err := c.Validate(); err != nil {
		return SpinConfig{}, err
	}
	return c, nil
}

// Validate checks the revolution range, speed and pointer offset.
func (c SpinConfig) Validate() error {
	if c.MinRevolutions <= 0 {
		return ErrSpinConfig
	}
	if c.MaxRevolutions < c.MinRevolutions {
		return ErrSpinConfig
	}
	if !(c.AngularSpeed > 0) || math.IsInf(c.AngularSpeed, 0) {
		return ErrSpinConfig
	}
	if math.IsNaN(c.IndicatorOffset) || math.IsInf(c.IndicatorOffset, 0) || c.IndicatorOffset < 0 {
		return ErrSpinConfig
	}
	return nil
}
