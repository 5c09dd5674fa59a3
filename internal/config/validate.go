package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/xtding233/wheel-backend/internal/wheel"
)

// ValidateRaw checks semantic constraints of a RawConfig.
func ValidateRaw(cfg RawConfig) error {
	var errs []string

	// spin
	s := cfg.Spin
	if s.MinRevolutions == nil {
		errs = append(errs, "spin.min_revolutions is required")
	} else if *s.MinRevolutions < 1 {
		errs = append(errs, "spin.min_revolutions must be >= 1")
	}
	if s.MaxRevolutions == nil {
		errs = append(errs, "spin.max_revolutions is required")
	} else if s.MinRevolutions != nil && *s.MaxRevolutions < *s.MinRevolutions {
		errs = append(errs, "spin.max_revolutions must be >= spin.min_revolutions")
	}
	if s.AngularSpeed == nil {
		errs = append(errs, "spin.angular_speed is required")
	} else if !(*s.AngularSpeed > 0) || math.IsInf(*s.AngularSpeed, 0) {
		errs = append(errs, "spin.angular_speed must be > 0")
	}
	if s.IndicatorOffset != nil {
		off := *s.IndicatorOffset
		if math.IsNaN(off) || math.IsInf(off, 0) || off < 0 {
			errs = append(errs, "spin.indicator_offset must be >= 0")
		} else if n := len(cfg.Slices); n > 0 && off >= 360/float64(n) {
			errs = append(errs, fmt.Sprintf("spin.indicator_offset must be < slice angle %.3f", 360/float64(n)))
		}
	}

	// slices
	if len(cfg.Slices) == 0 {
		errs = append(errs, "slices must not be empty")
	}
	var sum float64
	for i, sl := range cfg.Slices {
		if strings.TrimSpace(sl.Payload) == "" {
			errs = append(errs, fmt.Sprintf("slices[%d].payload is required", i))
		}
		if sl.Weight == nil {
			errs = append(errs, fmt.Sprintf("slices[%d].weight is required", i))
			continue
		}
		w := *sl.Weight
		if math.IsNaN(w) || w < 0 || w > 1 {
			errs = append(errs, fmt.Sprintf("slices[%d].weight must be in [0,1]", i))
			continue
		}
		sum += w
	}
	if len(cfg.Slices) > 0 && math.Abs(sum-1) > wheel.WeightSumTolerance {
		errs = append(errs, fmt.Sprintf("slices weights sum to %.6f, must sum to 1", sum))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Build validates cfg and converts it into wheel types.
func Build(name string, cfg RawConfig) (Wheel, error) {
	if err := ValidateRaw(cfg); err != nil {
		return Wheel{}, err
	}
	var offset float64
	if cfg.Spin.IndicatorOffset != nil {
		offset = *cfg.Spin.IndicatorOffset
	}
	spin, err := wheel.NewSpinConfig(*cfg.Spin.MinRevolutions, *cfg.Spin.MaxRevolutions, *cfg.Spin.AngularSpeed, offset)
	if err != nil {
		return Wheel{}, err
	}

	slices := make([]wheel.Slice, len(cfg.Slices))
	for i, sl := range cfg.Slices {
		slices[i] = wheel.Slice{
			Weight:  *sl.Weight,
			Payload: wheel.Payload(sl.Payload),
			Display: wheel.Display{Label: sl.Label, Icon: sl.Icon},
		}
	}
	return Wheel{
		Name:    name,
		Version: cfg.Version,
		Slices:  slices,
		Spin:    spin,
	}, nil
}
