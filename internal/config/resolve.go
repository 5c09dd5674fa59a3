// resolve.go
package config

// Overrides carries per-request tweaks of the spin settings.
type Overrides struct {
	MinRevolutions  *int
	MaxRevolutions  *int
	AngularSpeed    *float64
	IndicatorOffset *float64
}

type Resolver interface {
	// Returns merged RawConfig and the normalized Wheel
	Resolve(name string, o Overrides) (RawConfig, Wheel, error)
}

var _ Resolver = (*Loader)(nil)

// Resolve merges default → wheel → overrides and builds the wheel.
func (l *Loader) Resolve(name string, o Overrides) (RawConfig, Wheel, error) {
	raw, err := l.LoadMerged(name)
	if err != nil {
		return RawConfig{}, Wheel{}, err
	}
	raw = applyOverrides(raw, o)
	w, err := Build(name, raw)
	if err != nil {
		return raw, Wheel{}, err
	}
	return raw, w, nil
}

func applyOverrides(raw RawConfig, o Overrides) RawConfig {
	return mergeRaw(raw, RawConfig{Spin: SpinCfg{
		MinRevolutions:  o.MinRevolutions,
		MaxRevolutions:  o.MaxRevolutions,
		AngularSpeed:    o.AngularSpeed,
		IndicatorOffset: o.IndicatorOffset,
	}})
}
