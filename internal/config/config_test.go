package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const defaultYAML = `
version: "1"
spin:
  min_revolutions: 3
  max_revolutions: 10
  angular_speed: 360
  indicator_offset: 3
slices:
  - {payload: a, label: "A", weight: 0.5}
  - {payload: b, label: "B", weight: 0.25}
  - {payload: c, label: "C", weight: 0.25}
`

const weekendYAML = `
version: "2"
spin:
  max_revolutions: 6
slices:
  - {payload: x, weight: 0.6}
  - {payload: y, weight: 0.4}
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	dir := t.TempDir()
	l := NewLoader(dir)
	writeFile(t, l.Paths().DefaultPath(), defaultYAML)
	writeFile(t, l.Paths().WheelPath("weekend"), weekendYAML)
	return l
}

func TestLoadMergedDefault(t *testing.T) {
	l := newTestLoader(t)
	raw, err := l.LoadMerged("default")
	if err != nil {
		t.Fatal(err)
	}
	w, err := Build("default", raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Slices) != 3 || w.Slices[0].Payload != "a" || w.Slices[0].Display.Label != "A" {
		t.Fatalf("slices=%+v", w.Slices)
	}
	if w.Spin.MinRevolutions != 3 || w.Spin.MaxRevolutions != 10 || w.Spin.IndicatorOffset != 3 {
		t.Fatalf("spin=%+v", w.Spin)
	}
}

func TestLoadMergedWheelOverridesDefault(t *testing.T) {
	l := newTestLoader(t)
	raw, err := l.LoadMerged("weekend")
	if err != nil {
		t.Fatal(err)
	}
	w, err := Build("weekend", raw)
	if err != nil {
		t.Fatal(err)
	}
	if w.Version != "2" {
		t.Fatalf("version=%q", w.Version)
	}
	// max from wheel, the rest inherited
	if w.Spin.MinRevolutions != 3 || w.Spin.MaxRevolutions != 6 || w.Spin.AngularSpeed != 360 {
		t.Fatalf("spin=%+v", w.Spin)
	}
	if len(w.Slices) != 2 || w.Slices[0].Payload != "x" {
		t.Fatalf("slices must be replaced wholesale: %+v", w.Slices)
	}
}

func TestLoadMergedMissingWheelFallsBackToDefault(t *testing.T) {
	l := newTestLoader(t)
	raw, err := l.LoadMerged("nope")
	if err != nil {
		t.Fatal(err)
	}
	if len(raw.Slices) != 3 {
		t.Fatalf("expected default slices, got %d", len(raw.Slices))
	}
}

func TestLoadMergedBadYAML(t *testing.T) {
	l := newTestLoader(t)
	writeFile(t, l.Paths().WheelPath("broken"), "slices: [: nope")
	if _, err := l.LoadMerged("broken"); err == nil {
		t.Fatalf("malformed yaml must error")
	}
}

func TestLoaderCacheAndInvalidate(t *testing.T) {
	l := newTestLoader(t)
	if _, err := l.LoadMerged("weekend"); err != nil {
		t.Fatal(err)
	}
	writeFile(t, l.Paths().WheelPath("weekend"), strings.Replace(weekendYAML, `version: "2"`, `version: "3"`, 1))

	raw, _ := l.LoadMerged("weekend")
	if raw.Version != "2" {
		t.Fatalf("expected cached version 2, got %q", raw.Version)
	}
	l.Invalidate()
	raw, _ = l.LoadMerged("weekend")
	if raw.Version != "3" {
		t.Fatalf("expected reloaded version 3, got %q", raw.Version)
	}
}

func ptr[T any](v T) *T { return &v }

func TestValidateRawCollectsAllProblems(t *testing.T) {
	raw := RawConfig{
		Spin: SpinCfg{
			MinRevolutions:  ptr(0),
			MaxRevolutions:  ptr(-1),
			AngularSpeed:    ptr(0.0),
			IndicatorOffset: ptr(-2.0),
		},
		Slices: []SliceCfg{
			{Payload: "", Weight: ptr(0.5)},
			{Payload: "b", Weight: ptr(1.5)},
			{Payload: "c"},
		},
	}
	err := ValidateRaw(raw)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{
		"spin.min_revolutions must be >= 1",
		"spin.max_revolutions must be >= spin.min_revolutions",
		"spin.angular_speed must be > 0",
		"spin.indicator_offset must be >= 0",
		"slices[0].payload is required",
		"slices[1].weight must be in [0,1]",
		"slices[2].weight is required",
		"must sum to 1",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestValidateRawOffsetWiderThanSlice(t *testing.T) {
	raw := RawConfig{
		Spin: SpinCfg{MinRevolutions: ptr(1), MaxRevolutions: ptr(2), AngularSpeed: ptr(90.0), IndicatorOffset: ptr(180.0)},
		Slices: []SliceCfg{
			{Payload: "a", Weight: ptr(0.5)},
			{Payload: "b", Weight: ptr(0.5)},
		},
	}
	if err := ValidateRaw(raw); err == nil || !strings.Contains(err.Error(), "indicator_offset") {
		t.Fatalf("expected offset error, got %v", err)
	}
}

func TestResolveAppliesOverrides(t *testing.T) {
	l := newTestLoader(t)
	_, w, err := l.Resolve("default", Overrides{MaxRevolutions: ptr(4), AngularSpeed: ptr(720.0)})
	if err != nil {
		t.Fatal(err)
	}
	if w.Spin.MaxRevolutions != 4 || w.Spin.AngularSpeed != 720 || w.Spin.MinRevolutions != 3 {
		t.Fatalf("spin=%+v", w.Spin)
	}
	if _, _, err := l.Resolve("default", Overrides{MinRevolutions: ptr(20)}); err == nil {
		t.Fatalf("min above max must fail")
	}
}

func TestFileWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "w.yaml")
	writeFile(t, path, "a")

	var hits atomic.Int32
	w := NewFileWatcher([]string{path}, 10*time.Millisecond, func(string) { hits.Add(1) })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for hits.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
	if hits.Load() == 0 {
		t.Fatalf("watcher never fired")
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("WHEEL_NAME", "weekend")
	t.Setenv("WHEEL_SEED", "17")
	s, err := LoadSettings()
	if err != nil {
		t.Fatal(err)
	}
	if s.WheelName != "weekend" || s.Seed != 17 || s.HTTPAddr != ":8080" || s.WatchInterval != 2*time.Second {
		t.Fatalf("settings=%+v", s)
	}
}

func TestLoadSettingsBadValue(t *testing.T) {
	t.Setenv("WHEEL_WATCH_INTERVAL", "soon")
	if _, err := LoadSettings(); err == nil {
		t.Fatalf("expected parse error")
	}
}
