package wheel

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// SimOptions controls one simulation run.
type SimOptions struct {
	Trials int    // number of full spin lifecycles
	Seed   uint64 // 0 => crypto source; otherwise shard k uses NewSeededRNG(Seed+k)
	Shards int    // parallel engines; <=0 means 1
}

// Stats summarizes integer samples.
type Stats struct {
	Mean   float64 `json:"mean"`
	Var    float64 `json:"var"`
	StdDev float64 `json:"stddev"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	P99    float64 `json:"p99"`
}

// SimReport is the per-slice tally of a simulation.
type SimReport struct {
	Trials      int       `json:"trials"`
	Payloads    []Payload `json:"payloads"`
	Counts      []int     `json:"counts"`
	Observed    []float64 `json:"observed"`
	Expected    []float64 `json:"expected"`
	ChiSquared  float64   `json:"chi_squared"`
	DF          int       `json:"df"`
	Revolutions Stats     `json:"revolutions"`
}

// Fits reports whether the observed counts are consistent with the weights at p = 0.001.
func (r SimReport) Fits() bool {
	if r.DF <= 0 {
		return true
	}
	return r.ChiSquared <= ChiSquaredCritical999(r.DF)
}

// calcStats computes mean/variance/percentiles for integer samples.
func calcStats(xs []int) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	var sum float64
	for _, v := range xs {
		sum += float64(v)
	}
	mean := sum / float64(n)

	// variance (population)
	var acc float64
	for _, v := range xs {
		d := float64(v) - mean
		acc += d * d
	}
	variance := acc / float64(n)

	cp := append([]int(nil), xs...)
	sort.Ints(cp)
	percentile := func(p float64) float64 {
		if n == 1 || p <= 0 {
			return float64(cp[0])
		}
		if p >= 1 {
			return float64(cp[n-1])
		}
		pos := p * float64(n-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i+1 >= n {
			return float64(cp[i])
		}
		return float64(cp[i])*(1-f) + float64(cp[i+1])*f
	}

	return Stats{
		Mean:   mean,
		Var:    variance,
		StdDev: math.Sqrt(variance),
		P50:    percentile(0.50),
		P90:    percentile(0.90),
		P99:    percentile(0.99),
	}
}

// chiSquared returns Pearson's statistic and its degrees of freedom.
// Zero-weight slices are left out; a hit on one makes the statistic +Inf.
func chiSquared(counts []int, weights []float64, trials int) (float64, int) {
	var stat float64
	cells := 0
	for i, w := range weights {
		if w <= 0 {
			if counts[i] > 0 {
				return math.Inf(1), len(weights) - 1
			}
			continue
		}
		cells++
		exp := w * float64(trials)
		d := float64(counts[i]) - exp
		stat += d * d / exp
	}
	return stat, cells - 1
}

var chiSquared999 = [...]float64{
	10.828, 13.816, 16.266, 18.467, 20.515, 22.458, 24.322, 26.124, 27.877, 29.588,
	31.264, 32.909, 34.528, 36.123, 37.697, 39.252, 40.790, 42.312, 43.820, 45.315,
	46.797, 48.268, 49.728, 51.179, 52.620, 54.052, 55.476, 56.892, 58.301, 59.703,
}

// ChiSquaredCritical999 is the chi-squared critical value at p = 0.001.
// Tabulated up to 30 degrees of freedom, Wilson–Hilferty beyond.
func ChiSquaredCritical999(df int) float64 {
	if df <= 0 {
		return 0
	}
	if df <= len(chiSquared999) {
		return chiSquared999[df-1]
	}
	const z = 3.0902
	k := float64(df)
	h := 2 / (9 * k)
	return k * math.Pow(1-h+z*math.Sqrt(h), 3)
}

var errTableChanged = errors.New("table changed during run")

type shardResult struct {
	counts []int
	revs   []int
	err    error
}

// simulateShard runs trials spins on a private engine sharing table.
func simulateShard(table *Table, cfg SpinConfig, rng RandomSource, trials int) shardResult {
	eng, err := NewEngine(table, cfg, WithRNG(rng))
	if err != nil {
		return shardResult{err: err}
	}
	res := shardResult{counts: make([]int, table.Len()), revs: make([]int, 0, trials)}
	for i := 0; i < trials; i++ {
		out, err := eng.Spin()
		if err != nil {
			res.err = err
			return res
		}
		if _, err := eng.Complete(out.SliceIndex); err != nil {
			res.err = err
			return res
		}
		if out.SliceIndex >= len(res.counts) {
			res.err = errTableChanged
			return res
		}
		res.counts[out.SliceIndex]++
		res.revs = append(res.revs, out.Revolutions)
	}
	return res
}

// Simulate emulates opts.Trials spins and compares the observed prize
// frequencies with the configured weights.
func Simulate(table *Table, cfg SpinConfig, opts SimOptions) (SimReport, error) {
	if !table.IsValid() {
		return SimReport{}, ErrInvalidTable
	}
	if opts.Trials <= 0 {
		return SimReport{}, nil
	}
	shards := opts.Shards
	if shards <= 0 {
		shards = 1
	}
	if shards > opts.Trials {
		shards = opts.Trials
	}

	pool, err := ants.NewPool(shards)
	if err != nil {
		return SimReport{}, fmt.Errorf("create simulation pool: %w", err)
	}
	defer pool.Release()

	results := make([]shardResult, shards)
	var wg sync.WaitGroup
	for k := 0; k < shards; k++ {
		n := opts.Trials / shards
		if k < opts.Trials%shards {
			n++
		}
		var rng RandomSource
		if opts.Seed == 0 {
			rng = DefaultRNG()
		} else {
			rng = NewSeededRNG(opts.Seed + uint64(k))
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[k] = simulateShard(table, cfg, rng, n)
		}); err != nil {
			wg.Done()
			results[k] = shardResult{err: err}
		}
	}
	wg.Wait()

	slices := table.Slices()
	report := SimReport{
		Trials:   opts.Trials,
		Payloads: make([]Payload, len(slices)),
		Counts:   make([]int, len(slices)),
		Observed: make([]float64, len(slices)),
		Expected: make([]float64, len(slices)),
	}
	var revs []int
	for _, r := range results {
		if r.err != nil {
			return SimReport{}, fmt.Errorf("simulate: %w", r.err)
		}
		// the table may have been reconfigured mid-run
		if len(r.counts) != len(slices) {
			return SimReport{}, fmt.Errorf("simulate: %w", errTableChanged)
		}
		for i, c := range r.counts {
			report.Counts[i] += c
		}
		revs = append(revs, r.revs...)
	}
	for i, s := range slices {
		report.Payloads[i] = s.Payload
		report.Expected[i] = s.Weight
		report.Observed[i] = float64(report.Counts[i]) / float64(opts.Trials)
	}
	report.ChiSquared, report.DF = chiSquared(report.Counts, report.Expected, opts.Trials)
	report.Revolutions = calcStats(revs)
	return report, nil
}
