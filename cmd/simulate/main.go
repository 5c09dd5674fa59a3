// Command simulate spins a configured wheel many times and prints how the
// observed prize frequencies compare with the configured weights.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/xtding233/wheel-backend/internal/config"
	"github.com/xtding233/wheel-backend/internal/wheel"
)

func main() {
	conf := flag.String("conf", "configs", "config base dir (contains wheels/)")
	name := flag.String("wheel", "default", "wheel name")
	trials := flag.Int("trials", 100_000, "number of spins")
	seed := flag.Uint64("seed", 0, "rng seed; 0 uses the crypto source")
	shards := flag.Int("shards", 8, "parallel engines")
	flag.Parse()

	_, w, err := config.NewLoader(*conf).Resolve(*name, config.Overrides{})
	if err != nil {
		log.Fatalf("resolve wheel %q: %v", *name, err)
	}
	table := wheel.NewTable()
	if res := table.Configure(w.Slices); !res.Valid {
		log.Fatalf("wheel %q: %s", *name, res)
	}

	rep, err := wheel.Simulate(table, w.Spin, wheel.SimOptions{Trials: *trials, Seed: *seed, Shards: *shards})
	if err != nil {
		log.Fatalf("simulate: %v", err)
	}

	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(rep, "", "  ")
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	fmt.Println(string(out))
	if !rep.Fits() {
		fmt.Fprintf(os.Stderr, "chi-squared %.3f exceeds critical %.3f (df=%d)\n",
			rep.ChiSquared, wheel.ChiSquaredCritical999(rep.DF), rep.DF)
		os.Exit(1)
	}
}
