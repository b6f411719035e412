// genesis-matrix: builds a genesis for every known network and a range of
// gas limits in parallel and prints validation results and fingerprints.
// Handy for eyeballing threshold changes in the validator.
//
// Run from the module root:
//
//	go run ./scripts/genesis-matrix
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
	"github.com/Mohsinsiddi/avagen/internal/genesis"
	"github.com/Mohsinsiddi/avagen/internal/network"
)

// ── config ────────────────────────────────────────────────────────────────────

const owner = "0x802D8097eC1D49808F3c2c866020442891adde57"

var gasLimits = []int64{8_000_000, 15_000_000, 20_000_000, 40_000_000}

// Fixed so fingerprints are comparable between runs.
var genesisTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ── types ─────────────────────────────────────────────────────────────────────

type result struct {
	network  string
	gasLimit int64
	errors   int
	warnings []string
	hash     string
}

// ── main ──────────────────────────────────────────────────────────────────────

func main() {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)

	for _, n := range network.NewRegistry().All() {
		for _, gl := range gasLimits {
			wg.Add(1)
			go func(n network.Network, gl int64) {
				defer wg.Done()
				r := evaluate(n, gl)
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}(n, gl)
		}
	}

	wg.Wait()

	printTable(results)
}

// evaluate builds a draft that reuses the network's own chain ID, so the
// collision warning shows up in every row.
func evaluate(n network.Network, gasLimit int64) result {
	store := confstore.New(genesis.Defaults(genesis.DefaultOptions{
		OwnerAddress: owner,
		ChainID:      n.ChainID,
	}))
	r := result{network: n.Name, gasLimit: gasLimit}
	if err := store.SetValue("gasLimit", confstore.Int(gasLimit)); err != nil {
		r.warnings = []string{err.Error()}
		return r
	}

	form, res := genesis.Check(store.SnapshotNested())
	r.errors = len(res.Errors)
	r.warnings = append(r.warnings, res.WarningPaths()...)
	if !res.Ready() {
		return r
	}
	doc, err := genesis.Build(form, genesis.BuildOptions{Now: genesisTime, Decimals: 18})
	if err != nil {
		r.hash = "build: " + err.Error()
		return r
	}
	data, err := genesis.Encode(doc)
	if err != nil {
		r.hash = "encode: " + err.Error()
		return r
	}
	r.hash = shortHash(genesis.Hash(data))
	return r
}

// ── output ────────────────────────────────────────────────────────────────────

func printTable(results []result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.network != b.network {
			return a.network < b.network
		}
		return a.gasLimit < b.gasLimit
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "NETWORK\tGAS LIMIT\tERRORS\tWARNINGS\tKECCAK")
	fmt.Fprintln(w, strings.Repeat("-", 10)+"\t"+
		strings.Repeat("-", 10)+"\t"+
		strings.Repeat("-", 6)+"\t"+
		strings.Repeat("-", 24)+"\t"+
		strings.Repeat("-", 14))

	lastNetwork := ""
	for _, r := range results {
		if r.network != lastNetwork {
			if lastNetwork != "" {
				fmt.Fprintln(w, "\t\t\t\t") // blank separator between networks
			}
			lastNetwork = r.network
		}
		hash := r.hash
		if hash == "" {
			hash = "—"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			r.network, r.gasLimit, r.errors, strings.Join(r.warnings, ","), hash)
	}
	w.Flush()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func shortHash(h string) string {
	if len(h) < 14 {
		return h
	}
	return h[:8] + "…" + h[len(h)-4:]
}
