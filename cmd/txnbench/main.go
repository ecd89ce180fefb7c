// Licensed under the MIT License. See LICENSE file in the project root for details.

// txnbench drives the transaction manager through configurable workloads
// of begin/write/commit and begin/write/abort cycles against an
// in-memory tuple store, and reports throughput and latency percentiles.
//
// Usage:
//
//	go run ./cmd/txnbench --goroutines 8 --txns-per-goroutine 10000 --abort-rate 0.1
package main

import (
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/ferrodb/txnmgr/internal/chain"
	"github.com/ferrodb/txnmgr/internal/obslog"
	"github.com/ferrodb/txnmgr/internal/tuplestore"
	"github.com/ferrodb/txnmgr/internal/txnmgr"
	"github.com/ferrodb/txnmgr/internal/undo"
)

var (
	goroutines       int
	txnsPerGoroutine int
	abortRate        float64
	numTuples        int
	enableGC         bool
)

func init() {
	flag.IntVar(&goroutines, "goroutines", 8, "number of concurrent workers")
	flag.IntVar(&txnsPerGoroutine, "txns-per-goroutine", 10000, "transactions run by each worker")
	flag.Float64Var(&abortRate, "abort-rate", 0.0, "fraction of transactions aborted instead of committed, in [0,1]")
	flag.IntVar(&numTuples, "tuples", 1000, "number of tuples in the table workers contend over")
	flag.BoolVar(&enableGC, "gc", false, "enable the completed-transaction hand-off queue")
}

func fatalf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func main() {
	flag.Parse()
	if abortRate < 0 || abortRate > 1 {
		fatalf("--abort-rate must be within [0,1], got %v", abortRate)
	}

	opts := []txnmgr.Option{txnmgr.WithLogger(obslog.Nop())}
	if enableGC {
		opts = append(opts, txnmgr.WithGC())
	}
	mgr := txnmgr.New(opts...)

	table := tuplestore.New("bench")
	slots := make([]undo.Slot, numTuples)
	for i := range slots {
		slots[i] = table.Insert(map[int]any{0: int64(0)})
	}

	var wg sync.WaitGroup
	start := time.Now()
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < txnsPerGoroutine; i++ {
				runOne(mgr, table, slots, rng)
			}
		}(int64(g) + 1)
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := goroutines * txnsPerGoroutine
	fmt.Printf("transactions: %d in %v (%.0f txn/sec)\n", total, elapsed, float64(total)/elapsed.Seconds())

	m := mgr.Metrics()
	fmt.Printf("commits=%d aborts=%d rollbacks_applied=%d rollbacks_abandoned=%d\n",
		m.Counters.Commits.Load(), m.Counters.Aborts.Load(),
		m.Counters.RollbacksApplied.Load(), m.Counters.RollbacksAbandoned.Load())
	report := m.CommitLatency.Stats()
	fmt.Printf("commit latency: min=%v p50=%v p99=%v max=%v\n", report.Min, report.P50, report.P99, report.Max)
}

func runOne(mgr *txnmgr.Manager, table *tuplestore.Table, slots []undo.Slot, rng *rand.Rand) {
	tx, err := mgr.BeginTransaction()
	if err != nil {
		fatalf("begin failed: %v", err)
	}

	slot := slots[rng.Intn(len(slots))]
	current := table.Columns(slot)[0].(int64)
	delta := table.Write(slot, map[int]any{0: current + 1})
	rec := undo.NewRecord(slot, delta, tx.TxnID())
	tx.Undo.Append(rec)
	chain.Install(slot, rec)

	if rng.Float64() < abortRate {
		mgr.Abort(tx)
		return
	}
	mgr.Commit(tx)
}
