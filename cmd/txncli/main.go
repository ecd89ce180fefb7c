// Licensed under the MIT License. See LICENSE file in the project root for details.

// txncli is an interactive REPL for exercising the transaction manager
// against a single in-memory table. It is a learning and debugging tool,
// not a client for any real storage engine.
//
// Commands:
//
//	begin                         start a transaction, prints its id
//	insert <txn> <col>=<val>...   create a tuple, prints its slot index
//	write  <txn> <slot> <col>=<val>...   install a new before-image
//	read   <slot>                 print a slot's current columns
//	commit <txn>                  commit, prints the commit timestamp
//	abort  <txn>                  abort, rolling back its undo records
//	oldest                        print the current GC safe horizon
//	quit, exit
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/ferrodb/txnmgr/internal/chain"
	"github.com/ferrodb/txnmgr/internal/tuplestore"
	"github.com/ferrodb/txnmgr/internal/txn"
	"github.com/ferrodb/txnmgr/internal/txnmgr"
	"github.com/ferrodb/txnmgr/internal/undo"
)

var gc bool

func init() {
	flag.BoolVar(&gc, "gc", false, "enable the completed-transaction hand-off queue")
}

type cli struct {
	mgr   *txnmgr.Manager
	table *tuplestore.Table
	live  map[int64]*txn.Context // keyed by start time, as entered by the user
}

func newCLI() *cli {
	opts := []txnmgr.Option{}
	if gc {
		opts = append(opts, txnmgr.WithGC())
	}
	return &cli{
		mgr:   txnmgr.New(opts...),
		table: tuplestore.New("default"),
		live:  make(map[int64]*txn.Context),
	}
}

func parseAssignments(args []string) (map[int]any, error) {
	out := make(map[int]any)
	for _, a := range args {
		kv := strings.SplitN(a, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("expected col=val, got %q", a)
		}
		col, err := strconv.Atoi(kv[0])
		if err != nil {
			return nil, fmt.Errorf("bad column id %q: %w", kv[0], err)
		}
		val, err := strconv.ParseInt(kv[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", kv[1], err)
		}
		out[col] = val
	}
	return out, nil
}

func (c *cli) run() {
	fmt.Println("Transaction Manager CLI")
	fmt.Println("Commands: begin, insert, write, read, commit, abort, oldest, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "begin":
			tx, err := c.mgr.BeginTransaction()
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			c.live[tx.StartTime] = tx
			fmt.Printf("started %d (txn id %d)\n", tx.StartTime, tx.TxnID())

		case "insert":
			if len(args) < 2 {
				fmt.Println("usage: insert <txn> <col>=<val>...")
				continue
			}
			cols, err := parseAssignments(args[1:])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			slot := c.table.Insert(cols)
			fmt.Printf("inserted at slot %d\n", slot.Index)

		case "write":
			if len(args) < 3 {
				fmt.Println("usage: write <txn> <slot> <col>=<val>...")
				continue
			}
			tx, ok := c.txnByArg(args[0])
			if !ok {
				continue
			}
			idx, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				fmt.Println("bad slot:", err)
				continue
			}
			cols, err := parseAssignments(args[2:])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			slot := undo.Slot{Table: c.table, Index: idx}
			delta := c.table.Write(slot, cols)
			rec := undo.NewRecord(slot, delta, tx.TxnID())
			tx.Undo.Append(rec)
			chain.Install(slot, rec)
			fmt.Println("OK")

		case "read":
			if len(args) != 1 {
				fmt.Println("usage: read <slot>")
				continue
			}
			idx, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				fmt.Println("bad slot:", err)
				continue
			}
			slot := undo.Slot{Table: c.table, Index: idx}
			fmt.Printf("%v\n", c.table.Columns(slot))

		case "commit":
			if len(args) != 1 {
				fmt.Println("usage: commit <txn>")
				continue
			}
			tx, ok := c.txnByArg(args[0])
			if !ok {
				continue
			}
			ts := c.mgr.Commit(tx)
			delete(c.live, tx.StartTime)
			fmt.Printf("committed at %d\n", ts)

		case "abort":
			if len(args) != 1 {
				fmt.Println("usage: abort <txn>")
				continue
			}
			tx, ok := c.txnByArg(args[0])
			if !ok {
				continue
			}
			c.mgr.Abort(tx)
			delete(c.live, tx.StartTime)
			fmt.Println("aborted")

		case "oldest":
			fmt.Println(c.mgr.OldestTransactionStartTime())

		case "quit", "exit":
			fmt.Println("Goodbye!")
			return

		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}
	}
}

func (c *cli) txnByArg(arg string) (*txn.Context, bool) {
	start, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Println("bad txn id:", err)
		return nil, false
	}
	tx, ok := c.live[start]
	if !ok {
		fmt.Println("no such live transaction:", start)
		return nil, false
	}
	return tx, true
}

func main() {
	flag.Parse()

	c := newCLI()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived shutdown signal.")
		os.Exit(0)
	}()

	c.run()
}
