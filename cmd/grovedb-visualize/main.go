// Command grovedb-visualize is a thin, read-only inspector over a
// GroveDB store: it prints each key of one subtree with its element
// kind and, with
// -diagnose, runs a hash-mismatch sweep over it. It is a debugging aid
// external to the core library, not something core code depends on.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dashpay/grovedb-sub005"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/internal/glog"
	"github.com/dashpay/grovedb-sub005/merk"
	"github.com/dashpay/grovedb-sub005/storage"
	"github.com/dashpay/grovedb-sub005/storage/memstore"
	"github.com/dashpay/grovedb-sub005/storage/pebblestore"
)

func main() {
	dbDir := flag.String("db", "", "pebble data directory (empty uses a throwaway in-memory store)")
	pathFlag := flag.String("path", "", "comma-separated subtree path segments (empty is the root subtree)")
	diagnose := flag.Bool("diagnose", false, "run a hash-mismatch sweep over the subtree instead of listing it")
	flag.Parse()

	store, err := openStore(*dbDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "grovedb-visualize:", err)
		os.Exit(1)
	}
	defer store.Close()

	db := grovedb.Open(store)
	path := splitPath(*pathFlag)
	formatter := &glog.TextFormatter{}

	if *diagnose {
		runDiagnose(db, path, formatter)
		return
	}
	runList(db, path, formatter)
}

func openStore(dir string) (storage.Storage, error) {
	if dir == "" {
		return memstore.New(), nil
	}
	return pebblestore.Open(dir)
}

func splitPath(s string) [][]byte {
	if s == "" {
		return nil
	}
	segs := strings.Split(s, ",")
	out := make([][]byte, len(segs))
	for i, seg := range segs {
		out[i] = []byte(seg)
	}
	return out
}

func runList(db *grovedb.DB, path [][]byte, formatter *glog.TextFormatter) {
	handle, _, err := db.OpenMerkAt(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "grovedb-visualize:", err)
		os.Exit(1)
	}
	defer handle.Release()

	_, results, _, err := merk.GenerateProof(handle.Tree(), []merk.Bound{{}}, nil, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "grovedb-visualize:", err)
		os.Exit(1)
	}

	for _, r := range results {
		el, err := element.Decode(r.Value)
		kind := "?"
		if err == nil {
			kind = fmt.Sprintf("%d", el.Kind())
		}
		fmt.Println(formatter.Format(glog.LogEntry{
			Timestamp: time.Now(),
			Level:     glog.INFO,
			Message:   "entry",
			Fields: map[string]interface{}{
				"key":  string(r.Key),
				"kind": kind,
			},
		}))
	}
}

func runDiagnose(db *grovedb.DB, path [][]byte, formatter *glog.TextFormatter) {
	mismatches, _, err := db.DiagnoseHashMismatch(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "grovedb-visualize:", err)
		os.Exit(1)
	}
	if len(mismatches) == 0 {
		fmt.Println(formatter.Format(glog.LogEntry{
			Timestamp: time.Now(),
			Level:     glog.INFO,
			Message:   "no hash mismatches found",
		}))
		return
	}
	for _, m := range mismatches {
		fmt.Println(formatter.Format(glog.LogEntry{
			Timestamp: time.Now(),
			Level:     glog.ERROR,
			Message:   "hash mismatch",
			Fields: map[string]interface{}{
				"key":        string(m.Key),
				"field":      m.Field,
				"stored":     fmt.Sprintf("%x", m.Stored),
				"recomputed": fmt.Sprintf("%x", m.Recomputed),
			},
		}))
	}
	os.Exit(1)
}
