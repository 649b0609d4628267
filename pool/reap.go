package pool

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ReapOldLogs best-effort prunes dispatch logs under root (a spy's
// "<output>/<spy>" directory, one subdirectory per event stem). It is run
// once at Supervisor startup, never during dispatch, and never returns an
// error that aborts startup — failures are logged and the walk continues.
//
// maxAgeDays <= 0 disables age-based pruning; maxBackups <= 0 disables
// count-based pruning. Both may apply together: age pruning runs first,
// then count pruning trims whatever remains in each stem directory.
func ReapOldLogs(root string, maxAgeDays, maxBackups int) {
	if maxAgeDays <= 0 && maxBackups <= 0 {
		return
	}

	stemDirs, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[WARN] (pool) reap: reading %q: %s", root, err)
		}
		return
	}

	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)

	for _, sd := range stemDirs {
		if !sd.IsDir() {
			continue
		}
		dir := filepath.Join(root, sd.Name())
		reapStemDir(dir, cutoff, maxAgeDays, maxBackups)
	}
}

func reapStemDir(dir string, cutoff time.Time, maxAgeDays, maxBackups int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("[WARN] (pool) reap: reading %q: %s", dir, err)
		return
	}

	var kept []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if maxAgeDays > 0 {
			info, err := e.Info()
			if err != nil {
				log.Printf("[WARN] (pool) reap: stat %q: %s", filepath.Join(dir, e.Name()), err)
				continue
			}
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
					log.Printf("[WARN] (pool) reap: removing %q: %s", filepath.Join(dir, e.Name()), err)
				}
				continue
			}
		}
		kept = append(kept, e)
	}

	if maxBackups <= 0 || len(kept) <= maxBackups {
		return
	}

	// Filenames are "<unixnano>.log", so lexicographic order matches
	// chronological order; oldest-first lets us drop a leading slice.
	sort.Slice(kept, func(i, j int) bool { return kept[i].Name() < kept[j].Name() })

	excess := len(kept) - maxBackups
	for _, e := range kept[:excess] {
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			log.Printf("[WARN] (pool) reap: removing %q: %s", filepath.Join(dir, e.Name()), err)
		}
	}
}
