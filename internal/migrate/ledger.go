package migrate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blackwell-systems/bookdesk/internal/util"
)

// LedgerEntry records one rewritten record.
type LedgerEntry struct {
	Resource  string    `json:"resource"`
	ID        string    `json:"id"`
	Field     string    `json:"field"`
	Values    []string  `json:"values"`
	Timestamp time.Time `json:"timestamp"`
}

func (e LedgerEntry) key() string { return e.Resource + "\x00" + e.ID }

// Ledger is an append-only JSONL log of migrated records. The file is
// read once, on the first lookup.
type Ledger struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	seen map[string]bool
}

// DefaultLedgerPath is $XDG_DATA_HOME/bookdesk/migrated.jsonl, falling back
// to ~/.local/share.
func DefaultLedgerPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "bookdesk", "migrated.jsonl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "bookdesk", "migrated.jsonl")
}

// OpenLedger prepares the ledger at path, creating its directory.
func OpenLedger(path string) (*Ledger, error) {
	if err := util.EnsureParent(path, 0750); err != nil {
		return nil, fmt.Errorf("ledger dir: %w", err)
	}
	return &Ledger{path: path, now: time.Now}, nil
}

// Path returns the ledger file.
func (l *Ledger) Path() string { return l.path }

// Append writes an entry and marks the record as migrated.
func (l *Ledger) Append(e LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.Timestamp = l.now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("appending to ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if l.seen != nil {
		l.seen[e.key()] = true
	}
	return nil
}

// Contains reports whether the record has already been migrated.
func (l *Ledger) Contains(resource, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seen == nil {
		entries, err := l.read()
		if err != nil {
			return false, err
		}
		l.seen = make(map[string]bool, len(entries))
		for _, e := range entries {
			l.seen[e.key()] = true
		}
	}
	return l.seen[LedgerEntry{Resource: resource, ID: id}.key()], nil
}

// Entries returns every entry on disk. Malformed lines are skipped.
func (l *Ledger) Entries() ([]LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

func (l *Ledger) read() ([]LedgerEntry, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []LedgerEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e LedgerEntry
		if json.Unmarshal(sc.Bytes(), &e) != nil || e.ID == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}
