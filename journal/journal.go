// Package journal is an append-only log of record store operations.
//
// Each operation is one framed entry (see MarshalEntry) whose body is
// a toon-encoded map of the operation's values. Files rotate daily:
// entries go to dir/YYYY-MM-DD.txt.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/toon-format/toon-go"
)

type Journal struct {
	Dir string

	// returns current time, can be over-written in tests
	Now func() time.Time

	mu           sync.Mutex
	path         string
	creationTime time.Time
	file         *os.File
}

func isSameDay(t1, t2 time.Time) bool {
	return t1.Year() == t2.Year() && t1.YearDay() == t2.YearDay()
}

// PathForDay returns path of the journal file for day of t
func (j *Journal) PathForDay(t time.Time) string {
	name := t.UTC().Format("2006-01-02") + ".txt"
	return filepath.Join(j.Dir, name)
}

// Open creates the journal directory. Files are opened on first Append
func Open(dir string) (*Journal, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(absDir, 0755); err != nil {
		return nil, err
	}
	return &Journal{
		Dir: absDir,
		Now: time.Now,
	}, nil
}

func (j *Journal) close() error {
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

func (j *Journal) reopenIfNeeded(now time.Time) error {
	if j.file != nil && isSameDay(j.creationTime, now) {
		return nil
	}
	if err := j.close(); err != nil {
		return err
	}
	j.path = j.PathForDay(now)
	j.creationTime = now
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	j.file = f
	return nil
}

func encodeVals(vals []any) ([]byte, error) {
	n := len(vals)
	if n%2 != 0 {
		return nil, fmt.Errorf("invalid number of args: %d. Should be multiple of 2", n)
	}
	if n == 0 {
		return nil, nil
	}
	m := map[string]any{}
	for i := 0; i < n; i += 2 {
		k, ok := vals[i].(string)
		if !ok {
			return nil, fmt.Errorf("key at position %d is %T, not string", i, vals[i])
		}
		m[k] = vals[i+1]
	}
	return toon.Marshal(m)
}

// Append writes an entry for op with key/value pairs in vals.
// it's safe to call on nil receiver
func (j *Journal) Append(op string, vals ...any) error {
	if j == nil {
		return nil
	}
	d, err := encodeVals(vals)
	if err != nil {
		return fmt.Errorf("journal: %s: %w", op, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	// files are named by UTC day, rotation must agree
	now := j.Now().UTC()
	if err = j.reopenIfNeeded(now); err != nil {
		return fmt.Errorf("journal: open '%s': %w", j.PathForDay(now), err)
	}
	if _, err = j.file.Write(MarshalEntry(op, now, d)); err != nil {
		return fmt.Errorf("journal: write '%s': %w", j.path, err)
	}
	return j.file.Sync()
}

// Close closes the current file
// it's safe to call on nil receiver
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.close()
}

// ReadDay returns all entries written on day of t
func (j *Journal) ReadDay(t time.Time) ([]Entry, error) {
	f, err := os.Open(j.PathForDay(t))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAll(f)
}
