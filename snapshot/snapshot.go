// Package snapshot saves the whole record store to a single file and
// restores it.
//
// A snapshot is two framed blocks (see journal.MarshalEntry): "counter"
// holding the occupancy and "data" holding the data file verbatim. The
// file is compressed when its name ends with .gz, .zst or .br.
package snapshot

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/kjk/clientdb/atomicfile"
	"github.com/kjk/clientdb/clientstore"
	"github.com/kjk/clientdb/journal"
)

const (
	blockCounter = "counter"
	blockData    = "data"
)

type Snapshot struct {
	Occupancy int
	Data      []byte
	// when the snapshot was taken
	Time time.Time
}

// Marshal serializes the snapshot, uncompressed
func (sn *Snapshot) Marshal() []byte {
	var buf bytes.Buffer
	buf.Write(journal.MarshalEntry(blockCounter, sn.Time, []byte(strconv.Itoa(sn.Occupancy))))
	buf.Write(journal.MarshalEntry(blockData, sn.Time, sn.Data))
	return buf.Bytes()
}

// Unmarshal parses data created with Marshal
func Unmarshal(d []byte) (*Snapshot, error) {
	sn := &Snapshot{}
	hasCounter, hasData := false, false
	r := journal.NewReader(bytes.NewReader(d))
	for r.Next() {
		e := r.Entry()
		switch e.Op {
		case blockCounter:
			n, err := strconv.Atoi(string(e.Data))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: invalid counter '%s' in snapshot", clientstore.ErrCorruptState, e.Data)
			}
			sn.Occupancy = n
			sn.Time = e.Time
			hasCounter = true
		case blockData:
			sn.Data = e.Data
			hasData = true
		default:
			return nil, fmt.Errorf("%w: unknown block '%s' in snapshot", clientstore.ErrCorruptState, e.Op)
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", clientstore.ErrCorruptState, err)
	}
	if !hasCounter || !hasData {
		return nil, fmt.Errorf("%w: snapshot is missing counter or data", clientstore.ErrCorruptState)
	}
	return sn, nil
}

// Take reads the current state of the store. The store must pass Verify
func Take(s *clientstore.Store) (*Snapshot, error) {
	if err := s.Verify(); err != nil {
		return nil, err
	}
	n, err := s.Occupancy()
	if err != nil {
		return nil, err
	}
	d, err := s.Dump()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Occupancy: n,
		Data:      []byte(d),
		Time:      time.Now(),
	}, nil
}

// Save writes a snapshot of s to path
func Save(s *clientstore.Store, path string) error {
	sn, err := Take(s)
	if err != nil {
		return err
	}
	return sn.WriteFile(path)
}

// WriteFile atomically replaces path with the snapshot, compressed
// according to the extension of path
func (sn *Snapshot) WriteFile(path string) error {
	d, err := compress(path, sn.Marshal())
	if err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	return atomicfile.WriteFile(path, d, 0644)
}

// Load reads a snapshot written by Save
func Load(path string) (*Snapshot, error) {
	d, err := readFileMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(d)
}

// Restore replaces content of s with the snapshot at path
func Restore(s *clientstore.Store, path string) error {
	sn, err := Load(path)
	if err != nil {
		return err
	}
	return s.Restore(sn.Data, sn.Occupancy)
}
