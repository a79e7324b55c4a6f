package clientstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"
	"github.com/kjk/clientdb/journal"
	"github.com/kjk/clientdb/log"
)

func openTestStore(t *testing.T) *Store {
	s := &Store{
		DataDir: t.TempDir(),
	}
	err := OpenStore(s)
	assert.NoError(t, err)
	return s
}

func mustOccupancy(t *testing.T, s *Store) int {
	n, err := s.Occupancy()
	assert.NoError(t, err)
	return n
}

func mustDump(t *testing.T, s *Store) string {
	d, err := s.Dump()
	assert.NoError(t, err)
	return d
}

func mustLookup(t *testing.T, s *Store, name string) bool {
	found, err := s.Lookup(name)
	assert.NoError(t, err)
	return found
}

func TestOpenStoreBootstraps(t *testing.T) {
	s := openTestStore(t)
	assert.Equal(t, 0, mustOccupancy(t, s))
	assert.Equal(t, Header(), mustDump(t, s))

	d, err := os.ReadFile(s.CounterFilePath())
	assert.NoError(t, err)
	assert.Equal(t, "0", string(d))
	assert.Equal(t, filepath.Join(s.DataDir, DefaultDataFileName), s.DataFilePath())
}

func TestOpenStoreNoDataDir(t *testing.T) {
	err := OpenStore(&Store{})
	assert.Error(t, err)
}

func TestOpenStoreKeepsRecords(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Insert("Jane", "A123456", 31590)
	assert.NoError(t, err)

	s2 := &Store{DataDir: s.DataDir}
	assert.NoError(t, OpenStore(s2))
	assert.Equal(t, 1, mustOccupancy(t, s2))
	assert.True(t, mustLookup(t, s2, "Jane"))
}

func TestOpenStoreRewritesWhenCounterIsZero(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Insert("Jane", "A123456", 31590)
	assert.NoError(t, err)
	assert.NoError(t, os.WriteFile(s.CounterFilePath(), []byte("0"), 0644))

	s2 := &Store{DataDir: s.DataDir}
	assert.NoError(t, OpenStore(s2))
	assert.Equal(t, Header(), mustDump(t, s2))
}

func TestScenario(t *testing.T) {
	s := openTestStore(t)

	occ, err := s.Insert("Jane Doe", "A123456", 31590)
	assert.NoError(t, err)
	assert.Equal(t, 1, occ)
	occ, err = s.Insert("John Smith", "B654321", 72288)
	assert.NoError(t, err)
	assert.Equal(t, 2, occ)

	assert.True(t, mustLookup(t, s, "Jane Doe"))
	assert.False(t, mustLookup(t, s, "Mary"))

	assert.NoError(t, s.Reset())
	assert.Equal(t, 0, mustOccupancy(t, s))
	assert.False(t, mustLookup(t, s, "Jane Doe"))
}

func TestInsertSequence(t *testing.T) {
	s := openTestStore(t)
	const n = 25
	for i := 1; i <= n; i++ {
		occ, err := s.Insert(fmt.Sprintf("client%d", i), fmt.Sprintf("A%d", i), 10100+i)
		assert.NoError(t, err)
		assert.Equal(t, i, occ)
	}
	assert.Equal(t, n, mustOccupancy(t, s))

	recs, err := s.Records()
	assert.NoError(t, err)
	assert.Equal(t, n, len(recs))
	for i, r := range recs {
		assert.Equal(t, i+1, r.Occupant)
		assert.Equal(t, fmt.Sprintf("client%d", i+1), r.Name)
		assert.Equal(t, 10101+i, r.Birthday)
	}
	assert.NoError(t, s.Verify())
}

func TestRoundTripInDump(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Insert("Jane", "A123456", 31590)
	assert.NoError(t, err)

	assert.True(t, mustLookup(t, s, "Jane"))
	d := mustDump(t, s)
	exp := Header() + "00000001\t\t\tJane           \t\t\tA123456  \t\t\t31590 \t\t\t\n"
	assert.Equal(t, exp, d)
}

func TestTruncation(t *testing.T) {
	s := openTestStore(t)
	long := "Maximilian-Alexander"
	_, err := s.Insert(long, "ID", 1)
	assert.NoError(t, err)

	d := mustDump(t, s)
	assert.True(t, strings.Contains(d, "Maximilian-Alex\t"))
	assert.False(t, strings.Contains(d, long))
	assert.True(t, mustLookup(t, s, "Maximilian-Alex"))
	assert.False(t, mustLookup(t, s, long))

	recs, err := s.Records()
	assert.NoError(t, err)
	assert.Equal(t, "Maximilian-Alex", recs[0].Name)
}

func TestLookupMatchesAnyField(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Insert("Jane", "A999", 31590)
	assert.NoError(t, err)

	assert.True(t, mustLookup(t, s, "999"))
	assert.True(t, mustLookup(t, s, "3159"))
	assert.True(t, mustLookup(t, s, "00000001"))
	assert.False(t, mustLookup(t, s, "B999"))
}

func TestLookupIgnoresHeader(t *testing.T) {
	s := openTestStore(t)
	assert.False(t, mustLookup(t, s, "Client Name"))
	assert.False(t, mustLookup(t, s, "---"))
	assert.False(t, mustLookup(t, s, "Occupant"))

	_, err := s.Insert("Jane", "A1", 1)
	assert.NoError(t, err)
	assert.False(t, mustLookup(t, s, "Birthday"))
}

func TestResetIdempotent(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Insert("Jane", "A1", 1)
	assert.NoError(t, err)

	assert.NoError(t, s.Reset())
	d1 := mustDump(t, s)
	assert.NoError(t, s.Reset())
	d2 := mustDump(t, s)

	assert.Equal(t, Header(), d1)
	assert.Equal(t, d1, d2)
	assert.Equal(t, 0, mustOccupancy(t, s))

	occ, err := s.Insert("John", "B2", 2)
	assert.NoError(t, err)
	assert.Equal(t, 1, occ)
}

func TestDumpTokens(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Insert("Jane", "A123456", 31590)
	assert.NoError(t, err)

	d, err := s.DumpTokens()
	assert.NoError(t, err)
	exp := "OccupantClientNameClientI.D.Birthday" + strings.Repeat("-", 75) + "00000001JaneA12345631590"
	assert.Equal(t, exp, d)
}

func TestInvalidField(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Insert("Jane\nDoe", "A1", 1)
	assert.True(t, errors.Is(err, ErrInvalidField))
	_, err = s.Insert("Jane", "A\t1", 1)
	assert.True(t, errors.Is(err, ErrInvalidField))
	assert.Equal(t, 0, mustOccupancy(t, s))
}

func TestCorruptCounter(t *testing.T) {
	s := openTestStore(t)
	for _, content := range []string{"", "abc", "-3", "1.5"} {
		assert.NoError(t, os.WriteFile(s.CounterFilePath(), []byte(content), 0644))
		_, err := s.Occupancy()
		assert.True(t, errors.Is(err, ErrCorruptState), "content: %q", content)
		_, err = s.Insert("Jane", "A1", 1)
		assert.True(t, errors.Is(err, ErrCorruptState))

		err = OpenStore(&Store{DataDir: s.DataDir})
		assert.True(t, errors.Is(err, ErrCorruptState))
	}

	// surrounding whitespace is fine
	assert.NoError(t, os.WriteFile(s.CounterFilePath(), []byte(" 0\n"), 0644))
	assert.Equal(t, 0, mustOccupancy(t, s))
}

func TestStorageUnavailable(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, os.Remove(s.DataFilePath()))
	_, err := s.Lookup("Jane")
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = s.Dump()
	assert.True(t, errors.Is(err, ErrStorageUnavailable))

	// insert doesn't recreate a missing data file without its header
	_, err = s.Insert("Jane", "A1", 1)
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(s.DataFilePath())
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, 0, mustOccupancy(t, s))

	assert.NoError(t, os.Remove(s.CounterFilePath()))
	_, err = s.Occupancy()
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	_, err = s.Insert("Jane", "A1", 1)
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
}

func TestVerify(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Verify())
	_, err := s.Insert("Jane", "A1", 1)
	assert.NoError(t, err)
	assert.NoError(t, s.Verify())

	// counter ahead of the data file
	assert.NoError(t, os.WriteFile(s.CounterFilePath(), []byte("2"), 0644))
	err = s.Verify()
	assert.True(t, errors.Is(err, ErrCorruptState))

	// data file without header
	assert.NoError(t, os.WriteFile(s.CounterFilePath(), []byte("1"), 0644))
	assert.NoError(t, os.WriteFile(s.DataFilePath(), []byte(EncodeRecord(&Record{1, "Jane", "A1", 1})), 0644))
	err = s.Verify()
	assert.True(t, errors.Is(err, ErrCorruptState))
}

func TestRestore(t *testing.T) {
	s := openTestStore(t)
	d := Header() + EncodeRecord(&Record{1, "Jane", "A1", 1}) + EncodeRecord(&Record{2, "John", "B2", 2})

	err := s.Restore([]byte(d), 3)
	assert.True(t, errors.Is(err, ErrCorruptState))
	assert.Equal(t, 0, mustOccupancy(t, s))
	assert.Equal(t, Header(), mustDump(t, s))

	assert.NoError(t, s.Restore([]byte(d), 2))
	assert.Equal(t, 2, mustOccupancy(t, s))
	assert.Equal(t, d, mustDump(t, s))
	assert.NoError(t, s.Verify())

	occ, err := s.Insert("Mary", "C3", 3)
	assert.NoError(t, err)
	assert.Equal(t, 3, occ)
}

func TestVerboseTrace(t *testing.T) {
	var errOut bytes.Buffer
	s := &Store{
		DataDir: t.TempDir(),
		Log:     log.New(&log.Config{Verbose: true, Err: &errOut}),
	}
	assert.NoError(t, OpenStore(s))
	_, err := s.Insert("Jane", "A1", 31590)
	assert.NoError(t, err)
	_, err = s.Lookup("Jane")
	assert.NoError(t, err)
	_, err = s.Records()
	assert.NoError(t, err)
	assert.NoError(t, s.Reset())

	trace := errOut.String()
	for _, exp := range []string{
		"[Reviewing occupancy]",
		"[Making the datafile]",
		"[Inserting... Name: Jane, Client I.D.: A1, Birthday: 31590, at occupant number: 1]",
		"[Updating occupancy]",
		"[Looking up... Name: Jane]",
		"[Listing the clients]",
		"[Clearing the database]",
	} {
		assert.True(t, strings.Contains(trace, exp), "missing %q", exp)
	}
}

func TestJournalEntries(t *testing.T) {
	dir := t.TempDir()
	j, err := journal.Open(filepath.Join(dir, "journal"))
	assert.NoError(t, err)
	day := time.Date(2015, 4, 3, 12, 0, 0, 0, time.UTC)
	j.Now = func() time.Time { return day }

	s := &Store{DataDir: dir, Journal: j}
	assert.NoError(t, OpenStore(s))
	_, err = s.Insert("Jane", "A1", 31590)
	assert.NoError(t, err)
	assert.NoError(t, s.Reset())
	assert.NoError(t, j.Close())

	entries, err := j.ReadDay(day)
	assert.NoError(t, err)
	var ops []string
	for _, e := range entries {
		ops = append(ops, e.Op)
	}
	assert.Equal(t, []string{"bootstrap", "insert", "reset", "bootstrap"}, ops)
	assert.True(t, strings.Contains(string(entries[1].Data), "Jane"))
}
