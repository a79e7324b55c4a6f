package clientstore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kjk/clientdb/atomicfile"
	"github.com/kjk/clientdb/journal"
	"github.com/kjk/clientdb/log"
)

const (
	DefaultDataFileName    = "DataFile.txt"
	DefaultCounterFileName = "Occupancy.txt"

	maxLineSize = 1024 * 1024
)

type Store struct {
	DataDir         string
	DataFileName    string
	CounterFileName string

	// optional, receives trace of every operation in verbose mode
	Log *log.Logger
	// optional, records insert / reset / bootstrap / restore
	Journal *journal.Journal

	dataFilePath    string
	counterFilePath string
}

func (s *Store) DataFilePath() string {
	return s.dataFilePath
}

func (s *Store) CounterFilePath() string {
	return s.counterFilePath
}

func (s *Store) journal(op string, vals ...any) {
	err := s.Journal.Append(op, vals...)
	s.Log.IfErrf(err)
}

// OpenStore resolves file paths and makes sure the store is usable.
// A missing counter file is created with 0. When the counter is 0 the
// data file is (re)written with just the header
func OpenStore(s *Store) error {
	if s.DataDir == "" {
		return fmt.Errorf("data directory is not set. For current directory, use '.'")
	}
	if s.DataFileName == "" {
		s.DataFileName = DefaultDataFileName
	}
	if s.CounterFileName == "" {
		s.CounterFileName = DefaultCounterFileName
	}

	var err error
	s.dataFilePath, err = filepath.Abs(filepath.Join(s.DataDir, s.DataFileName))
	if err != nil {
		return fmt.Errorf("failed to get absolute path for data file: %w", err)
	}
	s.counterFilePath, err = filepath.Abs(filepath.Join(s.DataDir, s.CounterFileName))
	if err != nil {
		return fmt.Errorf("failed to get absolute path for counter file: %w", err)
	}

	if err = os.MkdirAll(s.DataDir, 0755); err != nil {
		return storageError("create data directory", err)
	}
	if _, err = os.Stat(s.counterFilePath); os.IsNotExist(err) {
		if err = s.writeOccupancy(0); err != nil {
			return err
		}
	}
	n, err := s.Occupancy()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.Bootstrap()
	}
	return nil
}

// Occupancy returns the number of clients as recorded in the counter file
func (s *Store) Occupancy() (int, error) {
	s.Log.Verbosef("[Reviewing occupancy]\n")
	d, err := os.ReadFile(s.counterFilePath)
	if err != nil {
		return 0, storageError("read counter", err)
	}
	str := strings.TrimSpace(string(d))
	n, err := strconv.Atoi(str)
	if err != nil || n < 0 {
		return 0, corruptError("counter file '%s' contains '%s'", s.counterFilePath, str)
	}
	return n, nil
}

func (s *Store) writeOccupancy(n int) error {
	s.Log.Verbosef("[Updating occupancy]\n")
	err := atomicfile.WriteFile(s.counterFilePath, []byte(strconv.Itoa(n)), 0644)
	if err != nil {
		return storageError("write counter", err)
	}
	return nil
}

// Insert appends a client and returns its occupant number. Values wider
// than their field are truncated
func (s *Store) Insert(name string, identification string, birthday int) (int, error) {
	if err := validateField("name", name); err != nil {
		return 0, err
	}
	if err := validateField("identification", identification); err != nil {
		return 0, err
	}
	n, err := s.Occupancy()
	if err != nil {
		return 0, err
	}
	rec := &Record{
		Occupant:       n + 1,
		Name:           name,
		Identification: identification,
		Birthday:       birthday,
	}
	s.Log.Verbosef("[Inserting... Name: %s, Client I.D.: %s, Birthday: %d, at occupant number: %d]\n", name, identification, birthday, rec.Occupant)
	s.Log.VerboseDump("record", rec)

	// the data line goes first: if the counter write fails, Verify
	// finds one more record than the counter says
	line := EncodeRecord(rec)
	if err = appendToFile(s.dataFilePath, []byte(line)); err != nil {
		return 0, storageError("append record", err)
	}
	if err = s.writeOccupancy(rec.Occupant); err != nil {
		return 0, err
	}
	s.journal("insert", "occupant", rec.Occupant, "name", name, "identification", identification, "birthday", birthday)
	return rec.Occupant, nil
}

// Lookup returns true if name is a substring of any record line. The
// whole line is searched, so a match in another field counts
func (s *Store) Lookup(name string) (bool, error) {
	s.Log.Verbosef("[Looking up... Name: %s]\n", name)
	file, err := os.Open(s.dataFilePath)
	if err != nil {
		return false, storageError("open data file", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if isHeaderOrSeparator(line) {
			continue
		}
		if strings.Contains(line, name) {
			return true, nil
		}
	}
	if err = scanner.Err(); err != nil {
		return false, storageError("read data file", err)
	}
	return false, nil
}

// Bootstrap rewrites the data file with only the header
func (s *Store) Bootstrap() error {
	s.Log.Verbosef("[Making the datafile]\n")
	if err := atomicfile.WriteFile(s.dataFilePath, []byte(Header()), 0644); err != nil {
		return storageError("write data file", err)
	}
	s.journal("bootstrap")
	return nil
}

// Reset sets occupancy to 0 and bootstraps the data file. Resetting an
// empty store is fine
func (s *Store) Reset() error {
	s.Log.Verbosef("[Clearing the database]\n")
	if err := s.writeOccupancy(0); err != nil {
		return err
	}
	s.journal("reset")
	return s.Bootstrap()
}

func (s *Store) readDataFile() (string, error) {
	d, err := os.ReadFile(s.dataFilePath)
	if err != nil {
		return "", storageError("read data file", err)
	}
	return string(d), nil
}

// Dump returns content of the data file as is
func (s *Store) Dump() (string, error) {
	s.Log.Verbosef("[Writing the file]\n")
	return s.readDataFile()
}

// DumpTokens returns whitespace separated tokens of the data file
// concatenated with no spacing between them
func (s *Store) DumpTokens() (string, error) {
	d, err := s.Dump()
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(d), ""), nil
}

// Records parses all records in the data file
func (s *Store) Records() ([]Record, error) {
	s.Log.Verbosef("[Listing the clients]\n")
	d, err := s.readDataFile()
	if err != nil {
		return nil, err
	}
	return parseDataFile(d)
}

// Verify checks that the data file parses, occupant numbers are 1..N
// and N equals occupancy
func (s *Store) Verify() error {
	n, err := s.Occupancy()
	if err != nil {
		return err
	}
	records, err := s.Records()
	if err != nil {
		return err
	}
	return checkSequence(records, n)
}

// Restore replaces the data file with d and the counter with occupancy,
// after checking that they agree with each other
func (s *Store) Restore(d []byte, occupancy int) error {
	records, err := parseDataFile(string(d))
	if err != nil {
		return err
	}
	if err = checkSequence(records, occupancy); err != nil {
		return err
	}
	s.Log.Verbosef("[Restoring %d client(s)]\n", occupancy)
	if err = atomicfile.WriteFile(s.dataFilePath, d, 0644); err != nil {
		return storageError("write data file", err)
	}
	if err = s.writeOccupancy(occupancy); err != nil {
		return err
	}
	s.journal("restore", "occupancy", occupancy)
	return nil
}
