package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyFile is where --log-dir output goes: Dir/log holds Logf
// messages, Dir/errors holds Errorf messages. Each day (UTC) gets its
// own YYYY-MM-DD.txt; the file is opened lazily and swapped on the
// first write after midnight.
type DailyFile struct {
	Dir string
	// clock used to pick the file, tests replace it
	Now func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

func NewDailyFile(dir string) *DailyFile {
	return &DailyFile{
		Dir: dir,
		Now: time.Now,
	}
}

func dayName(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Path is the file that messages logged at t end up in
func (w *DailyFile) Path(t time.Time) string {
	return filepath.Join(w.Dir, dayName(t)+".txt")
}

func (w *DailyFile) fileFor(t time.Time) (*os.File, error) {
	day := dayName(t)
	if w.file != nil && w.day == day {
		return w.file, nil
	}
	if err := w.close(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(w.Path(t), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	w.file, w.day = f, day
	return f, nil
}

// no-op on nil, so a Logger without --log-dir needs no checks
func (w *DailyFile) WriteString(s string) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.fileFor(w.Now())
	if err != nil {
		return fmt.Errorf("log: open daily file in '%s': %w", w.Dir, err)
	}
	_, err = f.WriteString(s)
	return err
}

func (w *DailyFile) close() error {
	if w.file == nil {
		return nil
	}
	errSync := w.file.Sync()
	errClose := w.file.Close()
	w.file, w.day = nil, ""
	if errSync != nil {
		return errSync
	}
	return errClose
}

// Close flushes and closes today's file. Safe on nil
func (w *DailyFile) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.close()
}
