package journal

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

/*
Entries are framed as:

--- ${size} ${timestamp_in_unix_epoch_ms} ${op}\n
${data}

For readability, if data doesn't end with a newline, one is added
after it. It's not counted in ${size}.
*/

var hdrPrefix = []byte("--- ")

type Entry struct {
	Op   string
	Time time.Time
	Data []byte
}

// MarshalEntry frames data with its op name and time.
// if t is zero time, the timestamp is not written
func MarshalEntry(op string, t time.Time, d []byte) []byte {
	var wb bytes.Buffer
	wb.Grow(len(hdrPrefix) + len(op) + len(d) + 32)
	wb.Write(hdrPrefix)
	dataLen := len(d)
	wb.WriteString(strconv.Itoa(dataLen))
	if !t.IsZero() {
		wb.WriteByte(' ')
		wb.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	}
	if op != "" {
		wb.WriteByte(' ')
		wb.WriteString(op)
	}
	wb.WriteByte('\n')
	if dataLen > 0 {
		wb.Write(d)
		if d[dataLen-1] != '\n' {
			wb.WriteByte('\n')
		}
	}
	return wb.Bytes()
}

// Reader reads entries framed with MarshalEntry
type Reader struct {
	r     *bufio.Reader
	entry Entry
	err   error
	done  bool
}

func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{
		r: br,
	}
}

// Entry returns the entry read by the last Next(). Data is only
// valid until the next call to Next()
func (r *Reader) Entry() *Entry {
	return &r.entry
}

func (r *Reader) Err() error {
	return r.err
}

// parseHeader parses "--- ${size} [${timestamp}] [${op}]"
func parseHeader(hdr string, e *Entry) (int, error) {
	rest, ok := strings.CutPrefix(hdr, string(hdrPrefix))
	if !ok {
		return 0, fmt.Errorf("invalid entry header '%s'", hdr)
	}
	parts := strings.SplitN(rest, " ", 3)
	size, err := strconv.Atoi(parts[0])
	if err != nil || size < 0 {
		return 0, fmt.Errorf("invalid size in entry header '%s'", hdr)
	}
	e.Time = time.Time{}
	e.Op = ""
	parts = parts[1:]
	if len(parts) > 0 {
		if ms, err := strconv.ParseInt(parts[0], 10, 64); err == nil {
			e.Time = time.UnixMilli(ms)
			parts = parts[1:]
		}
	}
	if len(parts) > 0 {
		e.Op = strings.Join(parts, " ")
	}
	return size, nil
}

// Next reads the next entry. Returns false at the end of data or on
// error; check Err() to tell them apart
func (r *Reader) Next() bool {
	if r.done || r.err != nil {
		return false
	}
	hdr, err := r.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && hdr == "" {
			r.done = true
			return false
		}
		if err == io.EOF {
			err = fmt.Errorf("truncated entry header '%s'", hdr)
		}
		r.err = err
		return false
	}
	hdr = hdr[:len(hdr)-1]
	size, err := parseHeader(hdr, &r.entry)
	if err != nil {
		r.err = err
		return false
	}
	d := make([]byte, size)
	if _, err = io.ReadFull(r.r, d); err != nil {
		r.err = fmt.Errorf("reading %d bytes of entry '%s': %w", size, r.entry.Op, err)
		return false
	}
	if size > 0 && d[size-1] != '\n' {
		c, err := r.r.ReadByte()
		if err != nil || c != '\n' {
			r.err = fmt.Errorf("missing newline after entry '%s'", r.entry.Op)
			return false
		}
	}
	r.entry.Data = d
	return true
}

// ReadAll reads all entries from r
func ReadAll(r io.Reader) ([]Entry, error) {
	var res []Entry
	jr := NewReader(r)
	for jr.Next() {
		res = append(res, *jr.Entry())
	}
	return res, jr.Err()
}
