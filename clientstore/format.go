package clientstore

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	OccupantWidth       = 8
	NameWidth           = 15
	IdentificationWidth = 9
	BirthdayWidth       = 6

	// Separator is written after every field, including the last one
	Separator = "\t\t\t"

	separatorLineWidth = 75
)

var (
	headerLine = "Occupant" + Separator +
		padRight("Client Name", NameWidth) + Separator +
		"Client I.D." + Separator +
		"Birthday" + Separator + "\n"
	separatorLine = strings.Repeat("-", separatorLineWidth) + "\n"
)

// Record is one client in the data file
type Record struct {
	Occupant       int    `json:"occupant"`
	Name           string `json:"name"`
	Identification string `json:"identification"`
	Birthday       int    `json:"birthday"`
}

// Header returns the header and separator lines that start every data file
func Header() string {
	return headerLine + separatorLine
}

func isHeaderOrSeparator(line string) bool {
	return line == strings.TrimSuffix(headerLine, "\n") || line == strings.TrimSuffix(separatorLine, "\n")
}

func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// fitWidth truncates s to width runes or pads it with spaces on the right
func fitWidth(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return padRight(s, width)
	}
	i := 0
	for n := 0; n < width; n++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}

func validateField(name, v string) error {
	if strings.ContainsAny(v, "\t\r\n") {
		return fmt.Errorf("%w: %s can't contain tabs or newlines", ErrInvalidField, name)
	}
	return nil
}

// EncodeRecord returns r as a line of the data file, including the
// trailing newline. Name, Identification and Birthday are truncated or
// padded to their fixed widths
func EncodeRecord(r *Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%0*d", OccupantWidth, r.Occupant)
	sb.WriteString(Separator)
	sb.WriteString(fitWidth(r.Name, NameWidth))
	sb.WriteString(Separator)
	sb.WriteString(fitWidth(r.Identification, IdentificationWidth))
	sb.WriteString(Separator)
	sb.WriteString(fitWidth(strconv.Itoa(r.Birthday), BirthdayWidth))
	sb.WriteString(Separator)
	sb.WriteByte('\n')
	return sb.String()
}

// ParseRecordLine parses a line written by EncodeRecord (without the
// newline). Padding is removed so Name and Identification are what was
// stored after truncation
func ParseRecordLine(line string, r *Record) error {
	parts := strings.Split(line, Separator)
	if len(parts) != 5 || parts[4] != "" {
		return corruptError("invalid record line '%s'", line)
	}
	occ, err := strconv.Atoi(parts[0])
	if err != nil || occ < 0 {
		return corruptError("invalid occupant in record line '%s'", line)
	}
	bday, err := strconv.Atoi(strings.TrimRight(parts[3], " "))
	if err != nil {
		return corruptError("invalid birthday in record line '%s'", line)
	}
	r.Occupant = occ
	r.Name = strings.TrimRight(parts[1], " ")
	r.Identification = strings.TrimRight(parts[2], " ")
	r.Birthday = bday
	return nil
}

// parseDataFile parses the whole data file. It must start with the
// header and separator lines
func parseDataFile(d string) ([]Record, error) {
	if !strings.HasPrefix(d, Header()) {
		return nil, corruptError("data file doesn't start with the header")
	}
	d = d[len(Header()):]
	if d == "" {
		return nil, nil
	}
	if !strings.HasSuffix(d, "\n") {
		return nil, corruptError("data file doesn't end with a newline")
	}
	lines := strings.Split(strings.TrimSuffix(d, "\n"), "\n")
	res := make([]Record, len(lines))
	for i, line := range lines {
		if err := ParseRecordLine(line, &res[i]); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// checkSequence verifies occupants are 1..n in order and n matches occupancy
func checkSequence(records []Record, occupancy int) error {
	for i, r := range records {
		if r.Occupant != i+1 {
			return corruptError("record %d has occupant number %d", i+1, r.Occupant)
		}
	}
	if len(records) != occupancy {
		return corruptError("occupancy is %d but data file has %d records", occupancy, len(records))
	}
	return nil
}
