package clientstore

import (
	"os"
)

// appendToFile appends d to an existing file at path. A missing file is
// an error: only Bootstrap creates the data file, with its header.
// The file is synced and closed before returning
func appendToFile(path string, d []byte) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = file.Write(d)
	if err != nil {
		file.Close()
		return err
	}
	err = file.Sync()
	if err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
