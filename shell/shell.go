// Package shell is the interactive command loop in front of the record
// store.
//
// Input is read as whitespace separated tokens. Each command is a single
// character token; anything else, or end of input, ends the loop.
package shell

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/kjk/clientdb/clientstore"
	"github.com/kjk/clientdb/log"
	"github.com/kjk/clientdb/snapshot"
	"github.com/tidwall/pretty"
)

const (
	promptCommand = "Select a command... (i)Insert (l)Lookup (r)Reset (w)Write (v)Verify (j)JSON (e)Export (o)Restore: "
	promptConfirm = "Are you sure you want to do this? (y/n): "
	msgEmpty      = "The database is empty!\n"
)

// Uploader sends an exported snapshot somewhere else
type Uploader interface {
	Upload(ctx context.Context, localPath string, remotePath string) error
}

type Shell struct {
	In    io.Reader
	Out   io.Writer
	Store *clientstore.Store
	Log   *log.Logger
	// optional, if set exported snapshots are also uploaded
	Uploader Uploader

	scanner *bufio.Scanner
}

func (sh *Shell) printf(format string, args ...any) {
	fmt.Fprintf(sh.Out, format, args...)
}

func (sh *Shell) printErr(err error) {
	sh.printf("Error: %s\n", err)
	sh.Log.Verbosef("[Command failed: %s]\n", err)
}

// next returns the next token from input. false means end of input
func (sh *Shell) next() (string, bool) {
	if sh.scanner.Scan() {
		return sh.scanner.Text(), true
	}
	sh.Log.IfErrf(sh.scanner.Err())
	return "", false
}

func (sh *Shell) ask(prompt string) (string, bool) {
	sh.printf("%s", prompt)
	return sh.next()
}

// Run reads and executes commands until an unknown command or end of
// input. Store errors are printed and don't stop the loop
func (sh *Shell) Run() error {
	sh.scanner = bufio.NewScanner(sh.In)
	sh.scanner.Split(bufio.ScanWords)

	for {
		n, err := sh.Store.Occupancy()
		if err != nil {
			sh.printf("\n")
			sh.printErr(err)
		} else {
			sh.printf("\nDatabase contains %d client(s).\n", n)
		}
		cmd, ok := sh.ask(promptCommand)
		if !ok {
			sh.printf("\n")
			return nil
		}
		var cont bool
		switch cmd {
		case "i":
			cont = sh.insert()
		case "l":
			cont = sh.lookup()
		case "r":
			cont = sh.reset()
		case "w":
			cont = sh.write()
		case "v":
			cont = sh.verify()
		case "j":
			cont = sh.listJSON()
		case "e":
			cont = sh.export()
		case "o":
			cont = sh.restore()
		default:
			sh.Log.Verbosef("[Exiting on command '%s']\n", cmd)
		}
		sh.printf("\n")
		if !cont {
			return nil
		}
	}
}

func (sh *Shell) insert() bool {
	name, ok := sh.ask("Enter client's name: ")
	if !ok {
		return false
	}
	id, ok := sh.ask("Enter client's ID number: ")
	if !ok {
		return false
	}
	bdayStr, ok := sh.ask("Enter client's birthday: ")
	if !ok {
		return false
	}
	bday, err := strconv.Atoi(bdayStr)
	if err != nil {
		sh.printf("Invalid birthday '%s'!\n", bdayStr)
		return true
	}
	occ, err := sh.Store.Insert(name, id, bday)
	if err != nil {
		sh.printErr(err)
		return true
	}
	sh.printf("Client %s inserted as occupant %08d.\n", name, occ)
	return true
}

// isEmpty prints a notice and returns true if there are no clients.
// Errors reading occupancy are printed and also return true
func (sh *Shell) isEmpty() bool {
	n, err := sh.Store.Occupancy()
	if err != nil {
		sh.printErr(err)
		return true
	}
	if n == 0 {
		sh.printf(msgEmpty)
		return true
	}
	return false
}

func (sh *Shell) lookup() bool {
	if sh.isEmpty() {
		return true
	}
	name, ok := sh.ask("Enter the name of a client to lookup: ")
	if !ok {
		return false
	}
	found, err := sh.Store.Lookup(name)
	if err != nil {
		sh.printErr(err)
		return true
	}
	if found {
		sh.printf("Client %s found!\n", name)
	} else {
		sh.printf("Client %s not found!\n", name)
	}
	return true
}

// confirm asks until the answer is y or n. The second result is false
// at end of input
func (sh *Shell) confirm(what string) (bool, bool) {
	answer, ok := sh.ask(what + " " + promptConfirm)
	for ok && answer != "y" && answer != "n" {
		sh.printf("%s is not a valid command!\n", answer)
		answer, ok = sh.ask(what + " " + promptConfirm)
	}
	return answer == "y", ok
}

// reset only refuses a store known to be empty. An unreadable counter
// is reported but the reset is still offered, it rewrites both files
func (sh *Shell) reset() bool {
	n, err := sh.Store.Occupancy()
	if err != nil {
		sh.printErr(err)
	} else if n == 0 {
		sh.printf(msgEmpty)
		return true
	}
	yes, ok := sh.confirm("You are about to clear the database!")
	if !ok {
		return false
	}
	if !yes {
		return true
	}
	if err := sh.Store.Reset(); err != nil {
		sh.printErr(err)
		return true
	}
	sh.printf("The database has been cleared.\n")
	return true
}

func (sh *Shell) write() bool {
	d, err := sh.Store.Dump()
	if err != nil {
		sh.printErr(err)
		return true
	}
	sh.printf("%s", d)
	return true
}

func (sh *Shell) verify() bool {
	if err := sh.Store.Verify(); err != nil {
		sh.printErr(err)
		return true
	}
	sh.printf("Database is consistent.\n")
	return true
}

func (sh *Shell) listJSON() bool {
	records, err := sh.Store.Records()
	if err != nil {
		sh.printErr(err)
		return true
	}
	if records == nil {
		records = []clientstore.Record{}
	}
	d, err := json.Marshal(records)
	if err != nil {
		sh.printErr(err)
		return true
	}
	sh.printf("%s", pretty.Pretty(d))
	return true
}

func (sh *Shell) export() bool {
	path, ok := sh.ask("Enter snapshot path (.gz, .zst or .br to compress): ")
	if !ok {
		return false
	}
	if err := snapshot.Save(sh.Store, path); err != nil {
		sh.printErr(err)
		return true
	}
	sh.printf("Snapshot saved to %s.\n", path)
	if sh.Uploader == nil {
		return true
	}
	remotePath := filepath.Base(path)
	if err := sh.Uploader.Upload(context.Background(), path, remotePath); err != nil {
		sh.printErr(err)
		return true
	}
	sh.printf("Snapshot uploaded as %s.\n", remotePath)
	return true
}

func (sh *Shell) restore() bool {
	path, ok := sh.ask("Enter snapshot path: ")
	if !ok {
		return false
	}
	yes, ok := sh.confirm("You are about to replace the database!")
	if !ok {
		return false
	}
	if !yes {
		return true
	}
	if err := snapshot.Restore(sh.Store, path); err != nil {
		sh.printErr(err)
		return true
	}
	sh.printf("The database has been restored from %s.\n", path)
	return true
}
