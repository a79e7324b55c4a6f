package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kjk/clientdb/clientstore"
	"github.com/kjk/clientdb/journal"
	"github.com/kjk/clientdb/log"
	"github.com/kjk/clientdb/shell"
	"github.com/kjk/clientdb/snapshot"
	"github.com/timtadh/getopt"
)

var UsageMessage = "clientdb [-x] [-d <dir>]"
var ExtendedMessage = `
clientdb -- interactive database of client records

Records are kept in DataFile.txt and the number of records in
Occupancy.txt, both in the data directory.

Options
  -h, --help                view this message
  -x                        trace every database operation to stderr
  -d, --dir=<path>          data directory (default: current directory)
  --log-dir=<path>          also write logs to daily files in <path>
  --journal                 record operations in <dir>/journal
  --env=<path>              read S3_ACCESS, S3_SECRET, S3_BUCKET,
                            S3_ENDPOINT, S3_REGION (or SFTP_USER, SFTP_HOST,
                            SFTP_KEY, SFTP_DIR) from a KEY=VALUE file;
                            when set, exported snapshots are uploaded

Commands
  i   insert a client (name, ID, birthday)
  l   look up a client by name
  r   clear the database
  w   write the data file to stdout
  v   check the data file against the occupancy
  j   list clients as JSON
  e   export a snapshot (.gz, .zst or .br compress it)
  o   restore a snapshot
  anything else exits
`

// Usage prints usage to stderr, and the full help to stdout when
// extended is set
func Usage(extended bool) {
	fmt.Fprintln(os.Stderr, UsageMessage)
	if extended {
		fmt.Fprintln(os.Stdout, ExtendedMessage)
	} else {
		fmt.Fprintln(os.Stderr, "Try -h or --help for help")
	}
}

// parseArgs returns the configuration to run with even when it also
// returns an error: bad options are reported and the defaults are used
func parseArgs(argv []string) (*Config, error) {
	config := &Config{
		DataDir: ".",
	}
	args, optargs, err := getopt.GetOpt(
		argv,
		"hxd:",
		[]string{
			"help", "dir=", "log-dir=", "journal", "env=",
		},
	)
	if err != nil {
		return config, err
	}
	for _, oa := range optargs {
		switch oa.Opt() {
		case "-h", "--help":
			config.Help = true
		case "-x":
			config.Verbose = true
		case "-d", "--dir":
			config.DataDir = oa.Arg()
		case "--log-dir":
			config.LogDir = oa.Arg()
		case "--journal":
			config.Journal = true
		case "--env":
			config.EnvPath = oa.Arg()
		default:
			return config, fmt.Errorf("unknown flag '%v'", oa.Opt())
		}
	}
	if len(args) > 0 {
		return config, fmt.Errorf("unexpected argument '%s'", args[0])
	}
	return config, nil
}

// openStore opens the store in config.DataDir. A store that fails to
// open is still returned when its files are known: the shell reports
// the error on every command and r (reset) recovers a corrupt counter
func openStore(config *Config, logger *log.Logger, j *journal.Journal) *clientstore.Store {
	store := &clientstore.Store{
		DataDir: config.DataDir,
		Log:     logger,
		Journal: j,
	}
	err := clientstore.OpenStore(store)
	if err == nil {
		return store
	}
	logger.Errorf("failed to open database in '%s': %s", config.DataDir, err)
	if store.DataFilePath() == "" {
		return nil
	}
	return store
}

// main always exits with 0, problems are reported on stderr
func main() {
	config, err := parseArgs(os.Args[1:])
	if config.Help {
		Usage(true)
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		Usage(false)
	}
	if err = config.loadRemoteConfig(os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "%s, snapshot upload disabled\n", err)
	}

	logger := log.New(&log.Config{
		Dir:     config.LogDir,
		Verbose: config.Verbose,
	})
	defer logger.Close()

	var j *journal.Journal
	if config.Journal {
		j, err = journal.Open(filepath.Join(config.DataDir, "journal"))
		if err != nil {
			logger.Errorf("journal disabled: %s", err)
		}
		defer j.Close()
	}
	store := openStore(config, logger, j)
	if store == nil {
		return
	}

	sh := &shell.Shell{
		In:    os.Stdin,
		Out:   os.Stdout,
		Store: store,
		Log:   logger,
	}
	// snapshots still work locally when the upload target is unreachable
	if config.Remote.IsSet() {
		up, err := snapshot.NewUploader(context.Background(), &config.Remote)
		if err != nil {
			logger.Errorf("snapshot upload disabled: %s", err)
		} else {
			sh.Uploader = up
		}
	} else if config.SFTP.IsSet() {
		up, err := snapshot.NewSFTPUploader(&config.SFTP)
		if err != nil {
			logger.Errorf("snapshot upload disabled: %s", err)
		} else {
			defer up.Close()
			sh.Uploader = up
		}
	}
	logger.IfErrf(sh.Run())
}
