// Package clientstore is a flat-file database of client records.
//
// # Store Structure
//
// A Store consists of two files in DataDir:
//   - a data file (default: "DataFile.txt"): a header line, a line of 75
//     dashes and one fixed-width line per client, in insertion order
//   - a counter file (default: "Occupancy.txt"): the number of clients
//     as a single ASCII integer
//
// A record line looks like:
//
//	00000001\t\t\tJane Doe       \t\t\tA123456  \t\t\t31590 \t\t\t
//
// The counter is the source of truth for the next occupant number and
// for whether the store is empty. Every operation opens the files it
// needs, does one pass and closes them. Nothing is cached between calls.
//
// # Basic Usage
//
//	s := &clientstore.Store{
//	    DataDir: "./data",
//	}
//	err := clientstore.OpenStore(s)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	occupant, err := s.Insert("Jane", "A123456", 31590)
//	found, err := s.Lookup("Jane")
//
// # Concurrency
//
// There is no locking. Running two processes against the same DataDir can
// leave the counter out of sync with the data file; Verify reports that.
package clientstore
