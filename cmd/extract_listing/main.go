// Command extract-listing reads a saved movie listing page (from stdin or a
// file) and prints the extracted rows as CSV in the listing-export column
// layout, ready to feed the csv parser. With -json it prints a JSON array
// instead.
//
// Usage (stdin):
//
//	cat page.html | extract-listing > movies.csv
//
// Usage (file):
//
//	extract-listing -file page.html -json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"moviesetl/internal/listing"
	"moviesetl/internal/movie"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is split out from main so the command can be unit tested without
// spawning an OS process. Exit codes: 0 success, 2 usage errors, 1 runtime
// errors.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract-listing", flag.ContinueOnError)
	fs.SetOutput(stderr)

	filePath := fs.String("file", "", "read HTML from this file instead of stdin")
	asJSON := fs.Bool("json", false, "print a JSON array instead of CSV")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	src := stdin
	if *filePath != "" {
		f, err := os.Open(*filePath)
		if err != nil {
			fmt.Fprintf(stderr, "open file: %v\n", err)
			return 2
		}
		defer f.Close()
		src = f
	}

	raws, err := listing.ExtractRecords(src)
	if err != nil {
		fmt.Fprintf(stderr, "extract listing: %v\n", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(raws); err != nil {
			fmt.Fprintf(stderr, "encode json: %v\n", err)
			return 1
		}
		return 0
	}

	if err := writeCSV(stdout, raws); err != nil {
		fmt.Fprintf(stderr, "write csv: %v\n", err)
		return 1
	}
	return 0
}

// writeCSV emits rows under the listing export's own header spelling so the
// output round-trips through the csv parser's default header map.
func writeCSV(w io.Writer, raws []movie.Raw) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"MOVIES", "YEAR", "GENRE", "RATING", "ONE-LINE", "STARS", "VOTES", "RunTime", "Gross"}); err != nil {
		return err
	}
	for _, r := range raws {
		rec := []string{r.Title, r.Year, r.Genre, r.Rating, r.Description, r.Credits, r.Votes, r.Runtime, r.Gross}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
