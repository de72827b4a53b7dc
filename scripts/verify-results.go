//go:build ignore

// Verify benchmark result records against the result schema.
// Prints one line per record and exits non-zero if any record is invalid.
// Usage: go run ./scripts/verify-results.go [dir...]
package main

import (
	"fmt"
	"os"

	"github.com/jamesainslie/go-diagbench/leaderboard"
	"github.com/jamesainslie/go-diagbench/result"
)

func main() {
	dirs := os.Args[1:]
	if len(dirs) == 0 {
		dirs = []string{"results"}
	}

	var checked, failed int
	for _, dir := range dirs {
		paths, err := leaderboard.FindResults(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", dir, err)
			os.Exit(1)
		}

		for _, path := range paths {
			checked++
			r, err := result.Read(path)
			if err != nil {
				failed++
				fmt.Printf("FAIL %s\n  %v\n", path, err)
				continue
			}
			fmt.Printf("ok   %s (%s/%s, %s, %d samples)\n", path, r.Dataset, r.Split, r.Predictor, r.NumSamples)
		}
	}

	if checked == 0 {
		fmt.Println("No result records found.")
		return
	}
	fmt.Printf("\n%d records checked, %d invalid\n", checked, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
