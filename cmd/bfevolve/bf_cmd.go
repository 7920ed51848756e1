// ABOUTME: Standalone "bf" subcommand for ad-hoc interpreter use outside the GA
// ABOUTME: Exercises the interpreter's streamed (non-buffered) output mode

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"bfevolve/bf"
)

func runBF(args []string) int {
	fs := flag.NewFlagSet("bf", flag.ExitOnError)

	tapeSize := fs.Int("tape", bf.DefaultTapeSize, "tape size")
	limitMS := fs.Int("limit", int(bf.DefaultTimeLimit/time.Millisecond), "time limit in ms (0 = unbounded)")
	file := fs.String("f", "", "read the program from this file instead of the command line")
	stdin := fs.String("stdin", "", "input bytes fed to ','")

	fs.Usage = func() {
		fmt.Println("Usage: bfevolve bf [-tape N] [-limit MS] [-stdin S] (PROGRAM | -f FILE)")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	var program []byte
	switch {
	case *file != "":
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Printf("failed to read program file: %v", err)
			return 1
		}
		program = data
	case fs.NArg() == 1:
		program = []byte(fs.Arg(0))
	default:
		fs.Usage()
		return 1
	}

	limit := time.Duration(*limitMS) * time.Millisecond
	if *limitMS == 0 {
		limit = -1
	}

	_, err := bf.Run(program, bf.RunOptions{
		TapeSize:  *tapeSize,
		TimeLimit: limit,
		Stdin:     []byte(*stdin),
		Stdout:    os.Stdout,
	})
	if err != nil {
		log.Printf("bf: %v", err)
		return 1
	}

	fmt.Println()
	return 0
}
