// ABOUTME: Entry point for bfevolve, a genetic-algorithm Brainfuck program evolver
// ABOUTME: Handles command-line parsing, profiling, and routing to run/watch/bf subcommands

// Package main provides the entry point for bfevolve: it evolves
// Brainfuck programs that produce a target output string, using a
// sandboxed, time-bounded interpreter as the fitness oracle.
package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "watch":
			return runWatch(os.Args[2:])
		case "bf":
			return runBF(os.Args[2:])
		}
	}

	return runEvolve(os.Args[1:])
}

// setupCPUProfile starts CPU profiling and returns a cleanup function.
func setupCPUProfile(filename string) func() {
	f, err := os.Create(filename)
	if err != nil {
		log.Fatalf("could not create CPU profile: %v", err)
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		log.Fatalf("could not start CPU profile: %v", err)
	}

	return func() {
		pprof.StopCPUProfile()
		if err := f.Close(); err != nil {
			log.Printf("Warning: failed to close CPU profile: %v", err)
		}
	}
}

// writeMemoryProfile writes a heap profile to filename.
func writeMemoryProfile(filename string) {
	f, err := os.Create(filename)
	if err != nil {
		log.Printf("could not create memory profile: %v", err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Warning: failed to close memory profile: %v", err)
		}
	}()

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Printf("could not write memory profile: %v", err)
	}
}

func usage() {
	fmt.Println("Usage: bfevolve [flags] (-o TARGET | -f SAVESTATE | -targetfile FILE)")
	fmt.Println("       bfevolve watch FILE")
	fmt.Println("       bfevolve bf [-tape N] [-limit MS] PROGRAM")
}
