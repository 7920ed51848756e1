// ABOUTME: The default subcommand: evolve a population toward a target output string
// ABOUTME: Progress printing, signal handling, and save-on-interrupt live here

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"bfevolve/config"
	"bfevolve/genome"
	"bfevolve/internal/workpool"
	"bfevolve/population"
	"bfevolve/statecodec"
)

const spinnerUpdateInterval = 500 * time.Millisecond

func runEvolve(args []string) int {
	fs := flag.NewFlagSet("bfevolve", flag.ExitOnError)

	target := fs.String("o", "", "target output string")
	resumeFile := fs.String("f", "", "resume evolution from a saved population state file")
	targetFile := fs.String("targetfile", "", "read the target output string from this file")
	size := fs.Int("s", 0, "population size (0 = use profile/default)")
	mutation := fs.Float64("m", -1, "mutation rate (-1 = use profile/default)")
	crossover := fs.Float64("c", -1, "crossover rate (-1 = use profile/default)")
	elitism := fs.Float64("e", -1, "elitism fraction (-1 = use profile/default)")
	optimize := fs.Bool("O", false, "penalize program length once a genome is no longer a perfect match")
	tapeSize := fs.Int("tape", 0, "interpreter tape size (0 = use profile/default)")
	limitMS := fs.Int("limit", 0, "per-genome evaluation time limit in ms (0 = use profile/default)")
	level := fs.Int("level", 0, "stop once the best fitness reaches this level or below")
	seed := fs.Uint64("seed", 0, "RNG seed (0 = time-seeded)")
	profilePath := fs.String("profile", "", "load/save a run profile TOML instead of repeating flags")
	debug := fs.Bool("debug", false, "enable debug logging to bfevolve-debug.log")
	quiet := fs.Bool("quiet", false, "suppress the per-generation progress line")
	savePath := fs.String("save", "", "write the final population's save-state to this path")
	cpuprofile := fs.String("cpuprofile", "", "write cpu profile to file")
	memprofile := fs.String("memprofile", "", "write memory profile to file")

	fs.Usage = func() {
		usage()
		fmt.Println("\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	sourceCount := 0
	for _, s := range []string{*target, *resumeFile, *targetFile} {
		if s != "" {
			sourceCount++
		}
	}
	if sourceCount != 1 {
		fmt.Println("exactly one of -o, -f, or -targetfile is required")
		fs.Usage()
		return 1
	}

	if *cpuprofile != "" {
		stop := setupCPUProfile(*cpuprofile)
		defer stop()
	}
	if *memprofile != "" {
		defer writeMemoryProfile(*memprofile)
	}

	if *debug {
		if err := SetupDebugLog("bfevolve-debug.log"); err != nil {
			log.Printf("failed to set up debug log: %v", err)
			return 1
		}
	}

	profile := config.DefaultConfig()
	path := *profilePath
	if path == "" {
		path = config.GetConfigPath()
	}
	if loaded, err := config.LoadConfig(path); err == nil {
		profile = loaded
	} else {
		debugf("failed to load profile %s: %v", path, err)
	}

	if *size > 0 {
		profile.Size = *size
	}
	if *mutation >= 0 {
		profile.Mutation = *mutation
	}
	if *crossover >= 0 {
		profile.Crossover = *crossover
	}
	if *elitism >= 0 {
		profile.Elitism = *elitism
	}
	if *tapeSize > 0 {
		profile.TapeSize = *tapeSize
	}
	if *limitMS > 0 {
		profile.TimeLimitMS = *limitMS
	}
	profile.Optimize = profile.Optimize || *optimize

	if *profilePath != "" {
		if err := config.SaveConfig(*profilePath, profile); err != nil {
			debugf("failed to save profile %s: %v", *profilePath, err)
		}
	}

	seedVal := *seed
	if seedVal == 0 {
		seedVal = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seedVal, seedVal^0x9e3779b97f4a7c15))

	knobs := population.Knobs{
		Size:      profile.Size,
		Elitism:   profile.Elitism,
		Crossover: profile.Crossover,
		Mutation:  profile.Mutation,
		Optimize:  profile.Optimize,
		TapeSize:  profile.TapeSize,
		TimeLimit: profile.TimeLimit(),
	}

	gen := &genome.Generator{Track: true, StmtCount: profile.StatementCount}
	pool := workpool.New(knobs.Size)
	defer pool.Close()

	var pop *population.Population
	if *resumeFile != "" {
		data, err := os.ReadFile(*resumeFile)
		if err != nil {
			log.Printf("failed to read save-state file: %v", err)
			return 1
		}
		pop, err = statecodec.Decode(data, knobs, gen, pool)
		if err != nil {
			log.Printf("failed to decode save-state file: %v", err)
			return 1
		}
		fmt.Printf("Resumed from %s: generation=%d target=%q (elitism=%.2f, crossover=%.2f, mutation=%.2f, seed=%d)\n",
			*resumeFile, pop.Generation, pop.Target, pop.Config.Elitism, pop.Config.Crossover, pop.Config.Mutation, seedVal)
	} else {
		targetBytes, err := resolveTarget(*target, *targetFile)
		if err != nil {
			log.Printf("error: %v", err)
			return 1
		}
		fmt.Printf("Evolving toward %q (size=%d, elitism=%.2f, crossover=%.2f, mutation=%.2f, seed=%d)\n",
			targetBytes, knobs.Size, knobs.Elitism, knobs.Crossover, knobs.Mutation, seedVal)
		pop = population.New(rng, targetBytes, knobs, gen, pool)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	best := runWithProgress(ctx, pop, rng, pool, gen, *level, *quiet)

	signal.Stop(stop)

	fmt.Printf("\nGeneration %d: fitness=%d program=%q output=%q\n",
		pop.Generation, best.Fitness, best.Program, best.Output)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "generation\tfitness\tprogram\toutput")
	fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", pop.Generation, best.Fitness, truncate(string(best.Program), 60), best.Output)
	w.Flush()

	if *savePath != "" {
		if err := os.WriteFile(*savePath, statecodec.Encode(pop), 0644); err != nil {
			log.Printf("failed to save state to %s: %v", *savePath, err)
		} else {
			fmt.Printf("Saved population state to %s\n", *savePath)
		}
	} else if ctx.Err() != nil {
		promptSaveOnInterrupt(pop)
	}

	return 0
}

func resolveTarget(target, targetFile string) ([]byte, error) {
	if target != "" {
		return []byte(target), nil
	}
	data, err := os.ReadFile(targetFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read target file: %w", err)
	}
	return data, nil
}

// runWithProgress drives EvolveToLevel while printing one line per
// generation Update it receives plus a periodic spinner, mirroring the
// teacher's cliGeneticSort shape.
func runWithProgress(ctx context.Context, pop *population.Population, rng *rand.Rand, pool *workpool.Pool, gen *genome.Generator, level int, quiet bool) genome.Genome {
	startTime := time.Now()
	isTerminal := isTTY(os.Stdout)

	spinnerFrames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinnerIdx := 0

	var ticker *time.Ticker
	if isTerminal && !quiet {
		ticker = time.NewTicker(spinnerUpdateInterval)
		defer ticker.Stop()
	}

	progress := make(chan population.Update, 10)
	done := make(chan genome.Genome, 1)

	go func() {
		done <- population.EvolveToLevel(ctx, pop, rng, pool, gen, level, progress)
		close(progress)
	}()

	var best genome.Genome
	var lastGenTime time.Time
	var lastGenCount int
	genPerSec := 0.0

	formatElapsed := func(d time.Duration) string {
		if d >= time.Minute {
			return fmt.Sprintf("%6s", fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60))
		}
		return fmt.Sprintf("%6s", fmt.Sprintf("%ds", int(d.Seconds())))
	}

	tickerChan := func() <-chan time.Time {
		if ticker != nil {
			return ticker.C
		}
		return nil
	}

	for {
		select {
		case update, ok := <-progress:
			if !ok {
				best = <-done
				return best
			}

			if !quiet {
				if isTerminal {
					fmt.Print("\r\033[K")
				}

				now := time.Now()
				if !lastGenTime.IsZero() {
					dGen := update.Generation - lastGenCount
					dt := now.Sub(lastGenTime).Seconds()
					if dt > 0 {
						genPerSec = float64(dGen) / dt
					}
				}
				lastGenTime = now
				lastGenCount = update.Generation

				elapsed := formatElapsed(time.Since(startTime))
				rate := FormatWithMinimalPrecision(0, genPerSec)
				fmt.Printf("%s Gen %7d - fitness: %d  (%s gen/s)  %q -> %q\n",
					elapsed, update.Generation, update.Best.Fitness, rate, update.Best.Program, update.Best.Output)
			}
			best = update.Best

		case <-tickerChan():
			if isTerminal {
				fmt.Printf("\r%s Gen %d %s     ", formatElapsed(time.Since(startTime)), lastGenCount, spinnerFrames[spinnerIdx])
				spinnerIdx = (spinnerIdx + 1) % len(spinnerFrames)
			}

		case result := <-done:
			if isTerminal {
				fmt.Print("\r\033[K")
			}
			return result
		}
	}
}

// promptSaveOnInterrupt asks the user whether to save the current
// population state after a Ctrl-C/SIGTERM, mirroring
// BrainfuckIntern.py's KeyboardInterrupt handler.
func promptSaveOnInterrupt(pop *population.Population) {
	if !isTTY(os.Stdin) {
		return
	}

	fmt.Print("\nSave current state? [y/n] ")
	reader := bufio.NewScanner(os.Stdin)
	if !reader.Scan() {
		return
	}
	answer := reader.Text()
	if answer != "y" && answer != "Y" {
		return
	}

	fmt.Print("Filename: ")
	if !reader.Scan() {
		return
	}
	filename := reader.Text()
	if filename == "" {
		return
	}

	if err := os.WriteFile(filename, statecodec.Encode(pop), 0644); err != nil {
		fmt.Printf("Failed to save: %v\n", err)
		return
	}
	fmt.Printf("Saved to %s\n", filename)
}
