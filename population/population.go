// ABOUTME: Sorted genome collection, one-generation evolution, and the convergence loop
// ABOUTME: Parallelizes fitness re-evaluation across a worker pool each generation

// Package population implements the GA's outer loop: a collection of
// genomes kept sorted ascending by fitness, advanced one generation at a
// time via elitism, tournament selection, crossover, and mutation.
package population

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"bfevolve/bf"
	"bfevolve/genome"
	"bfevolve/internal/workpool"
)

// tournamentSize is the number of challengers drawn against the
// incumbent in Tournament, per spec.md's selection rule.
const tournamentSize = 3

// Knobs are the recognized GA configuration values, per spec.md §3.
type Knobs struct {
	Size      int
	Elitism   float64
	Crossover float64
	Mutation  float64
	Optimize  bool
	TapeSize  int
	TimeLimit time.Duration
}

// Population is an ordered collection of genomes, ascending by fitness.
type Population struct {
	Genomes     []genome.Genome
	Target      []byte
	Generation  int
	TotalScored int
	Config      Knobs

	tapes sync.Pool
}

// Update is one generation's progress snapshot, emitted on the progress
// channel passed to EvolveToLevel.
type Update struct {
	Generation int
	Best       genome.Genome
	Improved   bool
}

// SortByFitness sorts genomes ascending by fitness in place. Exported so
// callers that assemble a Population outside of New/Step — statecodec's
// Decode, most notably — can restore invariant (ii), "sorted by fitness,"
// after rescoring may have reordered what was on disk.
func SortByFitness(genomes []genome.Genome) {
	slices.SortFunc(genomes, func(a, b genome.Genome) int {
		switch {
		case a.Fitness < b.Fitness:
			return -1
		case a.Fitness > b.Fitness:
			return 1
		default:
			return 0
		}
	})
}

func (p *Population) scoreConfig() genome.ScoreConfig {
	return genome.ScoreConfig{
		Target:    p.Target,
		TapeSize:  p.Config.TapeSize,
		TimeLimit: p.Config.TimeLimit,
		Optimize:  p.Config.Optimize,
	}
}

// scoreAll runs genome.Score over every genome in place, parallelized
// across pool. Each task borrows a reusable scratch tape from p's
// per-population tape pool instead of allocating one per genome.
func (p *Population) scoreAll(genomes []genome.Genome, pool *workpool.Pool) {
	for i := range genomes {
		i := i
		pool.Submit(func() {
			tape, _ := p.tapes.Get().(*bf.Tape)
			if tape == nil {
				tape = bf.NewTape(p.Config.TapeSize)
			}
			cfg := p.scoreConfig()
			cfg.Tape = tape
			genomes[i] = genome.Score(genomes[i], cfg)
			p.tapes.Put(tape)
		})
	}
	pool.Wait()
}

// New builds a fresh population of knobs.Size random genomes, scores
// them via pool, and sorts ascending by fitness.
func New(rng *rand.Rand, target []byte, knobs Knobs, gen *genome.Generator, pool *workpool.Pool) *Population {
	p := &Population{
		Target: target,
		Config: knobs,
	}

	genomes := make([]genome.Genome, knobs.Size)
	for i := range genomes {
		genomes[i] = genome.Random(rng, gen)
	}

	p.scoreAll(genomes, pool)
	SortByFitness(genomes)

	p.Genomes = genomes
	p.TotalScored = knobs.Size

	return p
}

// Tournament picks one incumbent plus tournamentSize challengers at
// random and returns whichever has the lowest (best) fitness.
func (p *Population) Tournament(rng *rand.Rand) genome.Genome {
	best := p.Genomes[rng.IntN(len(p.Genomes))]
	for i := 0; i < tournamentSize; i++ {
		challenger := p.Genomes[rng.IntN(len(p.Genomes))]
		if challenger.Fitness < best.Fitness {
			best = challenger
		}
	}
	return best
}

// elitismCount rounds size*elitism to the nearest 10, per spec.md's
// elitism-cut rule and Population.py's `round(size * elitism, -1)` —
// Python's round() ties to even, so round10 does the same instead of
// always rounding .5 up (size=50, elitism=0.5 rounds to 20, not 30).
func elitismCount(size int, elitism float64) int {
	return int(round10(float64(size) * elitism))
}

func round10(v float64) float64 {
	q := v / 10
	lower := math.Floor(q)
	frac := q - lower

	switch {
	case frac < 0.5:
		return lower * 10
	case frac > 0.5:
		return (lower + 1) * 10
	default:
		if math.Mod(lower, 2) == 0 {
			return lower * 10
		}
		return (lower + 1) * 10
	}
}

// Step advances the population by exactly one generation, following
// Population.py's evolve(): the top elitismCount genomes survive
// unchanged into buf. From there, idx walks the remaining slots two at a
// time. Each pair is either bred — partner (a tournament winner or
// pop[idx], chosen 50/50) mated against the population's current best
// pop[0] — with probability Config.Crossover, or duplicated as
// {pop[idx], a tournament winner} otherwise. One mutation draw per pair
// then decides whether both members of that pair are mutated together.
// The assembled slice is truncated back to size, the bred/duplicated
// tail is rescored in parallel via pool, the slice is re-sorted, and
// Generation increments.
func (p *Population) Step(rng *rand.Rand, pool *workpool.Pool, gen *genome.Generator) {
	size := len(p.Genomes)
	elite := elitismCount(size, p.Config.Elitism)
	if elite > size {
		elite = size
	}
	if elite < 0 {
		elite = 0
	}

	next := make([]genome.Genome, 0, size+1)
	next = append(next, p.Genomes[:elite]...)

	idx := elite
	for idx < size {
		var pair [2]genome.Genome

		if rng.Float64() <= p.Config.Crossover {
			var partner genome.Genome
			if rng.IntN(2) == 1 {
				partner = p.Tournament(rng)
			} else {
				partner = p.Genomes[idx]
			}
			pair[0], pair[1] = genome.Mate(partner, p.Genomes[0])
		} else {
			pair[0], pair[1] = p.Genomes[idx], p.Tournament(rng)
		}

		if rng.Float64() <= p.Config.Mutation {
			pair[0] = genome.Mutate(pair[0], gen, rng)
			pair[1] = genome.Mutate(pair[1], gen, rng)
		}

		next = append(next, pair[0], pair[1])
		idx += 2
	}

	next = next[:size]

	// Elite genomes already carry a valid score; only rescore the bred
	// and duplicated tail.
	p.scoreAll(next[elite:], pool)
	SortByFitness(next)

	p.Genomes = next
	p.Generation++
	p.TotalScored += size - elite
}

// Best returns the fittest genome (index 0, since Genomes is always kept
// sorted ascending).
func (p *Population) Best() genome.Genome {
	return p.Genomes[0]
}

// EvolveToLevel runs Step repeatedly until the best genome's fitness is
// at or below level (0 means a perfect match), or ctx is canceled. ctx is
// checked only at generation boundaries — a generation already in
// progress always runs to completion. progress, if non-nil, receives one
// Update per generation via a non-blocking send so a slow consumer never
// stalls evolution.
func EvolveToLevel(ctx context.Context, p *Population, rng *rand.Rand, pool *workpool.Pool, gen *genome.Generator, level int, progress chan<- Update) genome.Genome {
	lastBest := p.Best().Fitness

	for p.Best().Fitness > uint64(level) {
		select {
		case <-ctx.Done():
			return p.Best()
		default:
		}

		p.Step(rng, pool, gen)

		best := p.Best()
		improved := best.Fitness < lastBest
		lastBest = best.Fitness

		if progress != nil {
			select {
			case progress <- Update{Generation: p.Generation, Best: best, Improved: improved}:
			default:
			}
		}
	}

	return p.Best()
}
