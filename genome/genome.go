// ABOUTME: Random program synthesis, crossover, mutation, and fitness scoring for Brainfuck genomes
// ABOUTME: A Genome is immutable once constructed; evolution replaces it, never edits it in place

// Package genome implements the GA's unit of selection: a Brainfuck
// program paired with its captured output and fitness score. Genomes are
// produced by three pure operations — random synthesis, one-point
// crossover, and mutation — and scored by running them through package bf.
package genome

import (
	"math/rand/v2"
	"time"

	"bfevolve/bf"
)

// MostUnfit is the sentinel fitness assigned to any genome whose program
// errors, times out, or produces no output. Real (uint64-accumulated)
// scores stay below it only for short targets: an equal-length score is
// at most 255 * Σk² and stays below it for targets up to 369 bytes, and a
// length-mismatch score (10,000,000 per byte of difference) stays below it
// up to a 429-byte difference, before any optimize penalty. Larger real
// scores are not capped and rank worse than MostUnfit.
const MostUnfit = uint64(1<<32 - 1)

// defaultStmtCount is the number of statements concatenated by program().
const defaultStmtCount = 20

// garbageLen is the number of random ops emitted by garbage() and by the
// add-garbage mutation operator.
const garbageLen = 32

// maxStmtDepth bounds the recursive "[ stmt ]" sub-expression so an
// unlucky run of random choices can't recurse indefinitely; it has no
// effect on the sampled distribution in practice since recursion is one
// of six equally-likely sub-expression kinds at each level.
const maxStmtDepth = 6

// Genome is an immutable candidate program plus its last scoring result.
// Scored is false until Score has run; on a scored genome a zero Fitness
// is a perfect match.
type Genome struct {
	Program []byte
	Output  []byte
	Fitness uint64
	Scored  bool
}

// Generator produces random program text. Track enables the alternate
// statement generator from spec.md §9's design note: it carries a
// notional data-pointer position as an explicit field (never global
// state) so generated '<' runs don't wildly overshoot tape start. The
// zero-value Generator (Track == false) is the simpler, still-conformant
// variant that draws '<' runs the same way as every other direction.
type Generator struct {
	Track bool
	// StmtCount overrides the number of statements Random concatenates
	// via Program; zero means defaultStmtCount.
	StmtCount int
	ptr       int
}

// addCharSet is the alphabet for the add-char mutation operator.
var addCharSet = []byte{'.', '>', '<', '+', '-'}

// changeSet is the alphabet for the change mutation operator.
var changeSet = []byte{'.', '>', '<', '-', '+'}

// garbageSet is the alphabet for garbage() and the add-garbage operator.
var garbageSet = []byte{'[', ']', '<', '>', '-', '+', '.'}

// Program concatenates n random statements, per spec.md §4.2's program()
// generator. Each program starts at tape cell 0, so the tracked pointer
// position restarts at 0 on every call.
func (g *Generator) Program(rng *rand.Rand, n int) []byte {
	if n <= 0 {
		n = defaultStmtCount
	}
	g.ptr = 0
	var out []byte
	for i := 0; i < n; i++ {
		out = append(out, g.Stmt(rng)...)
	}
	return out
}

// Stmt draws one statement: one or two back-to-back sub-expressions.
func (g *Generator) Stmt(rng *rand.Rand) []byte {
	n := 1
	if rng.IntN(2) == 1 {
		n = 2
	}
	var out []byte
	for i := 0; i < n; i++ {
		out = append(out, g.subExpr(rng, 0)...)
	}
	return out
}

// subExpr draws one of six equally-likely sub-expressions: a recursive
// "[ stmt ]", a run of -/+/>/< of uniform(0,16) length, or ".".
func (g *Generator) subExpr(rng *rand.Rand, depth int) []byte {
	switch rng.IntN(6) {
	case 0:
		if depth >= maxStmtDepth {
			return []byte{'.'}
		}
		inner := g.stmtAt(rng, depth+1)
		out := make([]byte, 0, len(inner)+2)
		out = append(out, '[')
		out = append(out, inner...)
		out = append(out, ']')
		return out
	case 1:
		return repeatByte('-', rng.IntN(17))
	case 2:
		return repeatByte('+', rng.IntN(17))
	case 3:
		n := rng.IntN(17)
		if g.Track {
			g.ptr += n
		}
		return repeatByte('>', n)
	case 4:
		limit := 16
		if g.Track {
			if g.ptr == 0 {
				return nil
			}
			if g.ptr < limit {
				limit = g.ptr
			}
		}
		n := rng.IntN(limit + 1)
		if g.Track {
			g.ptr -= n
		}
		return repeatByte('<', n)
	default:
		return []byte{'.'}
	}
}

// stmtAt is Stmt with an explicit recursion depth, used by the recursive
// loop sub-expression so depth is tracked through nested loops.
func (g *Generator) stmtAt(rng *rand.Rand, depth int) []byte {
	n := 1
	if rng.IntN(2) == 1 {
		n = 2
	}
	var out []byte
	for i := 0; i < n; i++ {
		out = append(out, g.subExpr(rng, depth)...)
	}
	return out
}

func repeatByte(b byte, n int) []byte {
	if n <= 0 {
		return nil
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// Garbage draws 32 uniformly-random Brainfuck-alphabet bytes, per
// spec.md §4.2's garbage() generator. It carries no pointer-tracking
// state since it ignores program structure entirely.
func Garbage(rng *rand.Rand) []byte {
	out := make([]byte, garbageLen)
	for i := range out {
		out[i] = garbageSet[rng.IntN(len(garbageSet))]
	}
	return out
}

// Random produces a fresh, unscored genome: 50/50 between the statement
// generator and raw garbage, per spec.md §4.2.
func Random(rng *rand.Rand, g *Generator) Genome {
	var program []byte
	if rng.Float64() < 0.5 {
		n := g.StmtCount
		if n <= 0 {
			n = defaultStmtCount
		}
		program = g.Program(rng, n)
	} else {
		program = Garbage(rng)
	}
	return Genome{Program: program}
}

// Mate performs one-point crossover at each parent's integer-floor
// midpoint, producing two children. It is deterministic given its
// inputs — spec.md describes no randomness in the cut point itself.
func Mate(a, b Genome) (Genome, Genome) {
	midA := len(a.Program) / 2
	midB := len(b.Program) / 2

	child1 := make([]byte, 0, midA+len(b.Program)-midB)
	child1 = append(child1, a.Program[:midA]...)
	child1 = append(child1, b.Program[midB:]...)

	child2 := make([]byte, 0, midB+len(a.Program)-midA)
	child2 = append(child2, b.Program[:midB]...)
	child2 = append(child2, a.Program[midA:]...)

	return Genome{Program: child1}, Genome{Program: child2}
}

// Mutate applies one of eight operators, chosen uniformly at random. If
// the genome is too short (length <= 2) to mutate meaningfully, a fresh
// random genome is returned instead, per spec.md's short-genome guard.
func Mutate(in Genome, g *Generator, rng *rand.Rand) Genome {
	if len(in.Program) <= 2 {
		return Random(rng, g)
	}

	gene := append([]byte(nil), in.Program...)

	switch rng.IntN(8) {
	case 0: // move: remove a random character, re-insert at a random new position
		idx := rng.IntN(len(gene))
		ch := gene[idx]
		gene = removeAt(gene, idx)
		gene = insertByte(gene, rng.IntN(len(gene)+1), ch)
	case 1: // copy: duplicate a random character in place
		idx := rng.IntN(len(gene))
		gene = insertByte(gene, idx, gene[idx])
	case 2: // add-char: insert one random character from a fixed alphabet
		idx := rng.IntN(len(gene) + 1)
		gene = insertByte(gene, idx, addCharSet[rng.IntN(len(addCharSet))])
	case 3: // add-stmt: insert one random statement
		idx := rng.IntN(len(gene) + 1)
		gene = insertSlice(gene, idx, g.Stmt(rng))
	case 4: // change: overwrite a random character
		idx := rng.IntN(len(gene))
		gene[idx] = changeSet[rng.IntN(len(changeSet))]
	case 5: // snip: remove 1..len/2 characters from the front or back
		maxSize := len(gene) / 2
		size := 1 + rng.IntN(maxSize)
		if rng.Uint32()&1 == 0 {
			gene = gene[:len(gene)-size]
		} else {
			gene = gene[size:]
		}
	case 6: // remove: delete the character at a random index, including index 0
		idx := rng.IntN(len(gene))
		gene = removeAt(gene, idx)
	case 7: // add-garbage: insert 32 random characters
		idx := rng.IntN(len(gene) + 1)
		gene = insertSlice(gene, idx, Garbage(rng))
	}

	if len(gene) < 2 {
		return Random(rng, g)
	}

	return Genome{Program: gene}
}

func removeAt(s []byte, idx int) []byte {
	return append(s[:idx], s[idx+1:]...)
}

func insertByte(s []byte, idx int, b byte) []byte {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = b
	return s
}

func insertSlice(s []byte, idx int, ins []byte) []byte {
	out := make([]byte, 0, len(s)+len(ins))
	out = append(out, s[:idx]...)
	out = append(out, ins...)
	out = append(out, s[idx:]...)
	return out
}

// ScoreConfig is the immutable per-call configuration for Score, replacing
// the original's class-level mutable target/optimize flags per spec.md
// §9's design note.
type ScoreConfig struct {
	Target    []byte
	TapeSize  int
	TimeLimit time.Duration
	Optimize  bool
	// Tape, if non-nil, is a reusable scratch tape passed through to
	// bf.Run to avoid a fresh allocation per scoring call.
	Tape *bf.Tape
}

// Score runs in through the Brainfuck interpreter and returns a new Genome
// with Output and Fitness populated. Smaller fitness is better; 0 is a
// perfect match. Any interpreter failure, a timeout, or empty output
// yields MostUnfit, per spec.md §4.2/§7.
func Score(in Genome, cfg ScoreConfig) Genome {
	res, err := bf.Run(in.Program, bf.RunOptions{
		TapeSize:     cfg.TapeSize,
		TimeLimit:    cfg.TimeLimit,
		BufferStdout: true,
		Tape:         cfg.Tape,
	})
	if err != nil || len(res.Output) < 1 {
		return Genome{Program: in.Program, Fitness: MostUnfit, Scored: true}
	}

	out := res.Output
	target := cfg.Target

	if len(out) != len(target) {
		diff := len(out) - len(target)
		if diff < 0 {
			diff = -diff
		}
		fitness := uint64(diff) * 10_000_000
		if cfg.Optimize {
			fitness += uint64(len(in.Program))
		}
		return Genome{Program: in.Program, Output: out, Fitness: fitness, Scored: true}
	}

	var sum uint64
	for i := range out {
		posWeight := uint64(len(out) - i)
		d := int(out[i]) - int(target[i])
		if d < 0 {
			d = -d
		}
		sum += posWeight * posWeight * uint64(d)
	}

	if sum == 0 {
		return Genome{Program: in.Program, Output: out, Fitness: 0, Scored: true}
	}

	if cfg.Optimize {
		sum += uint64(len(in.Program))
	}

	return Genome{Program: in.Program, Output: out, Fitness: sum, Scored: true}
}
