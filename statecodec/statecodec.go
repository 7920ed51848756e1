// ABOUTME: Bit-exact text encoding/decoding for a population save-state blob
// ABOUTME: Fitness is never trusted from the file — every gene is rescored on decode

// Package statecodec serializes and deserializes a population.Population
// to the save-state text format: one semicolon-delimited field per line,
// a triple-newline separator after the target, then one gene per line.
package statecodec

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"bfevolve/genome"
	"bfevolve/population"
)

const fieldSep = ";;\n"
const targetSep = ";;\n\n\n"

// Encode renders p into the save-state text format.
func Encode(p *population.Population) []byte {
	var buf bytes.Buffer

	buf.WriteString(string(p.Target))
	buf.WriteString(targetSep)

	writeFloat(&buf, p.Config.Elitism)
	writeFloat(&buf, p.Config.Mutation)
	writeFloat(&buf, p.Config.Crossover)
	writeInt(&buf, p.Config.Size)
	writeInt(&buf, p.TotalScored)
	writeInt(&buf, p.Generation)

	for _, g := range p.Genomes {
		buf.WriteString(string(g.Program))
		buf.WriteString(fieldSep)
	}

	return buf.Bytes()
}

func writeFloat(buf *bytes.Buffer, v float64) {
	buf.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	buf.WriteString(fieldSep)
}

func writeInt(buf *bytes.Buffer, v int) {
	buf.WriteString(strconv.Itoa(v))
	buf.WriteString(fieldSep)
}

// Decode parses data produced by Encode back into a *population.Population.
// Target and the configuration knobs are assigned verbatim from the blob;
// every gene is rescored via genome.Score rather than trusted from the
// file, per spec.md's "fitness is recomputed, not stored" rule. knobs'
// TapeSize/TimeLimit/Optimize fields (not part of the blob) are taken from
// the scoreKnobs argument, since the save format only carries
// elitism/mutation/crossover/size. Rescoring can reorder genomes relative
// to what was on disk, so the result is re-sorted via
// population.SortByFitness before returning, restoring the
// sorted-by-fitness invariant the rest of the package relies on.
func Decode(data []byte, scoreKnobs population.Knobs, gen *genome.Generator, pool scorePool) (*population.Population, error) {
	raw := string(data)

	targetPart, rest, ok := strings.Cut(raw, targetSep)
	if !ok {
		return nil, fmt.Errorf("statecodec: decode: missing target separator %q", targetSep)
	}
	target := []byte(targetPart)

	fields, rest, ok := takeFields(rest, 3)
	if !ok {
		return nil, fmt.Errorf("statecodec: decode: truncated before crossover/mutation/elitism fields")
	}
	elitism, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, fmt.Errorf("statecodec: decode: elitism: %w", err)
	}
	mutation, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, fmt.Errorf("statecodec: decode: mutation: %w", err)
	}
	crossover, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, fmt.Errorf("statecodec: decode: crossover: %w", err)
	}

	fields, rest, ok = takeFields(rest, 3)
	if !ok {
		return nil, fmt.Errorf("statecodec: decode: truncated before size/total/generation fields")
	}
	size, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("statecodec: decode: size: %w", err)
	}
	total, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("statecodec: decode: total scored: %w", err)
	}
	gen_, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("statecodec: decode: generation: %w", err)
	}

	lines := splitFields(rest)
	if len(lines) != size {
		return nil, fmt.Errorf("statecodec: decode: expected %d genes, found %d", size, len(lines))
	}

	knobs := scoreKnobs
	knobs.Elitism = elitism
	knobs.Mutation = mutation
	knobs.Crossover = crossover
	knobs.Size = size

	p := &population.Population{
		Target:      target,
		Generation:  gen_,
		TotalScored: total,
		Config:      knobs,
	}

	genomes := make([]genome.Genome, size)
	for i, line := range lines {
		genomes[i] = genome.Genome{Program: []byte(line)}
	}

	scoreGenomes(p, genomes, knobs, pool)
	population.SortByFitness(genomes)

	p.Genomes = genomes

	return p, nil
}

// scorePool is the minimal interface Decode needs to parallelize
// rescoring; population.Population's own scoring machinery is
// unexported, so Decode threads the work through the same ScoreConfig
// shape genome.Score expects, serially unless a pool is supplied.
type scorePool interface {
	Submit(func())
	Wait()
}

func scoreGenomes(p *population.Population, genomes []genome.Genome, knobs population.Knobs, pool scorePool) {
	cfg := genome.ScoreConfig{
		Target:    p.Target,
		TapeSize:  knobs.TapeSize,
		TimeLimit: knobs.TimeLimit,
		Optimize:  knobs.Optimize,
	}

	if pool == nil {
		for i := range genomes {
			genomes[i] = genome.Score(genomes[i], cfg)
		}
		return
	}

	for i := range genomes {
		i := i
		pool.Submit(func() {
			genomes[i] = genome.Score(genomes[i], cfg)
		})
	}
	pool.Wait()
}

// takeFields consumes n fieldSep-terminated fields from the front of s,
// returning them plus the remainder.
func takeFields(s string, n int) (fields []string, rest string, ok bool) {
	fields = make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := strings.Index(s, fieldSep)
		if idx < 0 {
			return nil, "", false
		}
		fields = append(fields, s[:idx])
		s = s[idx+len(fieldSep):]
	}
	return fields, s, true
}

// splitFields splits the trailing gene section into one string per
// fieldSep-terminated line, ignoring a final empty trailing segment.
func splitFields(s string) []string {
	parts := strings.Split(s, fieldSep)
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
