// ABOUTME: Tests for the save-state text codec's round-trip and error paths

package statecodec

import (
	"strings"
	"testing"
	"time"

	"bfevolve/genome"
	"bfevolve/population"
)

func testKnobs() population.Knobs {
	return population.Knobs{
		Size:      2,
		Elitism:   0.5,
		Crossover: 0.6,
		Mutation:  0.7,
		TapeSize:  1000,
		TimeLimit: 20 * time.Millisecond,
	}
}

func samplePopulation() *population.Population {
	return &population.Population{
		Target:      []byte("H"),
		Generation:  3,
		TotalScored: 256,
		Config:      testKnobs(),
		Genomes: []genome.Genome{
			{Program: []byte("++++++++[>+++++++++<-]>.")},
			{Program: []byte("+++.")},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := samplePopulation()
	blob := Encode(p)

	decoded, err := Decode(blob, testKnobs(), &genome.Generator{}, nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if string(decoded.Target) != string(p.Target) {
		t.Errorf("target mismatch: got %q, want %q", decoded.Target, p.Target)
	}
	if decoded.Generation != p.Generation {
		t.Errorf("generation mismatch: got %d, want %d", decoded.Generation, p.Generation)
	}
	if decoded.TotalScored != p.TotalScored {
		t.Errorf("total scored mismatch: got %d, want %d", decoded.TotalScored, p.TotalScored)
	}
	if decoded.Config.Elitism != p.Config.Elitism || decoded.Config.Mutation != p.Config.Mutation || decoded.Config.Crossover != p.Config.Crossover {
		t.Errorf("knobs mismatch: got %+v, want elitism=%v mutation=%v crossover=%v",
			decoded.Config, p.Config.Elitism, p.Config.Mutation, p.Config.Crossover)
	}
	if len(decoded.Genomes) != len(p.Genomes) {
		t.Fatalf("gene count mismatch: got %d, want %d", len(decoded.Genomes), len(p.Genomes))
	}
	for i, g := range decoded.Genomes {
		if string(g.Program) != string(p.Genomes[i].Program) {
			t.Errorf("gene %d program mismatch: got %q, want %q", i, g.Program, p.Genomes[i].Program)
		}
	}
}

func TestDecodeRescoresRatherThanTrustingStoredFitness(t *testing.T) {
	p := samplePopulation()
	blob := Encode(p)

	decoded, err := Decode(blob, testKnobs(), &genome.Generator{}, nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// The first gene prints "H", matching target "H" exactly.
	if decoded.Genomes[0].Fitness != 0 {
		t.Errorf("expected rescored fitness 0 for the H-printing gene, got %d", decoded.Genomes[0].Fitness)
	}
	if !decoded.Genomes[0].Scored {
		t.Error("expected decoded genome to be marked scored")
	}
}

func TestDecodeMissingTargetSeparator(t *testing.T) {
	_, err := Decode([]byte("no separator here"), testKnobs(), &genome.Generator{}, nil)
	if err == nil {
		t.Fatal("expected an error for a blob missing the target separator")
	}
}

func TestDecodeTruncatedGeneCount(t *testing.T) {
	p := samplePopulation()
	blob := Encode(p)

	// Drop the last gene line to simulate truncation while keeping size=2.
	s := string(blob)
	truncated := strings.TrimSuffix(s, "+++.;;\n")

	_, err := Decode([]byte(truncated), testKnobs(), &genome.Generator{}, nil)
	if err == nil {
		t.Fatal("expected an error for a blob with fewer genes than its declared size")
	}
}
