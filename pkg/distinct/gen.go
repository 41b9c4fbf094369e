package distinct

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
)

// Source is the random capability a run consumes: independent uniform draws
// in [0,1). Both *Gen and *math/rand.Rand satisfy it, and any generator with
// the same statistical contract is substitutable without affecting
// correctness. A Source is owned by one run at a time; sharing one across
// concurrent runs requires external synchronization.
type Source interface {
	Float64() float64
}

// Gen is the default Random Source: a thin wrapper around math/rand that is
// either fully deterministic under an explicit seed or seeded from the
// operating system's entropy pool.
type Gen struct {
	rng *rand.Rand
}

// NewGen returns a source whose draw sequence is fully determined by seed.
func NewGen(seed uint64) *Gen {
	return &Gen{rng: rand.New(rand.NewSource(int64(seed)))}
}

// NewGenFromEntropy returns a source seeded with EntropySeed; its draws
// differ from run to run.
func NewGenFromEntropy() *Gen {
	return NewGen(EntropySeed())
}

// EntropySeed draws a seed from the operating system's entropy pool, 8
// bytes read little-endian. Callers that need a reproducible record of an
// otherwise random run can draw the seed themselves, report it, and pass
// it to NewGen.
func EntropySeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("distinct: reading entropy: " + err.Error())
	}

	return binary.LittleEndian.Uint64(b[:])
}

// Float64 returns the next uniform draw in [0,1).
func (g *Gen) Float64() float64 {
	return g.rng.Float64()
}
