// Package id generates time-sortable trade identifiers.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces ULID strings from a single entropy source.
// IDs generated within the same millisecond remain lexicographically
// increasing, so trade records stay naturally ordered in the journal.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator builds a Generator over the given random source. A seeded
// source yields a reproducible ID stream, which keeps deterministic
// simulation replays byte-comparable.
func NewGenerator(r *rand.Rand) *Generator {
	return &Generator{entropy: ulid.Monotonic(r, 0)}
}

// New returns the next ULID string.
func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(time.Now().UTC()), g.entropy)
	if err != nil {
		// Only possible if time goes backwards or entropy fails.
		panic(err)
	}
	return u.String()
}

var defaultGen *Generator

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	defaultGen = NewGenerator(rand.New(rand.NewSource(seed)))
}

// New returns a ULID string from the process-wide generator.
func New() string { return defaultGen.New() }
