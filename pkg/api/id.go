package api

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"sync/atomic"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	callIDPrefix     = "call_"
	responseIDPrefix = "resp_"
)

var callIDPattern = regexp.MustCompile(`^call_[a-zA-Z0-9_]+$`)

// IDGenerator produces identifiers for upstream requests and synthesized
// function calls. It is an explicitly constructed handle, not ambient
// process state; the deterministic form exists for replay and conformance
// tooling that needs stable output across runs.
type IDGenerator struct {
	seq *atomic.Uint64 // non-nil in deterministic mode
}

// NewIDGenerator returns a generator backed by crypto/rand.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// NewDeterministicIDGenerator returns a generator that emits sequential
// identifiers (call_1, call_2, ...) for reproducible streams.
func NewDeterministicIDGenerator() *IDGenerator {
	return &IDGenerator{seq: &atomic.Uint64{}}
}

// CallID generates an identifier for a function call.
func (g *IDGenerator) CallID() string {
	if g.seq != nil {
		return fmt.Sprintf("%s%d", callIDPrefix, g.seq.Add(1))
	}
	return callIDPrefix + randomAlphanumeric(idLength)
}

// ResponseID generates an identifier for an upstream request.
func (g *IDGenerator) ResponseID() string {
	if g.seq != nil {
		return fmt.Sprintf("%s%d", responseIDPrefix, g.seq.Add(1))
	}
	return responseIDPrefix + randomAlphanumeric(idLength)
}

// ValidateCallID checks whether the given string is a well-formed call ID.
func ValidateCallID(id string) bool {
	return callIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
