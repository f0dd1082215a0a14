// Package slug allocates the human-readable identifiers that address tasks.
//
// A slug is a normalised hint followed by a random suffix, for example
// "su-ruo-fan-k3v9x0qa". Allocation does not check uniqueness; the task store
// rejects reused slugs and callers retry with a fresh allocation.
package slug

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"

	gosimple "github.com/gosimple/slug"
)

const (
	// MaxLength is the longest slug Allocate will produce.
	MaxLength = 64

	// SuffixLength is the number of random characters appended to every slug.
	SuffixLength = 8

	alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// room left for the hint once the separator and suffix are accounted for
	maxHintLength = MaxLength - SuffixLength - 1
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Allocator produces candidate slugs.
type Allocator struct {
	random io.Reader
}

// NewAllocator creates an Allocator backed by crypto/rand.
func NewAllocator() *Allocator {
	return &Allocator{random: rand.Reader}
}

// NewAllocatorWithReader creates an Allocator drawing randomness from r.
// Tests use it to force deterministic or colliding suffixes.
func NewAllocatorWithReader(r io.Reader) *Allocator {
	return &Allocator{random: r}
}

// Allocate returns a candidate slug derived from hint. An empty or
// non-transliterable hint yields the random suffix alone.
func (a *Allocator) Allocate(hint string) (string, error) {
	suffix, err := a.suffix()
	if err != nil {
		return "", fmt.Errorf("failed to generate slug suffix: %w", err)
	}

	base := Normalize(hint)
	if base == "" {
		return suffix, nil
	}
	return base + "-" + suffix, nil
}

// Normalize transliterates hint to ASCII, lowercases it, collapses runs of
// anything outside [a-z0-9] into a single hyphen and trims the result so that
// a suffixed slug still fits MaxLength.
func Normalize(hint string) string {
	s := gosimple.Make(hint)
	s = nonAlnum.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxHintLength {
		s = strings.TrimRight(s[:maxHintLength], "-")
	}
	return s
}

func (a *Allocator) suffix() (string, error) {
	size := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, SuffixLength)
	for i := range buf {
		n, err := rand.Int(a.random, size)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
