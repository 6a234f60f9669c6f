// Package seed validates dungeon seeds and turns them into the per-floor
// random streams every generation stage draws from.
package seed

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// Length is the number of digits in a dungeon seed.
const Length = 10

var (
	// ErrMalformed is returned for seeds that are not exactly Length digits.
	ErrMalformed = errors.New("seed: must be exactly 10 digits")
)

// Validate checks that s is a Length-digit numeric string.
func Validate(s string) error {
	if len(s) != Length {
		return fmt.Errorf("%w: got %q", ErrMalformed, s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: got %q", ErrMalformed, s)
		}
	}
	return nil
}

// Increment returns s + 1, zero padded. Incrementing 9999999999 wraps to
// 0000000000.
func Increment(s string) (string, error) {
	if err := Validate(s); err != nil {
		return "", err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	next := strconv.FormatUint(n+1, 10)
	if len(next) > Length {
		return strings.Repeat("0", Length), nil
	}
	return strings.Repeat("0", Length-len(next)) + next, nil
}

// Floor returns the seed of the n-th floor generated in a run: s incremented
// n times. The first floor uses s itself.
func Floor(s string, n int) (string, error) {
	cur := s
	if err := Validate(cur); err != nil {
		return "", err
	}
	for i := 0; i < n; i++ {
		next, err := Increment(cur)
		if err != nil {
			return "", err
		}
		cur = next
	}
	return cur, nil
}

// Generate returns a fresh random seed for runs started without one.
func Generate() string {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var b strings.Builder
	for i := 0; i < Length; i++ {
		b.WriteByte(byte('0' + r.Intn(10)))
	}
	return b.String()
}

// Hash folds a seed string into a 63-bit rand source seed through sha256.
func Hash(s string) int64 {
	sum := sha256.Sum256([]byte(s))
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}
