// Package ident generates identifiers for injected requests.
//
// Identifiers have the form <prefix>_<digits>, where digits are the
// fractional decimal digits of a uniform random number. They double as
// script element ids and as the last segment of a callback reference, so
// they must be unique among the entries currently in use.
package ident

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

const (
	// DefaultPrefix is prepended to every generated identifier.
	DefaultPrefix = "vixen"

	// DefaultMaxAttempts bounds regeneration when identifiers collide.
	DefaultMaxAttempts = 32
)

// ErrExhausted is returned when no free identifier was found within the
// configured number of attempts.
var ErrExhausted = errors.New("no unique identifier found")

// Generator produces identifiers that avoid a caller-supplied collision set.
//
// Generator holds no mutable state and is safe for concurrent use as long as
// the random source is.
type Generator struct {
	prefix      string
	maxAttempts int
	random      func() float64
}

// New creates a [Generator].
//
// An empty prefix falls back to [DefaultPrefix], a non-positive maxAttempts
// to [DefaultMaxAttempts], and a nil random source to math/rand/v2.
func New(prefix string, maxAttempts int, random func() float64) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if random == nil {
		random = rand.Float64
	}
	return &Generator{
		prefix:      prefix,
		maxAttempts: maxAttempts,
		random:      random,
	}
}

// Prefix returns the identifier prefix.
func (g *Generator) Prefix() string {
	return g.prefix
}

// Next returns an identifier for which taken reports false.
//
// A nil taken treats every identifier as free. After maxAttempts collisions
// Next gives up and returns an error wrapping [ErrExhausted].
func (g *Generator) Next(taken func(id string) bool) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		id := g.prefix + "_" + digits(g.random())
		if taken == nil || !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %d attempts with prefix %q", ErrExhausted, g.maxAttempts, g.prefix)
}

// digits renders f and keeps what follows the decimal point.
func digits(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if idx := strings.LastIndexByte(s, '.'); idx != -1 {
		return s[idx+1:]
	}
	return s
}
