// Package hash produces fixed-length abbrlink identifiers from SHA-256 digests.
package hash

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"math/big"
	"strings"
)

// Encoding is the alphabet an identifier is rendered in.
type Encoding string

const (
	EncodingHex     Encoding = "hex"
	EncodingDecimal Encoding = "decimal"
)

// IsValidEncoding checks if an encoding string is known.
func IsValidEncoding(e Encoding) bool {
	switch e {
	case EncodingHex, EncodingDecimal:
		return true
	default:
		return false
	}
}

// Mode selects how an identifier is derived for a document.
type Mode int

const (
	// ModeName hashes the document name, so the same name always yields the same identifier.
	ModeName Mode = iota
	// ModeRandom hashes fresh random bytes and ignores the name.
	ModeRandom
)

const randomSize = 32 // 256 bits of entropy per draw

// Encode renders digest bytes as an identifier of exactly length characters.
//
// Hex output is the lowercase hex string cut to its first length characters.
// Decimal output reads the bytes as a big-endian unsigned integer, left-pads
// with zeros when short and keeps the last length digits when long.
func Encode(b []byte, length int, enc Encoding) string {
	if enc == EncodingDecimal {
		s := new(big.Int).SetBytes(b).String()
		if len(s) < length {
			return strings.Repeat("0", length-len(s)) + s
		}
		return s[len(s)-length:]
	}

	s := hex.EncodeToString(b)
	if len(s) < length {
		return strings.Repeat("0", length-len(s)) + s
	}
	return s[:length]
}

// Generator creates identifiers for a fixed length and encoding.
type Generator struct {
	length   int
	encoding Encoding
	random   io.Reader
}

// NewGenerator creates a Generator drawing randomness from crypto/rand.
func NewGenerator(length int, enc Encoding) *Generator {
	return &Generator{length: length, encoding: enc, random: rand.Reader}
}

// WithRandom returns a copy of g that draws random bytes from r.
func (g *Generator) WithRandom(r io.Reader) *Generator {
	c := *g
	c.random = r
	return &c
}

// Length returns the identifier length g produces.
func (g *Generator) Length() int {
	return g.length
}

// Encoding returns the alphabet g renders identifiers in.
func (g *Generator) Encoding() Encoding {
	return g.encoding
}

// FromName derives a deterministic identifier from a document name.
func (g *Generator) FromName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return Encode(sum[:], g.length, g.encoding)
}

// FromRandom derives an identifier from fresh random bytes.
func (g *Generator) FromRandom() string {
	buf := make([]byte, randomSize)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		panic("random source failed: " + err.Error())
	}
	sum := sha256.Sum256(buf)
	return Encode(sum[:], g.length, g.encoding)
}

// Generate derives an identifier for name using the given mode.
func (g *Generator) Generate(name string, mode Mode) string {
	if mode == ModeRandom {
		return g.FromRandom()
	}
	return g.FromName(name)
}
