package gameid

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Base32 alphabet used by TypeID (Crockford's base32)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded game ID
const Length = 26

// Generator creates game IDs, drawing randomness from an optional reader
type Generator struct {
	rand io.Reader
}

// NewGenerator creates a generator; a nil reader uses crypto/rand
func NewGenerator(rand io.Reader) *Generator {
	return &Generator{rand: rand}
}

// Generate creates a new game ID using UUIDv7 encoded as 26-character base32 string
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new game ID from the generator's randomness
func (g *Generator) Generate() string {
	var (
		id  uuid.UUID
		err error
	)
	if g.rand != nil {
		id, err = uuid.NewV7FromReader(g.rand)
	} else {
		id, err = uuid.NewV7()
	}
	if err != nil {
		panic("failed to generate game id: " + err.Error())
	}
	return Encode(id)
}

// Encode writes the 128 bits of id, prefixed by two zero bits, as 26
// base32 characters. The first character is therefore always 0-7.
func Encode(id uuid.UUID) string {
	var out [Length]byte
	for c := range Length {
		var v byte
		for b := range 5 {
			v <<= 1
			if pos := c*5 + b - 2; pos >= 0 {
				v |= (id[pos/8] >> (7 - pos%8)) & 1
			}
		}
		out[c] = alphabet[v]
	}
	return string(out[:])
}

// Parse decodes a game ID back into its UUID
func Parse(s string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := Validate(s); err != nil {
		return id, err
	}
	for c := range Length {
		v := byte(strings.IndexByte(alphabet, s[c]))
		for b := range 5 {
			pos := c*5 + b - 2
			if pos < 0 || (v>>(4-b))&1 == 0 {
				continue
			}
			id[pos/8] |= 1 << (7 - pos%8)
		}
	}
	return id, nil
}

// Validate checks if a game ID is valid (26 characters, valid base32)
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("game ID must be exactly %d characters, got %d", Length, len(id))
	}

	// The leading character carries only 3 bits
	if id[0] > '7' {
		return fmt.Errorf("game ID first character must be 0-7, got %c", id[0])
	}

	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
