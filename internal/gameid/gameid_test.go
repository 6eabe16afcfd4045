package gameid

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	assert.Len(t, id, Length)
	require.NoError(t, Validate(id))
	assert.LessOrEqual(t, id[0], byte('7'))
}

func TestGenerateUnique(t *testing.T) {
	ids := make(map[string]bool)
	for range 100 {
		id := Generate()
		require.False(t, ids[id], "duplicate ID generated: %s", id)
		ids[id] = true
	}
}

func TestGenerateTimeSorted(t *testing.T) {
	var ids []string
	for range 10 {
		ids = append(ids, Generate())
		time.Sleep(time.Millisecond)
	}

	// UUIDv7 IDs sort by creation time
	for i := 1; i < len(ids); i++ {
		assert.Negative(t, strings.Compare(ids[i-1], ids[i]), "IDs not sorted: %s >= %s", ids[i-1], ids[i])
	}
}

func TestParseRoundTrip(t *testing.T) {
	id := Generate()
	u, err := Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), u.Version())
	assert.Equal(t, uuid.RFC4122, u.Variant())
	assert.Equal(t, id, Encode(u))

	known := uuid.MustParse("0188e0a3-7a5b-7c3d-8e9f-0123456789ab")
	back, err := Parse(Encode(known))
	require.NoError(t, err)
	assert.Equal(t, known, back)

	assert.Equal(t, strings.Repeat("0", Length), Encode(uuid.Nil))
	assert.Equal(t, "7"+strings.Repeat("z", Length-1), Encode(uuid.Max))
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse("not-an-id")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid ID", "01h5n0et5q6mt3v7ms1234abcd", false},
		{"too short", "01h5n0et5q6mt3v7ms123", true},
		{"too long", "01h5n0et5q6mt3v7ms1234abcdef", true},
		{"first char too high", "81h5n0et5q6mt3v7ms1234abcd", true},
		{"invalid character", "01h5n0et5q6mt3v7ms1234abci", true},
		{"uppercase not allowed", "01H5N0ET5Q6MT3V7MS1234ABCD", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAlphabet(t *testing.T) {
	require.Len(t, alphabet, 32)

	seen := make(map[rune]bool)
	for _, char := range alphabet {
		assert.False(t, seen[char], "duplicate character in alphabet: %c", char)
		seen[char] = true
	}

	// Crockford drops i, l, o and u
	for _, char := range "ilou" {
		assert.NotContains(t, alphabet, string(char))
	}
}

func TestGeneratorWithReader(t *testing.T) {
	gen := NewGenerator(bytes.NewReader(bytes.Repeat([]byte{0xab}, 64)))

	var ids []string
	for range 3 {
		id := gen.Generate()
		require.NoError(t, Validate(id))
		ids = append(ids, id)
	}

	// Same random bytes, still unique thanks to the v7 clock sequence
	assert.Len(t, map[string]bool{ids[0]: true, ids[1]: true, ids[2]: true}, 3)
}
