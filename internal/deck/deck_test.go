package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapster88/briscola/internal/randutil"
)

func TestNewDeckHasEveryCardOnce(t *testing.T) {
	d := NewDeck(randutil.New(1))
	cards := d.Cards()
	require.Len(t, cards, Size)

	seen := make(map[Card]bool, Size)
	total := 0
	for _, c := range cards {
		assert.True(t, c.Valid(), "invalid card %s", c)
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
		total += c.Value()
	}
	assert.Equal(t, 120, total)
}

func TestDealHandsPartitionsDeck(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		hands := NewDeck(randutil.New(seed)).DealHands()
		require.Len(t, hands, Hands)

		seen := make(map[Card]bool, Size)
		for _, hand := range hands {
			require.Len(t, hand, HandSize)
			for _, c := range hand {
				assert.False(t, seen[c], "seed %d: card %s dealt twice", seed, c)
				seen[c] = true
			}
		}
		assert.Len(t, seen, Size)
	}
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	a := NewDeck(randutil.New(42))
	b := NewDeck(randutil.New(42))
	a.Shuffle()
	b.Shuffle()
	assert.Equal(t, a.Cards(), b.Cards())

	c := NewDeck(randutil.New(43))
	c.Shuffle()
	assert.NotEqual(t, a.Cards(), c.Cards())
}

func TestDealHandsReturnsIndependentSlices(t *testing.T) {
	d := NewDeck(randutil.New(7))
	hands := d.DealHands()
	first := hands[0][0]
	hands[0][0] = Card{}

	assert.Contains(t, d.Cards(), first)
}
