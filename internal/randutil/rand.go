package randutil

import (
	"hash/fnv"
	rand "math/rand/v2"
	"time"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// ForGame derives a per-game generator from a root seed and a game id, so a
// restarted service with the same seed deals the same cards for the same game.
func ForGame(root int64, gameID string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(gameID))
	return New(int64(mix(uint64(root)) ^ h.Sum64()))
}

// TimeSeed returns a seed for runs that did not ask for determinism.
func TimeSeed() int64 {
	return time.Now().UnixNano()
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
