package loadgen

import "math/rand/v2"

// skew makes low item indexes more likely to be liked so the hot list has a
// clear head.
const skew = 1.2

// Plan assigns each of likes to an item index in [0, items).
func Plan(items, likes int, rng *rand.Rand) []int {
	if items <= 0 || likes <= 0 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	zipf := rand.NewZipf(rng, skew, 1, uint64(items-1))
	out := make([]int, likes)
	for i := range out {
		out[i] = int(zipf.Uint64())
	}
	return out
}
