package darkweb

import (
	"hash/fnv"
	"math"
	"sync"
)

// urlFilter is a fixed-size Bloom filter over crawled URLs, sized for
// 10M capacity at a 0.1% false-positive rate (§4.9.4 step 1). No
// ecosystem Bloom-filter package appeared anywhere in the retrieved
// reference repos, so this is a small, self-contained bit array built on
// the standard library's hash/fnv.
type urlFilter struct {
	mu    sync.Mutex
	bits  []uint64
	m     uint64 // number of bits
	k     int    // number of hash rounds
}

// newURLFilter sizes the filter for n expected items at false-positive
// rate p, using the standard m = -n·ln(p)/ln(2)^2 and k = (m/n)·ln(2).
func newURLFilter(n uint64, p float64) *urlFilter {
	m := uint64(math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)))
	k := int(math.Round((float64(m) / float64(n)) * math.Ln2))
	if k < 1 {
		k = 1
	}
	words := (m + 63) / 64
	return &urlFilter{bits: make([]uint64, words), m: m, k: k}
}

// newDefaultURLFilter builds the filter sized per §4.9.4 (10M capacity,
// 0.1% false-positive rate).
func newDefaultURLFilter() *urlFilter {
	return newURLFilter(10_000_000, 0.001)
}

// Contains reports whether url is probably already in the filter.
func (f *urlFilter) Contains(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, idx := range f.indices(url) {
		word, bit := idx/64, idx%64
		if f.bits[word]&(1<<bit) == 0 {
			return false
		}
	}
	return true
}

// Add inserts url into the filter.
func (f *urlFilter) Add(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, idx := range f.indices(url) {
		word, bit := idx/64, idx%64
		f.bits[word] |= 1 << bit
	}
}

// indices computes f.k bit positions for url via double hashing
// (h1 + i·h2 mod m), the standard technique for deriving many hash
// functions from two independent ones.
func (f *urlFilter) indices(url string) []uint64 {
	h1 := fnv.New64a()
	h1.Write([]byte(url))
	sum1 := h1.Sum64()

	h2 := fnv.New64()
	h2.Write([]byte(url))
	sum2 := h2.Sum64()

	out := make([]uint64, f.k)
	for i := 0; i < f.k; i++ {
		out[i] = (sum1 + uint64(i)*sum2) % f.m
	}
	return out
}
