package bits

import "math/bits"

// Bitset is a fixed length set of bits, sized at construction.
type Bitset struct {
	words []uint64
	n     int
}

func NewBitset(n int) Bitset {
	return Bitset{
		words: make([]uint64, (n+63)>>6),
		n:     n,
	}
}

func (b Bitset) Len() int { return b.n }

func (b Bitset) Set(bit int) {
	word := bit >> 6 // bit / 64
	mask := uint64(1) << (bit & 63)
	b.words[word] |= mask
}

func (b Bitset) Clear(bit int) {
	word := bit >> 6
	mask := uint64(1) << (bit & 63)
	b.words[word] &^= mask
}

// Get is false for bits outside the set.
func (b Bitset) Get(bit int) bool {
	if bit < 0 || bit >= b.n {
		return false
	}
	return (b.words[bit>>6]>>(bit&63))&1 == 1
}

// Indices appends the set bits in ascending order.
func (b Bitset) Indices(out []int) []int {
	for wi, w := range b.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			out = append(out, wi*64+tz)
			w &= w - 1 // clear lowest set bit
		}
	}
	return out
}

func (b Bitset) Count() int {
	c := 0
	for _, w := range b.words {
		c += bits.OnesCount64(w)
	}
	return c
}
