package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Bitmap is a growable set of small non-negative ints.
	// Zero value is an empty set.
	Bitmap struct {
		b  []uint64
		b0 [1]uint64
	}
)

func MakeBitmap(size int) Bitmap {
	s := Bitmap{}
	s.b = s.b0[:]

	size = (size + 63) / 64

	if size > len(s.b) {
		s.b = make([]uint64, size)
	}

	return s
}

func (s *Bitmap) Set(i int) {
	i, j := s.ij(i)

	s.grow(i)

	s.b[i] |= 1 << j
}

func (s *Bitmap) Clear(i int) {
	i, j := s.ij(i)

	if i >= len(s.b) {
		return
	}

	s.b[i] &^= 1 << j
}

func (s *Bitmap) IsSet(i int) bool {
	i, j := s.ij(i)

	if i >= len(s.b) {
		return false
	}

	return (s.b[i] & (1 << j)) != 0
}

// Size is the number of set bits.
func (s *Bitmap) Size() (r int) {
	if s == nil {
		return 0
	}

	for _, c := range s.b {
		r += bits.OnesCount64(c)
	}

	return r
}

func (s *Bitmap) Reset() {
	for i := range s.b {
		s.b[i] = 0
	}
}

// Range calls f for set bits in ascending order until f returns false.
func (s *Bitmap) Range(f func(i int) bool) {
	for i, x := range s.b {
		for x != 0 {
			j := bits.TrailingZeros64(x)
			x &^= 1 << j

			if !f(i*64 + j) {
				return
			}
		}
	}
}

func (s Bitmap) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s.b == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(i int) bool {
		b = e.AppendInt(b, i)

		return true
	})

	b = e.AppendBreak(b)

	return b
}

func (s *Bitmap) ij(pos int) (i int, j int) {
	return pos / 64, pos % 64
}

func (s *Bitmap) grow(i int) {
	for i >= len(s.b) {
		s.b = append(s.b, 0)
	}
}
