package ecs

import (
	"math/bits"
	"strconv"
	"strings"
)

const (
	bitsPerWord    = 64
	signatureWords = 2

	// MaxComponentTypes bounds how many distinct component types a process
	// can ever register.
	MaxComponentTypes = signatureWords * bitsPerWord
)

// ComponentType is the small integer id assigned to a component type on
// registration.
type ComponentType uint8

// Signature is a fixed-width bit set with one bit per component type.
type Signature [signatureWords]uint64

// NewSignature builds a signature with the given bits set.
func NewSignature(types ...ComponentType) Signature {
	var s Signature
	for _, t := range types {
		s.Set(t)
	}
	return s
}

func (s *Signature) Set(t ComponentType) {
	s[t/bitsPerWord] |= 1 << (t % bitsPerWord)
}

func (s *Signature) Clear(t ComponentType) {
	s[t/bitsPerWord] &^= 1 << (t % bitsPerWord)
}

func (s Signature) Has(t ComponentType) bool {
	return s[t/bitsPerWord]&(1<<(t%bitsPerWord)) != 0
}

// Contains reports whether s is a superset of sub.
func (s Signature) Contains(sub Signature) bool {
	return s[0]&sub[0] == sub[0] && s[1]&sub[1] == sub[1]
}

func (s Signature) IsEmpty() bool {
	return s[0] == 0 && s[1] == 0
}

// Len returns the number of set bits.
func (s Signature) Len() int {
	return bits.OnesCount64(s[0]) + bits.OnesCount64(s[1])
}

// Each visits set bits in ascending order.
func (s Signature) Each(fn func(ComponentType)) {
	for w, word := range s {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			fn(ComponentType(w*bitsPerWord + b))
			word &^= 1 << b
		}
	}
}

func (s Signature) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	s.Each(func(t ComponentType) {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteString(strconv.Itoa(int(t)))
	})
	sb.WriteByte('}')
	return sb.String()
}
