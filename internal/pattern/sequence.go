package pattern

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidNode   = errors.New("pattern node out of range")
	ErrDuplicateNode = errors.New("pattern node repeated")
	ErrTooShort      = fmt.Errorf("pattern needs at least %d nodes", MinLength)
)

// Sequence is the ordered list of visited node indices.
type Sequence []int

// Validate checks indices are in range and unique. Length is not checked.
func (s Sequence) Validate() error {
	var seen [NodeCount]bool
	for _, node := range s {
		if node < 0 || node >= NodeCount {
			return fmt.Errorf("%w: %d", ErrInvalidNode, node)
		}
		if seen[node] {
			return fmt.Errorf("%w: %d", ErrDuplicateNode, node)
		}
		seen[node] = true
	}
	return nil
}

// IsComplete reports whether s is a well formed pattern of at least MinLength nodes.
func (s Sequence) IsComplete() bool {
	return len(s) >= MinLength && s.Validate() == nil
}

// Contains reports whether node was already visited.
func (s Sequence) Contains(node int) bool {
	for _, v := range s {
		if v == node {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Encode renders the sequence as its digit string, e.g. "01258".
func (s Sequence) Encode() string {
	var b strings.Builder
	b.Grow(len(s))
	for _, node := range s {
		b.WriteByte(byte('0' + node))
	}
	return b.String()
}

func (s Sequence) String() string {
	return s.Encode()
}

// Parse decodes a digit string and requires a complete pattern.
func Parse(encoded string) (Sequence, error) {
	encoded = strings.TrimSpace(encoded)
	seq := make(Sequence, 0, len(encoded))
	for _, r := range encoded {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidNode, r)
		}
		seq = append(seq, int(r-'0'))
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	if len(seq) < MinLength {
		return nil, ErrTooShort
	}
	return seq, nil
}

// Equal compares two sequences in constant time with respect to content.
func Equal(a, b Sequence) bool {
	return subtle.ConstantTimeCompare([]byte(a.Encode()), []byte(b.Encode())) == 1
}
