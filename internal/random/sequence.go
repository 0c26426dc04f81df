package random

import "sync"

// Sequence replays a scripted list of draws, cycling when exhausted.
// Each scripted value is reduced modulo n so a draw is always in range.
// An empty script always draws 0.
type Sequence struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewSequence creates a scripted source.
func NewSequence(values ...int) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		return 0
	}

	v := s.values[s.next%len(s.values)]
	s.next++

	if v < 0 {
		v = -v
	}
	return v % n
}

// Draws returns how many values have been drawn so far.
func (s *Sequence) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
