package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

type ratio struct {
	keep, every uint64
}

// ratioSampler lets keep out of every events through, in a fixed rotation.
// A zero ratio disables sampling.
type ratioSampler struct {
	current atomic.Pointer[ratio]
	seen    atomic.Uint64
}

func newRatioSampler(keep, every int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(keep, every)
	return s
}

func (s *ratioSampler) Set(keep, every int) {
	s.seen.Store(0)
	if keep <= 0 || every <= 0 {
		s.current.Store(nil)
		return
	}
	keep = min(keep, every)
	s.current.Store(&ratio{keep: uint64(keep), every: uint64(every)})
}

func (s *ratioSampler) Allow() bool {
	r := s.current.Load()
	if r == nil {
		return true
	}
	n := s.seen.Add(1) - 1
	return n%r.every < r.keep
}

// parseRatio accepts "keep/every" or a bare "every" meaning 1/every.
func parseRatio(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, 0
	}
	if left, right, ok := strings.Cut(raw, "/"); ok {
		keep, err1 := strconv.Atoi(strings.TrimSpace(left))
		every, err2 := strconv.Atoi(strings.TrimSpace(right))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return keep, every
	}
	every, err := strconv.Atoi(raw)
	if err != nil || every <= 0 {
		return 0, 0
	}
	return 1, every
}
