package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler lets through num of every den calls. A zero ratio disables sampling.
type ratioSampler struct {
	ratio atomic.Uint64 // num<<32 | den
	calls atomic.Uint64
}

func (s *ratioSampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		s.ratio.Store(0)
		return
	}
	if num > den {
		num = den
	}
	s.ratio.Store(uint64(num)<<32 | uint64(den))
	s.calls.Store(0)
}

func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	if r == 0 {
		return true
	}
	num, den := r>>32, r&0xffffffff
	n := s.calls.Add(1) - 1
	return n%den < num
}

// parseRatio accepts "N/D" or "D" (meaning 1/D). Invalid input yields 0, 0.
func parseRatio(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if a, b, ok := strings.Cut(raw, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(a))
		den, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return num, den
	}
	if d, err := strconv.Atoi(raw); err == nil && d > 0 {
		return 1, d
	}
	return 0, 0
}
