package completion

import (
	"sort"
	"strings"
	"sync"
)

// lockableSlice merges scanDirs' per-goroutine results under a single
// mutex.
type lockableSlice struct {
	mu   sync.Mutex
	vals []Candidate
}

func (s *lockableSlice) append(c...Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals = append(s.vals, c...)
}

func (s *lockableSlice) drain() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vals
}

// score computes the ranking bonuses: start-match, consecutive
// -match, word-boundary, and history frequency.
func score(word, prefix string, freq int) int {
	s := 0
	if word == prefix {
		s += 1000
	}
	if strings.HasPrefix(word, prefix) {
		s += 100
	}
	if strings.Contains(word, prefix) {
		s += 10
	}
	if idx := strings.Index(word, prefix); idx > 0 {
		before := word[idx-1]
		if before == '-' || before == '_' || before == '/' || before == '.' {
			s += 5
		}
	}
	s += freq
	return s
}

// rank orders candidates: exact match first, then by
// relevance score, then lexicographically.
func rank(cands []Candidate, prefix string, freq map[string]int) []Candidate {
	for i := range cands {
		cands[i].history = freq[cands[i].Text]
	}
	sort.SliceStable(cands, func(i, j int) bool {
		si := score(cands[i].Text, prefix, cands[i].history)
		sj := score(cands[j].Text, prefix, cands[j].history)
		if si != sj {
			return si > sj
		}
		return cands[i].Text < cands[j].Text
	})
	return cands
}
