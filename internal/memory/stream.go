// Package memory implements the bounded per-agent memory stream and its
// importance/recency/relevance retrieval scoring.
package memory

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Kind classifies a memory entry.
type Kind string

const (
	Observation Kind = "observation"
	Reflection  Kind = "reflection"
	Plan        Kind = "plan"
	InnerVoice  Kind = "inner_voice"
)

const (
	// Max is the hard cap on stored entries before truncation.
	Max = 100
	// Decay is the per-second recency decay factor.
	Decay = 0.995
	// keepFraction is the fraction of Max kept on truncation.
	keepFraction = 0.8
)

// Entry is a single stored memory.
type Entry struct {
	Text       string
	Kind       Kind
	Importance int
	Timestamp  time.Time
}

// Stream is a bounded, thread-safe store of memory entries for one agent.
type Stream struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

// NewStream creates an empty memory stream.
func NewStream() *Stream {
	return &Stream{now: time.Now}
}

// Add appends a memory entry, clamping importance to [1,10]. When the
// stream exceeds Max entries it is sorted by importance descending and
// truncated to floor(0.8*Max).
func (s *Stream) Add(text string, importance int, kind Kind) {
	if importance < 1 {
		importance = 1
	}
	if importance > 10 {
		importance = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Entry{
		Text:       text,
		Kind:       kind,
		Importance: importance,
		Timestamp:  s.now(),
	})

	if len(s.entries) > Max {
		sort.SliceStable(s.entries, func(i, j int) bool {
			return s.entries[i].Importance > s.entries[j].Importance
		})
		keep := int(math.Floor(Max * keepFraction))
		s.entries = s.entries[:keep]
	}
}

// GetRecent returns the last n entries in insertion order.
func (s *Stream) GetRecent(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	if n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]Entry, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out
}

// scored pairs an entry with its retrieval score.
type scored struct {
	entry Entry
	score float64
}

// Retrieve scores every entry by
// 0.3*recency + 0.4*(importance/10) + 0.3*relevance and returns the top k.
// recency = Decay^ageSeconds; relevance is the fraction of query words
// (case-insensitive, whitespace-tokenized) present in the entry text.
// Relevance is a pure function of (memory, query) and may be swapped for
// embedding similarity without touching the rest of the contract.
func (s *Stream) Retrieve(query string, k int) []Entry {
	s.mu.RLock()
	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	now := s.now()
	s.mu.RUnlock()

	if k <= 0 || len(entries) == 0 {
		return nil
	}

	queryWords := tokenize(query)

	scoredEntries := make([]scored, len(entries))
	for i, e := range entries {
		ageSeconds := now.Sub(e.Timestamp).Seconds()
		if ageSeconds < 0 {
			ageSeconds = 0
		}
		recency := math.Pow(Decay, ageSeconds)
		importance := float64(e.Importance) / 10.0
		relevance := relevanceScore(e.Text, queryWords)

		scoredEntries[i] = scored{
			entry: e,
			score: 0.3*recency + 0.4*importance + 0.3*relevance,
		}
	}

	sort.SliceStable(scoredEntries, func(i, j int) bool {
		return scoredEntries[i].score > scoredEntries[j].score
	})

	if k > len(scoredEntries) {
		k = len(scoredEntries)
	}
	out := make([]Entry, k)
	for i := 0; i < k; i++ {
		out[i] = scoredEntries[i].entry
	}
	return out
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func relevanceScore(text string, queryWords []string) float64 {
	if len(queryWords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, w := range queryWords {
		if strings.Contains(lower, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryWords))
}

// Len returns the current number of stored entries.
func (s *Stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
