package thinking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreAndGetHistoryNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	s.Store("sess-1", "agent-1", "first thought")
	s.Store("sess-1", "agent-1", "second thought")

	hist := s.GetHistory("sess-1", "agent-1", 10)
	require.Equal(t, []string{"second thought", "first thought"}, []string{hist[0].Thinking, hist[1].Thinking})
}

func TestGetHistoryRespectsLimit(t *testing.T) {
	s := NewMemoryStore()
	for i := 0; i < 5; i++ {
		s.Store("sess-1", "agent-1", fmt.Sprintf("t%d", i))
	}
	hist := s.GetHistory("sess-1", "agent-1", 2)
	require.Len(t, hist, 2)
	require.Equal(t, "t4", hist[0].Thinking)
	require.Equal(t, "t3", hist[1].Thinking)
}

func TestGetHistoryUnknownSessionReturnsNil(t *testing.T) {
	s := NewMemoryStore()
	require.Nil(t, s.GetHistory("nope", "agent-1", 10))
}

func TestPerAgentRingEvictsOldest(t *testing.T) {
	s := NewMemoryStore()
	for i := 0; i < MaxEntriesPerAgent+10; i++ {
		s.Store("sess-1", "agent-1", fmt.Sprintf("t%d", i))
	}
	require.Equal(t, MaxEntriesPerAgent, s.GetCount("sess-1", "agent-1"))

	hist := s.GetHistory("sess-1", "agent-1", 1)
	require.Equal(t, fmt.Sprintf("t%d", MaxEntriesPerAgent+9), hist[0].Thinking)
}

func TestSessionLRUEvictsLeastRecentlyTouched(t *testing.T) {
	s := NewMemoryStore()
	for i := 0; i < MaxSessions; i++ {
		s.Store(fmt.Sprintf("sess-%d", i), "agent-1", "x")
	}
	// touch sess-0 so it's no longer the least recently used.
	s.Store("sess-0", "agent-1", "y")

	s.Store("sess-overflow", "agent-1", "z")

	require.Equal(t, 0, s.GetCount("sess-1", "agent-1"), "least recently touched session is evicted")
	require.Equal(t, 2, s.GetCount("sess-0", "agent-1"), "recently touched session survives")
	require.Equal(t, 1, s.GetCount("sess-overflow", "agent-1"))
}

func TestClearSession(t *testing.T) {
	s := NewMemoryStore()
	s.Store("sess-1", "agent-1", "x")
	s.ClearSession("sess-1")
	require.Equal(t, 0, s.GetCount("sess-1", "agent-1"))
	require.Nil(t, s.GetHistory("sess-1", "agent-1", 10))
}

func TestNullStoreIsNoop(t *testing.T) {
	var s Store = NullStore{}
	s.Store("sess-1", "agent-1", "x")
	require.Nil(t, s.GetHistory("sess-1", "agent-1", 10))
	require.Equal(t, 0, s.GetCount("sess-1", "agent-1"))
	s.ClearSession("sess-1")
}

func TestMemoryStoreSatisfiesStoreInterface(t *testing.T) {
	var _ Store = NewMemoryStore()
	var _ Store = NullStore{}
}
