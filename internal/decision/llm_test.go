package decision

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChatClient struct {
	response string
	err      error
	calls    int32
	onCall   func()
}

func (f *fakeChatClient) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestLLMDecideParsesWellFormedResponse(t *testing.T) {
	client := &fakeChatClient{response: "ACTION: attack Bob\nREASON: he's weak"}
	b := NewLLM(client, NewRuleBased(), 10)

	d, err := b.Decide(context.Background(), Context{
		Self:         Self{ID: "a1"},
		NearbyAgents: []NearbyAgent{{ID: "a2", Name: "Bob"}},
	})
	require.NoError(t, err)
	require.Equal(t, Attack, d.Type)
	require.Equal(t, "a2", d.TargetID)
	require.Equal(t, "he's weak", d.Reason)
}

func TestLLMDecideFallsBackOnClientError(t *testing.T) {
	client := &fakeChatClient{err: errors.New("rate limited")}
	fallback := NewRuleBased()
	b := NewLLM(client, fallback, 10)

	d, err := b.Decide(context.Background(), Context{Self: Self{ID: "a1", HP: 100, MaxHP: 100}})
	require.NoError(t, err)
	require.Equal(t, Explore, d.Type)
}

func TestLLMDecideFallsBackOnUnparseableResponse(t *testing.T) {
	client := &fakeChatClient{response: "I refuse to answer in the requested format."}
	b := NewLLM(client, NewRuleBased(), 10)

	d, err := b.Decide(context.Background(), Context{Self: Self{ID: "a1", HP: 100, MaxHP: 100}})
	require.NoError(t, err)
	require.Equal(t, Explore, d.Type)
}

func TestLLMDecideUnmatchedVerbFallsThroughToExplore(t *testing.T) {
	client := &fakeChatClient{response: "ACTION: dance wildly\nREASON: vibes"}
	b := NewLLM(client, NewRuleBased(), 10)

	d, err := b.Decide(context.Background(), Context{Self: Self{ID: "a1"}})
	require.NoError(t, err)
	require.Equal(t, Explore, d.Type)
	require.Equal(t, "vibes", d.Reason)
}

func TestLLMDecideReleasesGateOnEveryPath(t *testing.T) {
	client := &fakeChatClient{response: "ACTION: rest\nREASON: tired"}
	b := NewLLM(client, NewRuleBased(), 2)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Decide(context.Background(), Context{Self: Self{ID: "a1"}})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.EqualValues(t, 20, client.calls)
}

func TestLLMReflectFallsBackOnError(t *testing.T) {
	client := &fakeChatClient{err: errors.New("boom")}
	b := NewLLM(client, NewRuleBased(), 10)

	r, err := b.Reflect(context.Background(), Context{Self: Self{HP: 100, MaxHP: 100}})
	require.NoError(t, err)
	require.Empty(t, r)
}

func TestLLMRespectsContextCancellationOnGateAcquire(t *testing.T) {
	client := &fakeChatClient{response: "ACTION: rest\nREASON: tired"}
	b := NewLLM(client, NewRuleBased(), 1)

	require.NoError(t, b.gate.Acquire(context.Background(), 1))
	defer b.gate.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := b.Decide(ctx, Context{Self: Self{ID: "a1", HP: 100, MaxHP: 100}})
	require.NoError(t, err)
	require.Equal(t, Explore, d.Type, "falls back to rule-based when the gate can't be acquired")
}
