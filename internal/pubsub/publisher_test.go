package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dragonchu/agentpollen/internal/arena"
	"github.com/dragonchu/agentpollen/internal/decision"
	"github.com/dragonchu/agentpollen/internal/thinking"
	"github.com/dragonchu/agentpollen/internal/ws"
)

type restBackend struct{}

func (restBackend) Decide(ctx context.Context, dctx decision.Context) (decision.Decision, error) {
	return decision.Decision{Type: decision.Rest}, nil
}

func (restBackend) Reflect(ctx context.Context, dctx decision.Context) (string, error) {
	return "", nil
}

func newTestClient(sessionID string) *ws.Client {
	return &ws.Client{ID: uuid.New(), SessionID: sessionID, Send: make(chan []byte, 16)}
}

func newTestSetup(t *testing.T) (*Publisher, *ws.Hub, *arena.World) {
	t.Helper()
	hub := ws.NewHub()
	go hub.Run()

	cfg := arena.DefaultConfig()
	cfg.GridSize = 10
	cfg.AgentCount = 2
	cfg.ObstacleDensity = 0
	w := arena.NewWorld(cfg, restBackend{}, thinking.NewMemoryStore(), "sess-1")

	store := thinking.NewMemoryStore()
	p := NewPublisher(w, hub, store, "sess-1", ModeFull)
	return p, hub, w
}

func recvEnvelope(t *testing.T, ch chan []byte) Envelope {
	t.Helper()
	select {
	case raw := <-ch:
		var e Envelope
		require.NoError(t, json.Unmarshal(raw, &e))
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Envelope{}
	}
}

func TestOnConnectSendsFullSync(t *testing.T) {
	p, hub, _ := newTestSetup(t)
	client := newTestClient("sess-1")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	p.OnConnect(client)
	e := recvEnvelope(t, client.Send)
	require.Equal(t, KindSyncFull, e.Kind)
}

func TestPublishTickBroadcastsWorldAgentsPathsAndVotes(t *testing.T) {
	p, hub, w := newTestSetup(t)
	client := newTestClient("sess-1")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	events := w.Tick(context.Background())
	p.PublishTick(events)

	kinds := map[Kind]bool{}
	for i := 0; i < 4; i++ {
		e := recvEnvelope(t, client.Send)
		kinds[e.Kind] = true
	}
	require.True(t, kinds[KindSyncWorld])
	require.True(t, kinds[KindSyncAgents])
	require.True(t, kinds[KindVoteState])
	require.True(t, kinds[KindSyncPaths])
}

func TestHandleAgentFollowSendsDetailAndTracksFollower(t *testing.T) {
	p, hub, w := newTestSetup(t)
	client := newTestClient("sess-1")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	agentID := w.AllAgents()[0].ID

	payload, _ := json.Marshal(agentFollowPayload{AgentID: &agentID})
	msg, _ := json.Marshal(Envelope{Kind: KindAgentFollow, Data: payload})
	p.HandleInbound(client, msg)

	e := recvEnvelope(t, client.Send)
	require.Equal(t, KindAgentDetail, e.Kind)

	p.mu.Lock()
	_, following := p.followers[agentID][client]
	p.mu.Unlock()
	require.True(t, following)
}

func TestHandleAgentFollowNilClearsFollowing(t *testing.T) {
	p, hub, w := newTestSetup(t)
	client := newTestClient("sess-1")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	agentID := w.AllAgents()[0].ID
	followMsg, _ := json.Marshal(Envelope{Kind: KindAgentFollow, Data: mustMarshal(agentFollowPayload{AgentID: &agentID})})
	p.HandleInbound(client, followMsg)
	<-client.Send // drain the detail push

	unfollowMsg, _ := json.Marshal(Envelope{Kind: KindAgentFollow, Data: mustMarshal(agentFollowPayload{AgentID: nil})})
	p.HandleInbound(client, unfollowMsg)

	p.mu.Lock()
	_, exists := p.followers[agentID]
	p.mu.Unlock()
	require.False(t, exists)
}

func TestHandleVoteSubmitForwardsToWorld(t *testing.T) {
	p, hub, w := newTestSetup(t)
	client := newTestClient("sess-1")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	agentID := w.AllAgents()[0].ID

	payload := mustMarshal(voteSubmitPayload{AgentID: agentID, Action: "attack"})
	msg, _ := json.Marshal(Envelope{Kind: KindVoteSubmit, Data: payload})
	p.HandleInbound(client, msg)

	state := w.VoteState()
	require.NotEmpty(t, state.PerAgent[agentID])
}

func TestHandleThinkingRequestRepliesWithHistory(t *testing.T) {
	p, hub, w := newTestSetup(t)
	client := newTestClient("sess-1")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	agentID := w.AllAgents()[0].ID
	p.store.Store("sess-1", agentID, "thought one")

	payload := mustMarshal(thinkingRequestPayload{AgentID: agentID, Limit: 5})
	msg, _ := json.Marshal(Envelope{Kind: KindThinkingRequest, Data: payload})
	p.HandleInbound(client, msg)

	e := recvEnvelope(t, client.Send)
	require.Equal(t, KindThinking, e.Kind)
}

func TestOnDisconnectRemovesFromFollowers(t *testing.T) {
	p, hub, w := newTestSetup(t)
	client := newTestClient("sess-1")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	agentID := w.AllAgents()[0].ID
	followMsg, _ := json.Marshal(Envelope{Kind: KindAgentFollow, Data: mustMarshal(agentFollowPayload{AgentID: &agentID})})
	p.HandleInbound(client, followMsg)
	<-client.Send

	p.OnDisconnect(client)
	p.mu.Lock()
	_, exists := p.followers[agentID]
	p.mu.Unlock()
	require.False(t, exists)
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
