// Package pubsub implements the arena Publisher (C9): it fans out tick
// results to subscribers and turns inbound client intents into world
// mutations applied on the next tick.
package pubsub

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/dragonchu/agentpollen/internal/arena"
	"github.com/dragonchu/agentpollen/internal/thinking"
	"github.com/dragonchu/agentpollen/internal/vote"
	"github.com/dragonchu/agentpollen/internal/ws"
)

// BroadcastMode toggles whether agent updates are published in full or as
// a delta against the last published fingerprint.
type BroadcastMode int

const (
	ModeFull BroadcastMode = iota
	ModeDelta
)

// Kind enumerates outbound/inbound wire message kinds.
type Kind string

const (
	KindSyncFull    Kind = "sync.full"
	KindSyncWorld   Kind = "sync.world"
	KindSyncAgents  Kind = "sync.agents"
	KindSyncEvents  Kind = "sync.events"
	KindSyncPaths   Kind = "sync.paths"
	KindVoteState   Kind = "vote.state"
	KindAgentDetail Kind = "agent.detail"
	KindThinking    Kind = "thinking.history"

	KindVoteSubmit      Kind = "vote.submit"
	KindAgentInspect    Kind = "agent.inspect"
	KindAgentFollow     Kind = "agent.follow"
	KindThinkingRequest Kind = "thinking.request"
)

// Envelope is the stable wrapper every wire message is sent in.
type Envelope struct {
	Kind Kind            `json:"kind"`
	Tick int             `json:"tick,omitempty"`
	Data json.RawMessage `json:"data"`
}

// Publisher owns the subscriber set and per-agent follow index; it never
// mutates world state, only reads snapshots and enqueues inbound intents.
type Publisher struct {
	mu sync.Mutex

	world     *arena.World
	hub       *ws.Hub
	store     thinking.Store
	sessionID string
	mode      BroadcastMode

	followers map[string]map[*ws.Client]bool // agentID -> followers
	playerIDs map[*ws.Client]string

	recentEvents []arena.Event
}

// NewPublisher creates a Publisher for world, broadcasting through hub.
func NewPublisher(world *arena.World, hub *ws.Hub, store thinking.Store, sessionID string, mode BroadcastMode) *Publisher {
	return &Publisher{
		world:     world,
		hub:       hub,
		store:     store,
		sessionID: sessionID,
		mode:      mode,
		followers: make(map[string]map[*ws.Client]bool),
		playerIDs: make(map[*ws.Client]string),
	}
}

// OnConnect sends a new subscriber a full-sync snapshot.
func (p *Publisher) OnConnect(client *ws.Client) {
	p.mu.Lock()
	p.playerIDs[client] = client.ID.String()
	p.mu.Unlock()

	full := p.world.GetFullSync(p.recentEventsSnapshot())
	p.sendTo(client, KindSyncFull, full)
}

// OnDisconnect drops client from every follow set; wire this to
// ws.Hub.OnUnregister.
func (p *Publisher) OnDisconnect(client *ws.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.playerIDs, client)
	for agentID, set := range p.followers {
		delete(set, client)
		if len(set) == 0 {
			delete(p.followers, agentID)
		}
	}
}

func (p *Publisher) recentEventsSnapshot() []arena.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]arena.Event, len(p.recentEvents))
	copy(out, p.recentEvents)
	return out
}

// PublishTick broadcasts the result of one World.Tick call: world state,
// full or delta agent list, events (if non-empty), vote state, and
// agentPaths (always, even if empty), then pushes full detail to any
// followers of an agent that changed this tick.
func (p *Publisher) PublishTick(events []arena.Event) {
	p.mu.Lock()
	p.recentEvents = append(p.recentEvents, events...)
	if len(p.recentEvents) > 200 {
		p.recentEvents = p.recentEvents[len(p.recentEvents)-200:]
	}
	p.mu.Unlock()

	state := p.world.GetWorldState()
	p.broadcast(KindSyncWorld, state, state.Tick)

	var changed []arena.Snapshot
	if p.mode == ModeDelta {
		changed = p.world.ComputeAgentDelta()
		p.broadcast(KindSyncAgents, changed, state.Tick)
	} else {
		changed = p.world.AllAgents()
		p.broadcast(KindSyncAgents, changed, state.Tick)
	}

	if len(events) > 0 {
		p.broadcast(KindSyncEvents, events, state.Tick)
	}

	p.broadcast(KindVoteState, p.world.VoteState(), state.Tick)
	p.broadcast(KindSyncPaths, p.world.AgentPaths(), state.Tick)

	for _, snap := range changed {
		p.pushToFollowers(snap)
	}
}

func (p *Publisher) pushToFollowers(snap arena.Snapshot) {
	p.mu.Lock()
	set, ok := p.followers[snap.ID]
	var clients []*ws.Client
	if ok {
		clients = make([]*ws.Client, 0, len(set))
		for c := range set {
			clients = append(clients, c)
		}
	}
	p.mu.Unlock()

	for _, c := range clients {
		p.sendTo(c, KindAgentDetail, snap)
	}
}

// HandleInbound dispatches a raw client message to the vote/inspect/
// follow/thinkingRequest handlers.
func (p *Publisher) HandleInbound(client *ws.Client, message []byte) {
	var envelope Envelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		log.Printf("pubsub: failed to parse inbound message: %v", err)
		return
	}

	switch envelope.Kind {
	case KindVoteSubmit:
		p.handleVoteSubmit(client, envelope.Data)
	case KindAgentInspect:
		p.handleAgentInspect(client, envelope.Data)
	case KindAgentFollow:
		p.handleAgentFollow(client, envelope.Data)
	case KindThinkingRequest:
		p.handleThinkingRequest(client, envelope.Data)
	default:
		log.Printf("pubsub: unknown inbound kind %q", envelope.Kind)
	}
}

type voteSubmitPayload struct {
	AgentID string      `json:"agentId"`
	Action  vote.Action `json:"action"`
}

func (p *Publisher) handleVoteSubmit(client *ws.Client, data json.RawMessage) {
	var payload voteSubmitPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("pubsub: bad vote.submit payload: %v", err)
		return
	}
	playerID := p.playerIDFor(client)
	p.world.SubmitVote(payload.AgentID, playerID, payload.Action)
}

type agentIDPayload struct {
	AgentID string `json:"agentId"`
}

func (p *Publisher) handleAgentInspect(client *ws.Client, data json.RawMessage) {
	var payload agentIDPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("pubsub: bad agent.inspect payload: %v", err)
		return
	}
	a := p.world.AgentByID(payload.AgentID)
	if a == nil {
		log.Printf("pubsub: agent.inspect %s: %v", payload.AgentID, arena.ErrAgentNotFound)
		return
	}
	p.sendTo(client, KindAgentDetail, a.Snapshot())
}

type agentFollowPayload struct {
	AgentID *string `json:"agentId"`
}

func (p *Publisher) handleAgentFollow(client *ws.Client, data json.RawMessage) {
	var payload agentFollowPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("pubsub: bad agent.follow payload: %v", err)
		return
	}

	p.mu.Lock()
	for agentID, set := range p.followers {
		delete(set, client)
		if len(set) == 0 {
			delete(p.followers, agentID)
		}
	}
	if payload.AgentID != nil {
		if p.followers[*payload.AgentID] == nil {
			p.followers[*payload.AgentID] = make(map[*ws.Client]bool)
		}
		p.followers[*payload.AgentID][client] = true
	}
	p.mu.Unlock()

	if payload.AgentID != nil {
		if a := p.world.AgentByID(*payload.AgentID); a != nil {
			p.sendTo(client, KindAgentDetail, a.Snapshot())
		}
	}
}

type thinkingRequestPayload struct {
	AgentID string `json:"agentId"`
	Limit   int    `json:"limit"`
}

func (p *Publisher) handleThinkingRequest(client *ws.Client, data json.RawMessage) {
	var payload thinkingRequestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("pubsub: bad thinking.request payload: %v", err)
		return
	}
	if payload.Limit <= 0 {
		payload.Limit = 10
	}
	history := p.store.GetHistory(p.sessionID, payload.AgentID, payload.Limit)
	p.sendTo(client, KindThinking, history)
}

func (p *Publisher) playerIDFor(client *ws.Client) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.playerIDs[client]; ok {
		return id
	}
	return client.ID.String()
}

func (p *Publisher) broadcast(kind Kind, payload interface{}, tick int) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("pubsub: failed to marshal %s: %v", kind, err)
		return
	}
	envelope, err := json.Marshal(Envelope{Kind: kind, Tick: tick, Data: data})
	if err != nil {
		log.Printf("pubsub: failed to marshal envelope: %v", err)
		return
	}
	p.hub.Broadcast(p.sessionID, envelope)
}

func (p *Publisher) sendTo(client *ws.Client, kind Kind, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("pubsub: failed to marshal %s: %v", kind, err)
		return
	}
	envelope, err := json.Marshal(Envelope{Kind: kind, Data: data})
	if err != nil {
		log.Printf("pubsub: failed to marshal envelope: %v", err)
		return
	}
	p.hub.SendTo(client, envelope)
}
