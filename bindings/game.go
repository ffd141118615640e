package bindings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pokethrow/pokethrow-desktop/internal/bridge"
	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
	"github.com/pokethrow/pokethrow-desktop/internal/fairness"
	"github.com/pokethrow/pokethrow-desktop/internal/session"
	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

// Events emitted besides the bridge vocabulary. Game events are suffixed
// with ":" and the session id.
const (
	EventSnapshot     = "game:snapshot"
	EventEffects      = "game:effects"
	EventHistorySaved = "history:saved"
)

// ErrUnknownSession is returned for a session id that is not running.
var ErrUnknownSession = errors.New("bindings: unknown game session")

// EffectView is an effect tagged with its kind for the page.
type EffectView struct {
	Kind encounter.EffectKind `json:"kind"`
	Data encounter.Effect     `json:"data"`
}

// GameInfo describes a newly started game session.
type GameInfo struct {
	SessionID    string              `json:"sessionId"`
	PageMetadata bool                `json:"pageMetadata"`
	Seeds        fairness.Commitment `json:"seeds"`
}

type game struct {
	id     string
	sess   *session.Session
	msgs   *bridge.MessagePort
	fetch  *bridge.FetchPort
	cancel context.CancelFunc
}

// hostPort sends requests one way and outcomes to several listeners.
type hostPort struct {
	request func(bridge.MetadataRequest)
	notify  bridge.Notifier
}

func (p hostPort) RequestMetadata(r bridge.MetadataRequest) { p.request(r) }
func (p hostPort) Notify(o bridge.Outcome)                  { p.notify.Notify(o) }

type gameSink struct {
	d  *Desktop
	id string
}

func (s gameSink) Effects(effects []encounter.Effect) {
	views := make([]EffectView, len(effects))
	for i, e := range effects {
		views[i] = EffectView{Kind: e.Kind(), Data: e}
	}
	s.d.emit(s.d.ctx, EventEffects+":"+s.id, views)
}

func (s gameSink) Snapshot(snap encounter.Snapshot) {
	s.d.emit(s.d.ctx, EventSnapshot+":"+s.id, snap)
}

// GameModule runs encounter loops for the page.
type GameModule struct {
	d *Desktop

	mu       sync.Mutex
	sessions map[string]*game
}

// NewGame starts an encounter loop. With pageMetadata the page answers
// RequestPokemonData itself through Receive; otherwise records are fetched
// in the background. The loop idles until Start.
func (m *GameModule) NewGame(pageMetadata bool) (GameInfo, error) {
	svc, err := m.d.services()
	if err != nil {
		return GameInfo{}, err
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(m.d.ctx)
	g := &game{id: id, cancel: cancel}

	g.msgs = bridge.NewMessagePort(func(msg bridge.Message) {
		m.d.emit(m.d.ctx, msg.Name, msg.Payload, id)
	}, m.d.logger)
	port := hostPort{
		request: g.msgs.RequestMetadata,
		notify:  bridge.Fanout{g.msgs, m.d.recorder},
	}

	var results chan bridge.MetadataResult
	if !pageMetadata {
		results = make(chan bridge.MetadataResult, 4)
		g.fetch = bridge.NewFetchPort(ctx, svc.PokeAPI, results, m.d.cfg.MetadataTimeout, nil)
		port.request = g.fetch.RequestMetadata
	}

	orch, err := svc.Orchestrator(port)
	if err != nil {
		cancel()
		return GameInfo{}, err
	}
	g.sess = session.New(orch, results, gameSink{d: m.d, id: id}, m.d.cfg.Session())
	go g.sess.Run(ctx)

	m.mu.Lock()
	m.sessions[id] = g
	m.mu.Unlock()
	m.d.logger.Printf("game %s started (page metadata: %v)", id, pageMetadata)

	return GameInfo{SessionID: id, PageMetadata: pageMetadata, Seeds: svc.Commitment()}, nil
}

func (m *GameModule) get(id string) (*game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return g, nil
}

func (m *GameModule) send(id string, cmd any) error {
	g, err := m.get(id)
	if err != nil {
		return err
	}
	if !g.sess.Send(cmd) {
		return session.ErrStopped
	}
	return nil
}

// Start begins play
func (m *GameModule) Start(sessionID string) error {
	return m.send(sessionID, encounter.Start{})
}

// Stop ends play; with afterEncounter a capture on screen finishes first
func (m *GameModule) Stop(sessionID string, afterEncounter bool) error {
	return m.send(sessionID, encounter.Stop{AfterEncounter: afterEncounter})
}

// ReturnToMenu stops at once and tells the page
func (m *GameModule) ReturnToMenu(sessionID string) error {
	return m.send(sessionID, encounter.ReturnToMenu{})
}

// PointerDown presses at world position (x, y).
func (m *GameModule) PointerDown(sessionID string, x, y float64) error {
	return m.send(sessionID, encounter.PointerDown{Pos: vmath.V(x, y)})
}

// PointerMove drags to world position (x, y).
func (m *GameModule) PointerMove(sessionID string, x, y float64) error {
	return m.send(sessionID, encounter.PointerMove{Pos: vmath.V(x, y)})
}

// PointerUp releases at world position (x, y).
func (m *GameModule) PointerUp(sessionID string, x, y float64) error {
	return m.send(sessionID, encounter.PointerUp{Pos: vmath.V(x, y)})
}

// Receive delivers a page message (ReceivePokemonData, OnPokemonDataError or
// StartGame). targetID echoes the RequestPokemonData payload the message
// answers, or 0 when the page does not track it; an error for an older
// target is then dropped as stale. A malformed record still reaches the loop
// as a failed lookup; the decode error is returned as well.
func (m *GameModule) Receive(sessionID, name, payload string, targetID int) error {
	g, err := m.get(sessionID)
	if err != nil {
		return err
	}
	in, decodeErr := g.msgs.Receive(bridge.Message{Name: name, Payload: payload, TargetID: targetID})
	switch in.Kind {
	case bridge.InboundStart:
		err = m.send(sessionID, encounter.Start{})
	case bridge.InboundMetadata:
		err = m.send(sessionID, in.Result)
	default:
		return decodeErr
	}
	if err != nil {
		return err
	}
	return decodeErr
}

// Snapshot returns the current scene of a session.
func (m *GameModule) Snapshot(sessionID string) (encounter.Snapshot, error) {
	g, err := m.get(sessionID)
	if err != nil {
		return encounter.Snapshot{}, err
	}
	return g.sess.Snapshot(m.d.ctx)
}

// Sessions lists running session ids
func (m *GameModule) Sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EndGame stops a session and forgets it.
func (m *GameModule) EndGame(sessionID string) error {
	m.mu.Lock()
	g, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	g.end()
	if err := m.d.svc.SaveSeeds(); err != nil {
		m.d.logger.Printf("save seeds: %v", err)
	}
	return nil
}

// APIInfo reports the local API address and token.
func (m *GameModule) APIInfo() APIInfo { return m.d.apiInfo() }

func (g *game) end() {
	g.sess.Stop()
	g.cancel()
	if g.fetch != nil {
		g.fetch.Wait()
	}
}

func (m *GameModule) endAll() {
	m.mu.Lock()
	games := m.sessions
	m.sessions = make(map[string]*game)
	m.mu.Unlock()
	for _, g := range games {
		g.end()
	}
}
