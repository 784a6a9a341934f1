package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vitalslink/telecare/internal/core"
	"github.com/vitalslink/telecare/internal/domain"
)

type connEntry struct {
	Participant *domain.Participant
	RoomID      domain.RoomID
	Conn        core.SignalConnection
	Cancel      context.CancelFunc
}

// Registry tracks live transport connections and which room each belongs
// to. It is the only mapping from connection ids back to sessions; rooms
// hold sessions but never own them.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[core.ConnID]*connEntry)}
}

// Register adds a connection with no room. Bookkeeping only.
func (r *Registry) Register(cid core.ConnID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[cid] = &connEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("registered connection")
}

// Join associates the connection with a room. Unknown connections are
// logged and refused; they are not an error for the caller.
func (r *Registry) Join(cid core.ConnID, roomID domain.RoomID, p *domain.Participant) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[cid]
	if !ok {
		log.Warn().Str("module", "app.registry").Str("cid", string(cid)).Str("room", string(roomID)).Msg("join for unknown connection")
		return false
	}
	entry.RoomID = roomID
	entry.Participant = p
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("room", string(roomID)).Str("participant", string(p.ID)).Msg("joined room")
	return true
}

// Leave clears the room association. It reports the room and participant
// only the first time, so eviction side effects fire exactly once even
// when an explicit leave races a transport close.
func (r *Registry) Leave(cid core.ConnID) (domain.RoomID, *domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[cid]
	if !ok || entry.RoomID == "" {
		return "", nil, false
	}
	roomID, p := entry.RoomID, entry.Participant
	entry.RoomID = ""
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("room", string(roomID)).Msg("left room")
	return roomID, p, true
}

// Unregister drops the connection entirely and cancels its context.
func (r *Registry) Unregister(cid core.ConnID) {
	r.mu.Lock()
	entry, ok := r.conns[cid]
	delete(r.conns, cid)
	r.mu.Unlock()
	if !ok {
		return
	}
	if entry.Cancel != nil {
		entry.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("unregistered connection")
}

func (r *Registry) Conn(cid core.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[cid]; ok {
		return e.Conn, true
	}
	return nil, false
}

func (r *Registry) RoomOf(cid core.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[cid]
	if !ok || e.RoomID == "" {
		return "", false
	}
	return e.RoomID, true
}

func (r *Registry) ParticipantOf(cid core.ConnID) (*domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[cid]
	if !ok || e.Participant == nil {
		return nil, false
	}
	return e.Participant, true
}
