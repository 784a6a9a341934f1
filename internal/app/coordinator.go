package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vitalslink/telecare/internal/core"
	"github.com/vitalslink/telecare/internal/domain"
)

// Coordinator drives room membership, presence fan-out, signal relay and
// chat delivery. All state lives in the Registry and RoomManager it is
// constructed with; protocol misuse is dropped here, never surfaced as a
// connection-fatal error.
type Coordinator struct {
	Registry *Registry
	Rooms    core.RoomManager
	Policy   Policy

	// Clock stamps chat messages; swapped out in tests.
	Clock func() time.Time
}

func NewCoordinator(reg *Registry, rooms core.RoomManager, policy Policy) *Coordinator {
	return &Coordinator{
		Registry: reg,
		Rooms:    rooms,
		Policy:   policy,
		Clock:    time.Now,
	}
}

// Connect registers a freshly accepted transport connection. No room
// association happens until a join.
func (c *Coordinator) Connect(cid core.ConnID, conn core.SignalConnection, cancel context.CancelFunc) {
	c.Registry.Register(cid, conn, cancel)
}

// Join admits the connection to a room, creating it lazily. The joiner
// receives a room-state snapshot; every prior member receives exactly
// one participant-joined event. The joiner never sees an event about
// itself.
func (c *Coordinator) Join(cid core.ConnID, roomID domain.RoomID, p *domain.Participant) {
	conn, ok := c.Registry.Conn(cid)
	if !ok {
		log.Warn().Str("module", "app.coordinator").Str("cid", string(cid)).Msg("join for unknown connection")
		return
	}
	// A connection belongs to at most one room; switching rooms evicts
	// it from the previous one first. A repeated join for the current
	// room is an idempotent ack: the caller gets a fresh snapshot, the
	// other members never see a duplicate presence event.
	if prev, inRoom := c.Registry.RoomOf(cid); inRoom {
		if prev == roomID {
			if room, ok := c.Rooms.Get(roomID); ok {
				_ = conn.TrySend(encode(roomStateEvent{
					Type:    EvtRoomState,
					Room:    roomID,
					Members: room.MembersSnapshot(),
					Count:   room.MemberCount(),
				}))
			}
			return
		}
		c.Leave(cid)
	}
	if !c.Registry.Join(cid, roomID, p) {
		return
	}

	room := c.Rooms.GetOrCreate(roomID)
	room.AddMember(cid, core.NewMemberSession(p, conn))

	_ = conn.TrySend(encode(roomStateEvent{
		Type:    EvtRoomState,
		Room:    roomID,
		Members: room.MembersSnapshot(),
		Count:   room.MemberCount(),
	}))

	res := room.Broadcast(cid, encode(presenceEvent{
		Type:        EvtParticipantJoined,
		Participant: dto(p),
	}))
	c.applyBackpressure(room, res)
}

// Leave evicts the connection from its room and notifies the remaining
// members. Idempotent: the second call (explicit leave racing a
// transport close) is a no-op.
func (c *Coordinator) Leave(cid core.ConnID) {
	roomID, p, ok := c.Registry.Leave(cid)
	if !ok {
		return
	}
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	room.RemoveMember(cid)

	res := room.BroadcastAll(encode(presenceEvent{
		Type:        EvtParticipantLeft,
		Participant: dto(p),
	}))
	c.applyBackpressure(room, res)

	c.Rooms.Release(roomID)
}

// Disconnect runs transport-close cleanup: room eviction plus registry
// removal, exactly once per connection.
func (c *Coordinator) Disconnect(cid core.ConnID) {
	c.Leave(cid)
	c.Registry.Unregister(cid)
}

// RelaySignal forwards an opaque WebRTC payload to every other current
// member of the sender's room. Membership is checked at delivery time;
// a signal for a room the sender is not in is dropped silently.
func (c *Coordinator) RelaySignal(cid core.ConnID, env domain.SignalEnvelope) {
	roomID, ok := c.Registry.RoomOf(cid)
	if !ok || roomID != env.RoomID {
		log.Debug().Str("module", "app.coordinator").Str("cid", string(cid)).Str("room", string(env.RoomID)).Msg("signal dropped, sender not in room")
		return
	}
	p, ok := c.Registry.ParticipantOf(cid)
	if !ok {
		return
	}
	room, ok := c.Rooms.Get(env.RoomID)
	if !ok {
		return
	}
	res := room.Broadcast(cid, encode(signalEvent{
		Type:        EvtSignal,
		Participant: p.ID,
		Room:        env.RoomID,
		Signal:      env.Signal,
	}))
	c.applyBackpressure(room, res)
}

// BroadcastChat stamps server time and delivers to every current member
// of the room, the sender included, so the sender's own UI confirms
// delivery.
func (c *Coordinator) BroadcastChat(cid core.ConnID, roomID domain.RoomID, message string) {
	current, ok := c.Registry.RoomOf(cid)
	if !ok || current != roomID {
		log.Debug().Str("module", "app.coordinator").Str("cid", string(cid)).Str("room", string(roomID)).Msg("chat dropped, sender not in room")
		return
	}
	p, ok := c.Registry.ParticipantOf(cid)
	if !ok {
		return
	}
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	res := room.BroadcastAll(encode(chatEvent{
		Type:      EvtReceiveMessage,
		Message:   message,
		Sender:    dto(p),
		Timestamp: c.Clock().UTC(),
	}))
	c.applyBackpressure(room, res)
}

func (c *Coordinator) applyBackpressure(room core.RoomService, res core.PublishResult) {
	if c.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch c.Policy.OnBackpressure(room, slow) {
		case KickMember:
			log.Warn().Str("module", "app.coordinator").Str("cid", string(slow)).Str("room", string(room.ID())).Msg("kicking slow consumer")
			if conn, ok := c.Registry.Conn(slow); ok {
				conn.Close()
			}
			c.Leave(slow)
		case DropFrame, NoAction:
		}
	}
}
