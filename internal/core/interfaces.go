package core

import "github.com/vitalslink/telecare/internal/domain"

// Frame is an encoded wire payload ready for the transport.
type Frame []byte

// ConnID identifies a live transport connection. It is generated on
// accept and dies with the connection.
type ConnID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds domain.Participant and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Participant
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the coordinator.
type PublishResult struct {
	SentTo  int
	Dropped []ConnID
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID   domain.ParticipantID `json:"id"`
	Name string               `json:"name,omitempty"`
	Role domain.Role          `json:"role,omitempty"`
}

// RoomService is the core-facing API of a room. It owns the membership
// set but never touches transport resources. Membership keeps join order.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	MembersSnapshot() []MemberDTO

	AddMember(cid ConnID, ms MemberSession)
	RemoveMember(cid ConnID)

	// Broadcast fans a frame out to every member except from.
	Broadcast(from ConnID, data Frame) PublishResult
	// BroadcastAll fans a frame out to every member, sender included.
	BroadcastAll(data Frame) PublishResult
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

type RoomManager interface {
	GetOrCreate(id domain.RoomID) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	List() []RoomInfo
	Release(id domain.RoomID)
}
