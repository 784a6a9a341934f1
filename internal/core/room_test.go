package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalslink/telecare/internal/domain"
)

type mockConn struct {
	mu      sync.Mutex
	frames  []Frame
	sendErr error
	closed  bool
}

func (m *mockConn) TrySend(f Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.frames = append(m.frames, f)
	return nil
}

func (m *mockConn) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockConn) received() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

func member(id string) (MemberSession, *mockConn) {
	conn := &mockConn{}
	p := &domain.Participant{ID: domain.ParticipantID(id), Name: id}
	return NewMemberSession(p, conn), conn
}

func TestRoom_MembershipJoinOrder(t *testing.T) {
	room := NewRoomService("consult-1")

	mA, _ := member("alice")
	mB, _ := member("bob")
	mC, _ := member("carol")

	room.AddMember("c1", mA)
	room.AddMember("c2", mB)
	room.AddMember("c3", mC)

	snap := room.MembersSnapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, domain.ParticipantID("alice"), snap[0].ID)
	assert.Equal(t, domain.ParticipantID("bob"), snap[1].ID)
	assert.Equal(t, domain.ParticipantID("carol"), snap[2].ID)

	room.RemoveMember("c2")
	snap = room.MembersSnapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, domain.ParticipantID("alice"), snap[0].ID)
	assert.Equal(t, domain.ParticipantID("carol"), snap[1].ID)
}

func TestRoom_NoDuplicateMembers(t *testing.T) {
	room := NewRoomService("consult-1")
	mA, _ := member("alice")

	room.AddMember("c1", mA)
	room.AddMember("c1", mA)

	assert.Equal(t, 1, room.MemberCount())
	assert.Len(t, room.MembersSnapshot(), 1)
}

func TestRoom_RemoveUnknownIsNoop(t *testing.T) {
	room := NewRoomService("consult-1")
	mA, _ := member("alice")
	room.AddMember("c1", mA)

	room.RemoveMember("nope")
	room.RemoveMember("c1")
	room.RemoveMember("c1")

	assert.Equal(t, 0, room.MemberCount())
}

func TestRoom_BroadcastExcludesSender(t *testing.T) {
	room := NewRoomService("consult-1")
	mA, connA := member("alice")
	mB, connB := member("bob")
	room.AddMember("c1", mA)
	room.AddMember("c2", mB)

	res := room.Broadcast("c1", Frame(`{"type":"signal"}`))

	assert.Equal(t, 1, res.SentTo)
	assert.Empty(t, res.Dropped)
	assert.Empty(t, connA.received())
	require.Len(t, connB.received(), 1)
}

func TestRoom_BroadcastAllIncludesEveryone(t *testing.T) {
	room := NewRoomService("consult-1")
	mA, connA := member("alice")
	mB, connB := member("bob")
	room.AddMember("c1", mA)
	room.AddMember("c2", mB)

	res := room.BroadcastAll(Frame(`{"type":"receive-message"}`))

	assert.Equal(t, 2, res.SentTo)
	assert.Len(t, connA.received(), 1)
	assert.Len(t, connB.received(), 1)
}

func TestRoom_BroadcastReportsDropped(t *testing.T) {
	room := NewRoomService("consult-1")
	mA, _ := member("alice")
	mB, connB := member("bob")
	connB.sendErr = errors.New("backpressure")
	room.AddMember("c1", mA)
	room.AddMember("c2", mB)

	res := room.Broadcast("c1", Frame(`x`))

	assert.Equal(t, 0, res.SentTo)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, ConnID("c2"), res.Dropped[0])
}
