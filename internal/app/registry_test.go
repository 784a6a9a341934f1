package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalslink/telecare/internal/core"
	"github.com/vitalslink/telecare/internal/domain"
)

type stubConn struct {
	mu      sync.Mutex
	frames  []core.Frame
	sendErr error
	closed  bool
}

func (s *stubConn) TrySend(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *stubConn) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func patient(id string) *domain.Participant {
	return &domain.Participant{ID: domain.ParticipantID(id), Role: domain.RolePatient}
}

func TestRegistry_JoinUnknownConnection(t *testing.T) {
	r := NewRegistry()
	ok := r.Join("ghost", "consult-1", patient("p1"))
	assert.False(t, ok)
}

func TestRegistry_LeaveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", &stubConn{}, nil)
	require.True(t, r.Join("c1", "consult-1", patient("p1")))

	roomID, p, ok := r.Leave("c1")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("consult-1"), roomID)
	assert.Equal(t, domain.ParticipantID("p1"), p.ID)

	_, _, ok = r.Leave("c1")
	assert.False(t, ok, "second leave reports nothing to do")
}

func TestRegistry_LeaveWithoutJoin(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", &stubConn{}, nil)

	_, _, ok := r.Leave("c1")
	assert.False(t, ok)
}

func TestRegistry_RoomOf(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", &stubConn{}, nil)

	_, ok := r.RoomOf("c1")
	assert.False(t, ok)

	r.Join("c1", "consult-1", patient("p1"))
	roomID, ok := r.RoomOf("c1")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("consult-1"), roomID)
}

func TestRegistry_UnregisterCancels(t *testing.T) {
	r := NewRegistry()
	cancelled := false
	r.Register("c1", &stubConn{}, func() { cancelled = true })

	r.Unregister("c1")

	assert.True(t, cancelled)
	_, ok := r.Conn("c1")
	assert.False(t, ok)

	r.Unregister("c1") // repeated unregister is harmless
}
