package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalslink/telecare/internal/core"
)

func TestRoomManager_GetOrCreate(t *testing.T) {
	m := NewRoomManager()

	r1 := m.GetOrCreate("consult-1")
	r2 := m.GetOrCreate("consult-1")
	assert.Same(t, r1, r2, "same id yields the same room")

	r3 := m.GetOrCreate("consult-2")
	assert.NotSame(t, r1, r3)
	assert.Len(t, m.List(), 2)
}

func TestRoomManager_ReleaseOnlyWhenEmpty(t *testing.T) {
	m := NewRoomManager()
	room := m.GetOrCreate("consult-1")
	room.AddMember("c1", core.NewMemberSession(patient("p1"), &stubConn{}))

	m.Release("consult-1")
	_, ok := m.Get("consult-1")
	require.True(t, ok, "occupied room survives a release attempt")

	room.RemoveMember("c1")
	m.Release("consult-1")
	_, ok = m.Get("consult-1")
	assert.False(t, ok)
}

func TestRoomManager_ReleaseUnknown(t *testing.T) {
	m := NewRoomManager()
	m.Release("ghost")
	assert.Empty(t, m.List())
}
