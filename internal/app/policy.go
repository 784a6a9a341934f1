package app

import "github.com/vitalslink/telecare/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose send buffer is full.
type Policy interface {
	OnBackpressure(room core.RoomService, cid core.ConnID) BackpressureAction
}

// SimplePolicy evicts slow consumers; a stalled tab must not wedge the
// consultation for its peer.
type SimplePolicy struct{}

func (SimplePolicy) OnBackpressure(room core.RoomService, cid core.ConnID) BackpressureAction {
	return KickMember
}
