package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vitalslink/telecare/internal/domain"
)

// roomImpl is a threadsafe in-memory room. Membership is kept in join
// order; it never closes adapter-owned resources.
type roomImpl struct {
	id    domain.RoomID
	mu    sync.RWMutex
	order []ConnID
	byCID map[ConnID]MemberSession
}

func NewRoomService(id domain.RoomID) RoomService {
	return &roomImpl{
		id:    id,
		byCID: make(map[ConnID]MemberSession),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCID)
}

func (r *roomImpl) AddMember(cid ConnID, ms MemberSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCID[cid]; ok {
		// Re-join of a live connection updates the session but keeps
		// its position; the member set never holds duplicates.
		r.byCID[cid] = ms
		return
	}
	r.byCID[cid] = ms
	r.order = append(r.order, cid)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("cid", string(cid)).Str("participant", string(ms.Meta().ID)).Msg("member added")
}

func (r *roomImpl) RemoveMember(cid ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCID[cid]; !ok {
		return
	}
	delete(r.byCID, cid)
	for i, id := range r.order {
		if id == cid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("cid", string(cid)).Msg("member removed")
}

func (r *roomImpl) Broadcast(from ConnID, data Frame) PublishResult {
	return r.publish(&from, data)
}

func (r *roomImpl) BroadcastAll(data Frame) PublishResult {
	return r.publish(nil, data)
}

func (r *roomImpl) publish(skip *ConnID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for _, cid := range r.order {
		if skip != nil && cid == *skip {
			continue
		}
		if err := r.byCID[cid].Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, cid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.order))
	for _, cid := range r.order {
		p := r.byCID[cid].Meta()
		out = append(out, MemberDTO{ID: p.ID, Name: p.Name, Role: p.Role})
	}
	return out
}
