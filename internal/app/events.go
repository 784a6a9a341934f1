package app

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vitalslink/telecare/internal/core"
	"github.com/vitalslink/telecare/internal/domain"
)

// Server-to-client event names. Client-to-server frame types live with
// the transport adapter that parses them.
const (
	EvtRoomState         = "room-state"
	EvtParticipantJoined = "participant-joined"
	EvtParticipantLeft   = "participant-left"
	EvtSignal            = "signal"
	EvtReceiveMessage    = "receive-message"
)

type roomStateEvent struct {
	Type    string           `json:"type"`
	Room    domain.RoomID    `json:"room"`
	Members []core.MemberDTO `json:"members"`
	Count   int              `json:"count"`
}

type presenceEvent struct {
	Type        string         `json:"type"`
	Participant core.MemberDTO `json:"participant"`
}

type signalEvent struct {
	Type        string               `json:"type"`
	Participant domain.ParticipantID `json:"participant"`
	Room        domain.RoomID        `json:"room"`
	Signal      json.RawMessage      `json:"signal"`
}

type chatEvent struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Sender    core.MemberDTO `json:"sender"`
	Timestamp time.Time      `json:"timestamp"`
}

func encode(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.events").Msg("encode event")
		return nil
	}
	return b
}

func dto(p *domain.Participant) core.MemberDTO {
	return core.MemberDTO{ID: p.ID, Name: p.Name, Role: p.Role}
}
