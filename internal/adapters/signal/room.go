package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/vitalslink/telecare/internal/core"
	"github.com/vitalslink/telecare/internal/domain"
)

func (ctl *ConsultController) handleJoin(cid core.ConnID, c *wsConn, data []byte) {
	type joinPayload struct {
		Type        string `json:"type"`
		Room        string `json:"room"`
		Participant string `json:"participant"`
		Name        string `json:"name,omitempty"`
		Role        string `json:"role,omitempty"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.Room == "" {
		// A join with no room id is protocol misuse, not fatal to the
		// connection.
		log.Warn().Str("module", "signal").Str("cid", string(cid)).Msg("join without room id")
		ctl.sendError(c, "room required")
		return
	}

	participant, err := domain.NewParticipant(
		domain.ParticipantID(p.Participant),
		p.Name,
		domain.Role(p.Role),
	)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad participant in join")
		ctl.sendError(c, "bad_participant")
		return
	}

	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("room", p.Room).Str("participant", p.Participant).Msg("join")
	ctl.Coord.Join(cid, domain.RoomID(p.Room), participant)
}

// handleLeave evicts the connection from its room; the transport stays
// open so the client can join another consultation.
func (ctl *ConsultController) handleLeave(cid core.ConnID, c *wsConn) {
	log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("leave")
	ctl.Coord.Leave(cid)
	ctl.sendJSON(c, map[string]any{
		"type": "left",
	})
}
