package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/vitalslink/telecare/internal/core"
	"github.com/vitalslink/telecare/internal/domain"
)

func (ctl *ConsultController) handleSendMessage(cid core.ConnID, c *wsConn, data []byte) {
	type chatPayload struct {
		Type    string `json:"type"`
		Room    string `json:"room"`
		Message string `json:"message"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.Message == "" {
		ctl.sendError(c, "empty message")
		return
	}

	if !ctl.chatLimit.Allow(cid) {
		log.Warn().Str("module", "signal").Str("cid", string(cid)).Msg("chat rate limited")
		ctl.sendError(c, "rate_limited")
		return
	}

	ctl.Coord.BroadcastChat(cid, domain.RoomID(p.Room), p.Message)
}
