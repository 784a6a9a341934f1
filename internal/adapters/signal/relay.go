package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/vitalslink/telecare/internal/core"
	"github.com/vitalslink/telecare/internal/domain"
)

// handleSignal relays an opaque WebRTC payload. The server never parses
// the signal body; session descriptions and ICE candidates pass through
// byte-for-byte.
func (ctl *ConsultController) handleSignal(cid core.ConnID, c *wsConn, data []byte) {
	var env domain.SignalEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad signal payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if len(env.Signal) == 0 {
		log.Warn().Str("module", "signal").Str("cid", string(cid)).Msg("empty signal dropped")
		return
	}
	ctl.Coord.RelaySignal(cid, env)
}
