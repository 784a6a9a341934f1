package callclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vitalslink/telecare/internal/domain"
)

const writeWait = 5 * time.Second

// WSSignaler speaks the consultation websocket protocol. One instance
// per call; the read loop feeds the client until the transport closes.
type WSSignaler struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool

	participant domain.Participant
}

// Dial connects to the signaling endpoint and starts dispatching server
// events to the client. The caller still has to Start the client with
// the returned signaler.
func Dial(ctx context.Context, url string, client *Client) (*WSSignaler, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	s := &WSSignaler{conn: conn}
	go s.readLoop(client)
	return s, nil
}

func (s *WSSignaler) JoinRoom(room domain.RoomID, p domain.Participant) error {
	s.mu.Lock()
	s.participant = p
	s.mu.Unlock()
	return s.writeJSON(map[string]any{
		"type":        "join-room",
		"room":        string(room),
		"participant": string(p.ID),
		"name":        p.Name,
		"role":        string(p.Role),
	})
}

func (s *WSSignaler) SendSignal(room domain.RoomID, body SignalBody) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	pid := s.participant.ID
	s.mu.Unlock()
	return s.writeJSON(map[string]any{
		"type":        "signal",
		"room":        string(room),
		"participant": string(pid),
		"signal":      json.RawMessage(raw),
	})
}

func (s *WSSignaler) SendChat(room domain.RoomID, message string) error {
	return s.writeJSON(map[string]any{
		"type":    "send-message",
		"room":    string(room),
		"message": message,
	})
}

func (s *WSSignaler) LeaveRoom() error {
	return s.writeJSON(map[string]any{
		"type": "leave-room",
	})
}

func (s *WSSignaler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	_ = s.conn.Close()
}

func (s *WSSignaler) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func (s *WSSignaler) readLoop(client *Client) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			client.HandleTransportClosed(err)
			return
		}
		s.dispatch(client, data)
	}
}

func (s *WSSignaler) dispatch(client *Client, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "callclient.ws").Msg("bad server frame")
		return
	}

	switch env.Type {
	case "room-state":
		var p struct {
			Members []domain.Participant `json:"members"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		client.HandleRoomState(p.Members)
	case "participant-joined":
		var p struct {
			Participant domain.Participant `json:"participant"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		client.HandlePeerJoined(p.Participant)
	case "participant-left":
		var p struct {
			Participant domain.Participant `json:"participant"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		client.HandlePeerLeft(p.Participant)
	case "signal":
		var p struct {
			Participant domain.ParticipantID `json:"participant"`
			Signal      SignalBody           `json:"signal"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			log.Error().Err(err).Str("module", "callclient.ws").Msg("bad signal frame")
			return
		}
		client.HandleSignal(p.Participant, p.Signal)
	case "receive-message":
		var p struct {
			Message   string             `json:"message"`
			Sender    domain.Participant `json:"sender"`
			Timestamp time.Time          `json:"timestamp"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		client.HandleChat(domain.ChatMessage{
			Message:   p.Message,
			Sender:    p.Sender,
			Timestamp: p.Timestamp,
		})
	case "left", "pong":
		// acknowledged, nothing to drive
	case "error":
		var p struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &p)
		log.Warn().Str("module", "callclient.ws").Str("error", p.Error).Msg("server error frame")
	default:
		log.Warn().Str("module", "callclient.ws").Str("type", env.Type).Msg("unknown server frame")
	}
}
