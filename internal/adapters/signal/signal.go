package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vitalslink/telecare/internal/app"
	"github.com/vitalslink/telecare/internal/config"
	"github.com/vitalslink/telecare/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// ConsultController multiplexes consultation websocket connections onto
// the coordinator. One instance serves all connections.
type ConsultController struct {
	Coord     *app.Coordinator
	cfg       *config.Config
	chatLimit *ChatRateLimiter
}

func NewConsultController(coord *app.Coordinator, cfg *config.Config) *ConsultController {
	return &ConsultController{
		Coord:     coord,
		cfg:       cfg,
		chatLimit: NewChatRateLimiter(20, 10*time.Second),
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleConsult upgrades the request and runs the connection until the
// transport closes. The connection id is generated here, on accept; the
// participant id arrives later with join-room.
func (ctl *ConsultController) HandleConsult(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	cid := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("sid", c.GetString("client_token")).Msg("new WS connection")

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.cfg.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Coord.Connect(cid, conn, cancel)

	go ctl.writePump(ctx, cid, conn)
	go ctl.readPump(ctx, cid, conn)
}
