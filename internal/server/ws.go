package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/vaultjudge/internal/app"
)

// clientBuffer is the number of messages queued per client before new ones are dropped.
const clientBuffer = 64

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LiveMessage is broadcast to live clients. Frame messages carry the frame fields,
// job messages carry the finished report.
type LiveMessage struct {
	Type       string             `json:"type"`
	Job        string             `json:"job"`
	Frame      int                `json:"frame"`
	Detected   bool               `json:"detected"`
	Phase      string             `json:"phase"`
	Label      string             `json:"label"`
	Deductions map[string]float64 `json:"deductions,omitempty"`
	Report     *app.VideoReport   `json:"report,omitempty"`
}

// Message types.
const (
	MessageFrame       = "frame"
	MessageJobFinished = "job_finished"
)

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
}

// LiveHub broadcasts job progress to WebSocket clients. It implements app.Listener.
type LiveHub struct {
	logger  zerolog.Logger
	clients map[*liveClient]struct{}
	mu      sync.RWMutex
}

// NewLiveHub creates an empty hub.
func NewLiveHub(logger zerolog.Logger) *LiveHub {
	return &LiveHub{
		logger:  logger.With().Str("component", "live").Logger(),
		clients: make(map[*liveClient]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *LiveHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &liveClient{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
}

func (c *liveClient) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// FrameProcessed broadcasts one judged frame.
func (h *LiveHub) FrameProcessed(jobID string, fr app.FrameResult) {
	msg := LiveMessage{
		Type:     MessageFrame,
		Job:      jobID,
		Frame:    fr.Index,
		Detected: fr.Detected && fr.Err == nil,
		Phase:    fr.Phase.String(),
		Label:    fr.Result.Label,
	}
	if len(fr.Result.Deductions) > 0 {
		msg.Deductions = make(map[string]float64, len(fr.Result.Deductions))
		for _, d := range fr.Result.Deductions {
			msg.Deductions[string(d.Kind)] = d.Value
		}
	}
	h.broadcast(msg)
}

// JobFinished broadcasts the report of a finished job.
func (h *LiveHub) JobFinished(report app.VideoReport) {
	h.broadcast(LiveMessage{
		Type:   MessageJobFinished,
		Job:    report.JobID,
		Phase:  report.FinalPhase,
		Report: &report,
	})
}

// broadcast queues msg for every client. Slow clients miss messages instead of
// stalling the job.
func (h *LiveHub) broadcast(msg LiveMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("encode live message")
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug().Msg("live client too slow, message dropped")
		}
	}
}
