package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"twentyq/internal/oracle"
	"twentyq/internal/turn"
)

const (
	gameWSWriteWait = 10 * time.Second
	gameWSPongWait  = 60 * time.Second
	gameWSPingEvery = (gameWSPongWait * 9) / 10
)

var gameWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type gameWSInbound struct {
	Type   string `json:"type"`
	Answer string `json:"answer,omitempty"`
}

type gameWSOutbound struct {
	Type           string `json:"type"`
	SessionID      string `json:"sessionId,omitempty"`
	Kind           string `json:"kind,omitempty"`
	Text           string `json:"text,omitempty"`
	QuestionsAsked int    `json:"questionsAsked,omitempty"`
	State          string `json:"state,omitempty"`
	Code           string `json:"code,omitempty"`
	Message        string `json:"message,omitempty"`
}

// WSHandler plays a whole game over one websocket connection. Frames:
// inbound {"type":"turn","answer":...} (answer empty for the first
// turn) and {"type":"abandon"}; outbound "turn", "finished" or "error".
type WSHandler struct {
	ctrl *turn.Controller
	reg  *turn.Registry
	log  *zap.Logger
}

func NewWSHandler(ctrl *turn.Controller, reg *turn.Registry, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{ctrl: ctrl, reg: reg, log: log}
}

func (h *WSHandler) HandleGameWS(w http.ResponseWriter, r *http.Request) {
	owner := ownerToken(r)
	if owner == "" {
		owner = strings.TrimSpace(r.URL.Query().Get("owner"))
	}

	conn, err := gameWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(gameWSPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(gameWSPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(gameWSPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(gameWSWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	sess := h.reg.Create(owner)
	defer func() {
		// Connection gone mid-game: finalize as abandoned.
		if s, release, err := h.reg.Acquire(sess.ID); err == nil {
			_ = h.ctrl.Abandon(r.Context(), s)
			release()
			h.reg.Remove(sess.ID)
		}
	}()

	for {
		var in gameWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(gameWSPongWait))

		switch in.Type {
		case "turn":
			if finished := h.playTurn(conn, r, sess.ID, in.Answer); finished {
				return
			}
		case "abandon":
			return
		default:
			h.send(conn, gameWSOutbound{Type: "error", Code: "bad_frame", Message: "unknown frame type"})
		}
	}
}

func (h *WSHandler) playTurn(conn *websocket.Conn, r *http.Request, sessionID, answer string) bool {
	sess, release, err := h.reg.Acquire(sessionID)
	if err != nil {
		h.sendError(conn, err)
		return false
	}

	res, err := h.ctrl.SubmitTurn(r.Context(), sess, answer)
	if err != nil {
		release()
		h.sendError(conn, err)
		return false
	}
	terminal := sess.Terminal()
	release()
	if terminal {
		h.reg.Remove(sessionID)
	}

	out := gameWSOutbound{
		Type:           "turn",
		SessionID:      res.SessionID,
		Kind:           string(res.Kind),
		Text:           res.Text,
		QuestionsAsked: res.QuestionsAsked,
		State:          string(res.State),
	}
	if terminal {
		out.Type = "finished"
	}
	h.send(conn, out)
	return terminal
}

func (h *WSHandler) sendError(conn *websocket.Conn, err error) {
	out := gameWSOutbound{Type: "error"}
	switch {
	case errors.Is(err, turn.ErrSessionBusy):
		out.Code = "busy"
		out.Message = "a turn is already in progress"
	case errors.Is(err, turn.ErrInvalidTurn):
		out.Code = "invalid_turn"
		out.Message = "input does not match the session state"
	case errors.Is(err, oracle.ErrUnavailable):
		out.Code = "oracle_unavailable"
		out.Message = "the questioner is unavailable, try again"
	case errors.Is(err, turn.ErrSessionNotFound):
		out.Code = "not_found"
		out.Message = "session not found"
	default:
		h.log.Error("websocket turn failed", zap.Error(err))
		out.Code = "internal"
		out.Message = "internal error"
	}
	h.send(conn, out)
}

func (h *WSHandler) send(conn *websocket.Conn, out gameWSOutbound) {
	_ = conn.SetWriteDeadline(time.Now().Add(gameWSWriteWait))
	if err := conn.WriteJSON(out); err != nil {
		h.log.Debug("websocket write failed", zap.Error(err))
	}
}
