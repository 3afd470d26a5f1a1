package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"twentyq/internal/oracle"
	"twentyq/internal/turn"
)

// GameHandler exposes the single caller operation: submit one turn.
type GameHandler struct {
	ctrl *turn.Controller
	reg  *turn.Registry
	log  *zap.Logger
}

func NewGameHandler(ctrl *turn.Controller, reg *turn.Registry, log *zap.Logger) *GameHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GameHandler{ctrl: ctrl, reg: reg, log: log}
}

type submitTurnRequest struct {
	// SessionID is empty only on the very first call of a session.
	SessionID string `json:"sessionId,omitempty"`
	// Answer is the human's input: the reply to the pending question,
	// or the confirmation verdict on a pending guess.
	Answer string `json:"answer,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *GameHandler) HandleSubmit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req submitTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}
	owner := ownerToken(r)

	sessionID := req.SessionID
	if sessionID == "" {
		if strings.TrimSpace(req.Answer) != "" {
			// An answer cannot precede the first question. Reject before
			// a session is created so nothing lingers in the registry.
			h.writeError(w, turn.ErrInvalidTurn)
			return
		}
		sessionID = h.reg.Create(owner).ID
	}

	sess, release, err := h.reg.Acquire(sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer release()

	if sess.Owner != owner {
		// Wrong owner looks identical to a missing session.
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "session not found"})
		return
	}

	res, err := h.ctrl.SubmitTurn(r.Context(), sess, req.Answer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if sess.Terminal() {
		h.reg.Remove(sess.ID)
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *GameHandler) HandleAbandon(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sess, release, err := h.reg.Acquire(p.ByName("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer release()

	if sess.Owner != ownerToken(r) {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "session not found"})
		return
	}
	if err := h.ctrl.Abandon(r.Context(), sess); err != nil {
		h.writeError(w, err)
		return
	}
	h.reg.Remove(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, turn.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "session not found"})
	case errors.Is(err, turn.ErrSessionBusy):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "a turn is already in progress"})
	case errors.Is(err, turn.ErrInvalidTurn):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "input does not match the session state"})
	case errors.Is(err, oracle.ErrUnavailable):
		// The only way oracle unreliability reaches the user: a generic
		// retryable failure.
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Message: "the questioner is unavailable, try again"})
	default:
		h.log.Error("submit turn failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
