package server

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func NewMux(gameHandler *GameHandler, wsHandler *WSHandler) http.Handler {
	router := httprouter.New()

	router.POST("/api/game", gameHandler.HandleSubmit)
	router.POST("/api/game/:id/abandon", gameHandler.HandleAbandon)
	router.HandlerFunc(http.MethodGet, "/ws/game", wsHandler.HandleGameWS)
	router.HandlerFunc(http.MethodGet, "/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	return CORS(router)
}
