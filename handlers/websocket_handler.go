package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/liga-hub/tabellen-service/tabellen"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the known frontend origins before exposing this
		// beyond the internal network.
		return true
	},
}

type WebSocketHandler struct {
	hub *tabellen.Hub
}

func NewWebSocketHandler(hub *tabellen.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeWs subscribes the client to live table updates for one league.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	leagueID, err := urlParamInt(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Warn("websocket upgrade failed", slog.Int("league_id", leagueID), slog.Any("error", err))
		return
	}

	client := &tabellen.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: tabellen.LeagueRoom(leagueID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
