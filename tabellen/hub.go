package tabellen

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
)

// Hub fans freshly computed tables out to websocket subscribers. Rooms are
// keyed per league so clients only receive updates for the table they watch.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
}

type TableMessage struct {
	Type    string      `json:"type"` // e.g. "TABLE_UPDATED"
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

const MessageTableUpdated = "TABLE_UPDATED"

func LeagueRoom(leagueID int) string {
	return "league_" + strconv.Itoa(leagueID)
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, okClient := clients[client]; okClient {
					client.Mu.Lock()
					if !client.IsClosed {
						close(client.Send)
						client.IsClosed = true
					}
					client.Mu.Unlock()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom sends a message to every client in the room. Clients with
// a full send buffer are skipped rather than blocked on.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomClients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshalling message for room %s: %v", roomID, err)
		return
	}

	for client := range roomClients {
		client.Mu.Lock()
		if client.IsClosed {
			client.Mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			log.Printf("Client's send channel full or closed for room %s. Skipping.", roomID)
		}
		client.Mu.Unlock()
	}
}
