package price

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterRoutes mounts the price endpoints: a JSON snapshot and a
// WebSocket relay of the upstream feed.
func RegisterRoutes(r chi.Router, t *Ticker) {
	r.Get("/api/price", handleLatest(t))
	r.Get("/ws/price", handleRelay(t))
}

func handleLatest(t *Ticker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := t.Latest()
		if q == nil {
			http.Error(w, "no quote received yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(q)
	}
}

// handleRelay pushes quotes to a browser client. Each client gets its
// own subscription so one stalled socket cannot hold up another.
func handleRelay(t *Ticker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("price: websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		quotes, cancel := t.Subscribe()
		defer cancel()

		// Reads are discarded but the pump notices a closed peer.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					conn.Close()
					return
				}
			}
		}()

		if q := t.Latest(); q != nil {
			if err := writeQuote(conn, *q); err != nil {
				return
			}
		}

		for {
			select {
			case q, ok := <-quotes:
				if !ok {
					return
				}
				if err := writeQuote(conn, q); err != nil {
					return
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}

func writeQuote(conn *websocket.Conn, q Quote) error {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(q)
}
