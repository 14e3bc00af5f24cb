package price

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// fakeFeed serves one upstream connection: it checks the subscription
// request and replies with the given messages.
func fakeFeed(t *testing.T, messages ...string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("feed upgrade: %v", err)
			return
		}
		defer conn.Close()

		var sub subscribeMsg
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("feed read subscribe: %v", err)
			return
		}
		if sub.Type != "subscribe" || len(sub.Channels) != 1 || sub.Channels[0] != "ticker" {
			t.Errorf("unexpected subscription: %+v", sub)
		}

		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestTickerReceivesQuotes(t *testing.T) {
	srv := fakeFeed(t,
		`{"type":"subscriptions","channels":[]}`,
		`{"type":"ticker","product_id":"BTC-USD","price":"64123.45"}`,
	)

	ticker := NewTicker(wsURL(srv), "BTC-USD")
	quotes, cancel := ticker.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go ticker.Run(ctx)

	select {
	case q := <-quotes:
		if q.Price != "64123.45" || q.Product != "BTC-USD" {
			t.Errorf("quote = %+v", q)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no quote within 5s")
	}

	if got := ticker.Latest(); got == nil || got.Price != "64123.45" {
		t.Errorf("Latest() = %+v", got)
	}
}

func TestTickerSkipsNonTickerMessages(t *testing.T) {
	srv := fakeFeed(t,
		`{"type":"heartbeat","sequence":1}`,
		`not json at all`,
		`{"type":"ticker","product_id":"BTC-USD","price":"50000.00"}`,
	)

	ticker := NewTicker(wsURL(srv), "BTC-USD")
	quotes, cancel := ticker.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go ticker.Run(ctx)

	select {
	case q := <-quotes:
		if q.Price != "50000.00" {
			t.Errorf("first delivered quote = %+v, want the ticker message", q)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no quote within 5s")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	ticker := NewTicker("ws://unused", "BTC-USD")

	ch, cancel := ticker.Subscribe()
	ticker.publish(Quote{Product: "BTC-USD", Price: "1.00"})
	select {
	case q := <-ch:
		if q.Price != "1.00" {
			t.Errorf("quote = %+v", q)
		}
	default:
		t.Fatal("subscriber did not receive published quote")
	}

	cancel()
	ticker.publish(Quote{Product: "BTC-USD", Price: "2.00"})
	select {
	case q := <-ch:
		t.Errorf("received %+v after unsubscribe", q)
	default:
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	ticker := NewTicker("ws://unused", "BTC-USD")
	_, cancel := ticker.Subscribe()
	defer cancel()

	// Way past the channel buffer; publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			ticker.publish(Quote{Price: "1.00"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestLatestEndpoint(t *testing.T) {
	ticker := NewTicker("ws://unused", "BTC-USD")
	r := chi.NewRouter()
	RegisterRoutes(r, ticker)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/price", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before first quote = %d, want 503", rec.Code)
	}

	ticker.publish(Quote{Product: "BTC-USD", Price: "60000.10"})

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/price", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var q Quote
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if q.Price != "60000.10" {
		t.Errorf("price = %q, want 60000.10", q.Price)
	}
}

func TestRelayPushesQuotes(t *testing.T) {
	ticker := NewTicker("ws://unused", "BTC-USD")
	r := chi.NewRouter()
	RegisterRoutes(r, ticker)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"/ws/price", nil)
	if err != nil {
		t.Fatalf("dialing relay: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Publish until the handler's subscription picks one up; the
	// relay delivers the first quote it sees.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(50 * time.Millisecond):
				ticker.publish(Quote{Product: "BTC-USD", Price: "61000.00"})
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var q Quote
	if err := conn.ReadJSON(&q); err != nil {
		t.Fatalf("reading relayed quote: %v", err)
	}
	if q.Price != "61000.00" {
		t.Errorf("relayed quote = %+v", q)
	}
}
