package price

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	initialRetryDelay = time.Second
	maxRetryDelay     = 60 * time.Second
	readTimeout       = 90 * time.Second
)

// Quote is one price update from the upstream feed. Price stays a
// string because that is how the exchange sends it and clients format
// it themselves.
type Quote struct {
	Product string    `json:"product_id"`
	Price   string    `json:"price"`
	Time    time.Time `json:"time"`
}

// subscribeMsg is the channel subscription sent after dialing.
type subscribeMsg struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

// Ticker maintains a connection to the upstream price feed, caches the
// latest quote and fans updates out to subscribers.
type Ticker struct {
	feedURL string
	product string

	mu     sync.Mutex
	latest *Quote
	subs   map[chan Quote]struct{}
}

func NewTicker(feedURL, product string) *Ticker {
	return &Ticker{
		feedURL: feedURL,
		product: product,
		subs:    make(map[chan Quote]struct{}),
	}
}

// Latest returns the most recent quote, or nil before the first one
// arrives.
func (t *Ticker) Latest() *Quote {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// Subscribe registers a quote channel. Slow subscribers miss updates
// rather than blocking the feed. The returned func unsubscribes.
func (t *Ticker) Subscribe() (<-chan Quote, func()) {
	ch := make(chan Quote, 8)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()

	return ch, func() {
		t.mu.Lock()
		delete(t.subs, ch)
		t.mu.Unlock()
	}
}

func (t *Ticker) publish(q Quote) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = &q
	for ch := range t.subs {
		select {
		case ch <- q:
		default:
		}
	}
}

// Run connects to the feed and reconnects with a doubling delay until
// ctx is cancelled. The delay resets once a connection yields a quote.
func (t *Ticker) Run(ctx context.Context) {
	delay := initialRetryDelay
	for {
		got, err := t.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("price: feed %s: %v", t.feedURL, err)
		}
		if got {
			delay = initialRetryDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay < maxRetryDelay {
			delay *= 2
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
		}
	}
}

// stream runs one connection until it fails, reporting whether any
// quote was received on it.
func (t *Ticker) stream(ctx context.Context) (bool, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.feedURL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// Drop the connection promptly when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sub := subscribeMsg{
		Type:       "subscribe",
		ProductIDs: []string{t.product},
		Channels:   []string{"ticker"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return false, err
	}

	got := false
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return got, err
		}

		var q struct {
			Type string `json:"type"`
			Quote
		}
		if err := json.Unmarshal(msg, &q); err != nil {
			continue
		}
		if q.Type != "ticker" || q.Price == "" {
			continue
		}
		got = true
		t.publish(q.Quote)
	}
}
