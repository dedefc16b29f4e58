// Package sse streams change notifications to connected dashboards so they
// can refresh the affected faculty view.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Event names on the stream.
const (
	NotesUpdated    = "notes.updated"
	ReviewsUpdated  = "reviews.updated"
	DatasetReloaded = "dataset.reloaded"
)

// Change kinds accepted by PublishChange.
const (
	KindNotes   = "notes"
	KindReviews = "reviews"
)

var changeEvents = map[string]string{
	KindNotes:   NotesUpdated,
	KindReviews: ReviewsUpdated,
}

const clientBuffer = 64

// frame renders one SSE message, or nil if data cannot be encoded.
func frame(event string, data any) []byte {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Warn("sse: drop unencodable event", slog.String("event", event), slog.String("error", err.Error()))
		return nil
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, payload))
}

// Broker fans change events out to subscribers. One goroutine owns the
// subscriber set and the reload throttle.
type Broker struct {
	reloadEvery time.Duration

	join    chan chan []byte
	leave   chan chan []byte
	frames  chan []byte
	reloads chan struct{}
	counts  chan chan int

	quit chan struct{}
	done chan struct{}
	stop sync.Once
}

// NewBroker starts a broker that emits at most one dataset.reloaded event
// per reloadThrottle.
func NewBroker(reloadThrottle time.Duration) *Broker {
	if reloadThrottle <= 0 {
		reloadThrottle = 2 * time.Second
	}
	b := &Broker{
		reloadEvery: reloadThrottle,
		join:        make(chan chan []byte),
		leave:       make(chan chan []byte),
		frames:      make(chan []byte, 256),
		reloads:     make(chan struct{}, 1),
		counts:      make(chan chan int),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.done)

	subs := make(map[chan []byte]struct{})
	var lastReload time.Time
	reloaded := frame(DatasetReloaded, struct{}{})

	fanOut := func(msg []byte) {
		for ch := range subs {
			select {
			case ch <- msg:
			default: // subscriber is behind; it misses this one
			}
		}
	}

	for {
		select {
		case <-b.quit:
			for ch := range subs {
				close(ch)
			}
			return
		case ch := <-b.join:
			subs[ch] = struct{}{}
		case ch := <-b.leave:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
		case msg := <-b.frames:
			fanOut(msg)
		case <-b.reloads:
			if now := time.Now(); now.Sub(lastReload) >= b.reloadEvery {
				lastReload = now
				fanOut(reloaded)
			}
		case reply := <-b.counts:
			reply <- len(subs)
		}
	}
}

// Close stops the broker and closes every subscriber channel. Later calls
// on the broker are no-ops.
func (b *Broker) Close() {
	b.stop.Do(func() { close(b.quit) })
	<-b.done
}

// Subscribe registers a subscriber. The channel is closed on Unsubscribe or
// Close; it is returned already closed once the broker has stopped.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	select {
	case b.join <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes ch and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	select {
	case b.leave <- ch:
	case <-b.done:
	}
}

// ClientCount returns the number of subscribers.
func (b *Broker) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case b.counts <- reply:
		return <-reply
	case <-b.done:
		return 0
	}
}

// PublishChange announces that the notes or reviews of faculty changed.
// Unknown kinds are ignored.
func (b *Broker) PublishChange(kind, faculty string) {
	event, ok := changeEvents[kind]
	if !ok {
		return
	}
	msg := frame(event, map[string]string{"faculty": faculty})
	if msg == nil {
		return
	}
	select {
	case b.frames <- msg:
	case <-b.done:
	}
}

// PublishReload announces a re-applied dataset. Bursts collapse into one
// pending request and then into the throttle.
func (b *Broker) PublishReload() {
	select {
	case b.reloads <- struct{}{}:
	default:
	}
}

// ServeHTTP streams events until the client goes away or the broker stops.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
