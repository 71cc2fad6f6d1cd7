package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aisleview/shelfwatch/internal/monitoring"
	"github.com/aisleview/shelfwatch/internal/pipeline"
	"github.com/aisleview/shelfwatch/internal/shelf"
)

// subscriberBuffer sizes each SSE subscriber channel. A subscriber that
// falls this far behind starts dropping events rather than blocking the
// pipeline loop.
const subscriberBuffer = 64

// fanout is the pipeline consumer that pushes each cycle's events to all
// live SSE subscribers. Sends are non-blocking.
func (s *Server) fanout(result *pipeline.Result) {
	if len(result.Events) == 0 {
		return
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subscribers {
		for _, ev := range result.Events {
			select {
			case ch <- ev:
			default:
				monitoring.Logf("[api] subscriber %d lagging, dropping event %s", id, ev.ID)
			}
		}
	}
}

func (s *Server) subscribe() (int, chan shelf.Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan shelf.Event, subscriberBuffer)
	s.subscribers[id] = ch
	return id, ch
}

func (s *Server) unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	delete(s.subscribers, id)
}

// handleEventStream serves shelf events over Server-Sent Events. Each event
// is one `data:` line of JSON. The stream stays open until the client
// disconnects.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Initial comment line so proxies and clients see the stream open.
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	id, ch := s.subscribe()
	defer s.unsubscribe(id)
	monitoring.Logf("[api] event stream subscriber %d connected", id)

	for {
		select {
		case <-r.Context().Done():
			monitoring.Logf("[api] event stream subscriber %d disconnected", id)
			return
		case ev := <-ch:
			payload, err := json.Marshal(ev)
			if err != nil {
				monitoring.Logf("[api] marshal event %s: %v", ev.ID, err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
