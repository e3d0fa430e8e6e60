package provision

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
)

// SerializedEvent holds one status event in both wire formats so it is
// encoded once no matter how many clients receive it.
type SerializedEvent struct {
	JSONData     []byte
	ProtobufData []byte // base64 for SSE transport
}

// StatusBroadcaster fans periodic status events out to SSE clients.
type StatusBroadcaster struct {
	mu       sync.Mutex
	clients  map[int]chan *SerializedEvent
	nextID   int
	build    func() (*structpb.Struct, error)
	interval time.Duration
	log      *logger.Module
}

// NewStatusBroadcaster creates a broadcaster that samples build every interval.
func NewStatusBroadcaster(build func() (*structpb.Struct, error), interval time.Duration) *StatusBroadcaster {
	return &StatusBroadcaster{
		clients:  make(map[int]chan *SerializedEvent),
		build:    build,
		interval: interval,
		log:      logger.For("StatusBroadcaster"),
	}
}

// Subscribe adds a client and returns its event channel.
func (sb *StatusBroadcaster) Subscribe() (int, <-chan *SerializedEvent) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	id := sb.nextID
	sb.nextID++
	ch := make(chan *SerializedEvent, 2)
	sb.clients[id] = ch

	sb.log.Debug("Client #%d subscribed (total clients: %d)", id, len(sb.clients))
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (sb *StatusBroadcaster) Unsubscribe(id int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if ch, ok := sb.clients[id]; ok {
		close(ch)
		delete(sb.clients, id)
		sb.log.Debug("Client #%d unsubscribed (remaining clients: %d)", id, len(sb.clients))
	}
}

// Clients returns the number of subscribers.
func (sb *StatusBroadcaster) Clients() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return len(sb.clients)
}

// Run broadcasts until ctx is cancelled. Nothing is built while no client
// is subscribed.
func (sb *StatusBroadcaster) Run(ctx context.Context) {
	sb.log.Info("Starting status event broadcaster (interval=%v)", sb.interval)
	ticker := time.NewTicker(sb.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sb.Clients() == 0 {
				continue
			}
			if event := sb.Event(); event != nil {
				sb.broadcast(event)
			}
		}
	}
}

// Event builds and encodes the current status.
func (sb *StatusBroadcaster) Event() *SerializedEvent {
	msg, err := sb.build()
	if err != nil {
		sb.log.Error("build status: %v", err)
		return nil
	}
	jsonData, err := protojson.Marshal(msg)
	if err != nil {
		sb.log.Error("JSON marshal error: %v", err)
		return nil
	}
	pbData, err := proto.Marshal(msg)
	if err != nil {
		sb.log.Error("Protobuf marshal error: %v", err)
		return nil
	}
	return &SerializedEvent{
		JSONData:     jsonData,
		ProtobufData: []byte(base64.StdEncoding.EncodeToString(pbData)),
	}
}

func (sb *StatusBroadcaster) broadcast(event *SerializedEvent) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	for _, ch := range sb.clients {
		select {
		case ch <- event:
		default:
			// slow client skips this event
		}
	}
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	accept := r.Header.Get("Accept")
	useProtobuf := strings.Contains(accept, "application/protobuf") ||
		strings.Contains(accept, "application/x-protobuf")

	id, eventCh := s.events.Subscribe()
	defer s.events.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// first event immediately so the page does not wait a full interval
	if event := s.events.Event(); event != nil {
		if err := writeSSEEvent(w, event, useProtobuf); err != nil {
			return
		}
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event, useProtobuf); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event *SerializedEvent, useProtobuf bool) error {
	data := event.JSONData
	if useProtobuf {
		data = event.ProtobufData
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
