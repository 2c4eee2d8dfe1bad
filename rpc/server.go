// Server exposes a Solid node's status and live event stream over HTTP:
// GET /status returns a JSON snapshot, GET /events upgrades to a
// WebSocket and streams every engine.OutEvent as JSON until the
// connection closes.
//
// Grounded on the teacher's rpc package (routes.go's route table,
// env.go's package-level *Environment holding the components a handler
// needs), generalized from Tendermint's JSON-RPC function-registration
// style to a plain net/http mux plus github.com/gorilla/websocket for the
// streaming half, since Solid has no JSON-RPC method-call surface to
// register — its outward API is an event feed, not request/response
// procedures.
package rpc

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/polybase/solid/engine"
)

// StatusProvider reports the values /status serializes. *engine.Engine
// does not implement this directly (Round is exported, height/skip
// tracking beyond that is host-side); hosts adapt their own state into
// it.
type StatusProvider interface {
	Round() engine.Round
	PeerCount() int
}

// Server serves /status and /events for one Solid node.
type Server struct {
	status  StatusProvider
	metrics *Metrics
	logger  log.Logger

	upgrader websocket.Upgrader

	mtx  sync.Mutex
	subs map[chan engine.OutEvent]struct{}
}

// NewServer builds a Server. Call Broadcast for every event the engine
// emits so connected /events clients see it.
func NewServer(status StatusProvider, metrics *Metrics, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Server{
		status:   status,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		subs:     make(map[chan engine.OutEvent]struct{}),
	}
}

// Handler returns an http.Handler serving /status and /events.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/events", s.handleEvents)
	return mux
}

type statusResponse struct {
	Height    uint64           `json:"height"`
	Skips     uint64           `json:"skips"`
	PeerCount int              `json:"peer_count"`
	Metrics   map[string]int64 `json:"metrics,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	round := s.status.Round()
	resp := statusResponse{
		Height:    round.Height,
		Skips:     round.Skips,
		PeerCount: s.status.PeerCount(),
	}
	if s.metrics != nil {
		resp.Metrics = s.metrics.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("encode status failed", "err", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ch := make(chan engine.OutEvent, 32)
	s.mtx.Lock()
	s.subs[ch] = struct{}{}
	s.mtx.Unlock()
	defer func() {
		s.mtx.Lock()
		delete(s.subs, ch)
		s.mtx.Unlock()
	}()

	for ev := range ch {
		if err := conn.WriteJSON(eventPayload(ev)); err != nil {
			s.logger.Debug("websocket write failed, dropping subscriber", "err", err)
			return
		}
	}
}

// SubscriberCount reports how many /events clients are currently
// connected. Mostly useful for tests and /status diagnostics.
func (s *Server) SubscriberCount() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.subs)
}

// Broadcast fans ev out to every connected /events subscriber. Slow
// subscribers whose buffer is full are dropped rather than allowed to
// backpressure the engine's own output loop.
func (s *Server) Broadcast(ev engine.OutEvent) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			delete(s.subs, ch)
			close(ch)
		}
	}
}

func eventPayload(ev engine.OutEvent) map[string]interface{} {
	switch e := ev.(type) {
	case engine.OutProposal:
		return map[string]interface{}{"type": "proposal", "height": e.Manifest.Height, "skips": e.Manifest.Skips, "leader": e.Manifest.LeaderID.String()}
	case engine.OutAccept:
		return map[string]interface{}{"type": "accept", "height": e.Accept.Height, "skips": e.Accept.Skips, "to": e.To.String()}
	case engine.OutCommit:
		return map[string]interface{}{"type": "commit", "height": e.Manifest.Height}
	case engine.OutOutOfSync:
		return map[string]interface{}{"type": "out_of_sync", "target_height": e.TargetHeight}
	case engine.OutOutOfDate:
		return map[string]interface{}{"type": "out_of_date", "hash": e.Hash.String()}
	case engine.OutDuplicate:
		return map[string]interface{}{"type": "duplicate", "hash": e.Hash.String()}
	default:
		return map[string]interface{}{"type": "unknown"}
	}
}
