// Package fakederiv serves an in-process imitation of the Deriv websocket API for tests.
package fakederiv

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Behavior scripts the responses of the fake.
type Behavior struct {
	// AuthError rejects authorize with this message.
	AuthError string
	// History maps granularity seconds to prices; Prices is the fallback.
	History map[int][]float64
	Prices  []float64
	// OmitHistory answers ticks_history without a history object.
	OmitHistory bool
	// Ticks are pushed after a subscription, TickInterval apart.
	Ticks        []float64
	TickInterval time.Duration
	// TickError rejects the subscription with this message.
	TickError string
	// BuyError rejects buy with this message.
	BuyError   string
	ContractID int64
	// Silent lists request kinds that never get an answer.
	Silent map[string]bool
	// DropOn closes the connection when this request kind arrives.
	DropOn string
}

// Request is one frame received by the fake.
type Request struct {
	Kind    string
	Payload map[string]any
}

// Server is a running fake.
type Server struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader
	behavior Behavior

	mu          sync.Mutex
	requests    []Request
	connections int
}

// New starts a fake serving behavior.
func New(b Behavior) *Server {
	if b.TickInterval <= 0 {
		b.TickInterval = 5 * time.Millisecond
	}
	if b.ContractID == 0 {
		b.ContractID = 250_000_001
	}
	s := &Server{
		behavior: b,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL is the websocket base endpoint, without app_id.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/websockets/v3"
}

// Close stops the listener and drops open connections.
func (s *Server) Close() {
	s.srv.CloseClientConnections()
	s.srv.Close()
}

// Requests returns every received frame in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Kinds returns the kinds of every received frame in arrival order.
func (s *Server) Kinds() []string {
	reqs := s.Requests()
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Kind
	}
	return out
}

// Count returns how many frames of kind arrived.
func (s *Server) Count(kind string) int {
	n := 0
	for _, k := range s.Kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

// Connections returns how many websocket sessions were accepted.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

func (s *Server) record(kind string, payload map[string]any) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{Kind: kind, Payload: payload})
	s.mu.Unlock()
}

var requestKinds = []string{"authorize", "ticks_history", "ticks", "forget_all", "buy"}

func kindOf(payload map[string]any) string {
	for _, k := range requestKinds {
		if _, ok := payload[k]; ok {
			return k
		}
	}
	return "unknown"
}

type session struct {
	conn     *websocket.Conn
	wmu      sync.Mutex
	stop     chan struct{}
	stopOnce sync.Once
}

func (ss *session) write(v any) {
	ss.wmu.Lock()
	defer ss.wmu.Unlock()
	_ = ss.conn.WriteJSON(v)
}

func (ss *session) halt() {
	ss.stopOnce.Do(func() { close(ss.stop) })
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.connections++
	s.mu.Unlock()

	ss := &session{conn: conn, stop: make(chan struct{})}
	defer func() {
		ss.halt()
		conn.Close()
	}()

	b := s.behavior
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			continue
		}
		kind := kindOf(payload)
		s.record(kind, payload)
		reqID := payload["req_id"]

		if b.DropOn == kind {
			return
		}
		if b.Silent[kind] {
			continue
		}

		switch kind {
		case "authorize":
			if b.AuthError != "" {
				ss.write(errorFrame("authorize", reqID, "InvalidToken", b.AuthError))
				continue
			}
			ss.write(map[string]any{
				"msg_type":  "authorize",
				"req_id":    reqID,
				"authorize": map[string]any{"loginid": "VRTC1234567", "currency": "USD", "balance": 10000},
			})
		case "ticks_history":
			if b.OmitHistory {
				ss.write(map[string]any{"msg_type": "history", "req_id": reqID})
				continue
			}
			prices := b.Prices
			if g, ok := payload["granularity"].(float64); ok {
				if p, ok := b.History[int(g)]; ok {
					prices = p
				}
			}
			times := make([]int64, len(prices))
			for i := range times {
				times[i] = 1_700_000_000 + int64(i)
			}
			ss.write(map[string]any{
				"msg_type": "history",
				"req_id":   reqID,
				"history":  map[string]any{"prices": prices, "times": times},
			})
		case "ticks":
			if b.TickError != "" {
				ss.write(errorFrame("tick", reqID, "MarketIsClosed", b.TickError))
				continue
			}
			symbol, _ := payload["ticks"].(string)
			go s.pushTicks(ss, symbol, reqID)
		case "forget_all":
			ss.wmu.Lock()
			ss.halt()
			_ = conn.WriteJSON(map[string]any{"msg_type": "forget_all", "req_id": reqID, "forget_all": []string{"sub-1"}})
			ss.wmu.Unlock()
		case "buy":
			if b.BuyError != "" {
				ss.write(errorFrame("buy", reqID, "InsufficientBalance", b.BuyError))
				continue
			}
			price := 0.0
			if p, ok := payload["price"].(float64); ok {
				price = p
			}
			ss.write(map[string]any{
				"msg_type": "buy",
				"req_id":   reqID,
				"buy": map[string]any{
					"contract_id":    b.ContractID,
					"buy_price":      price,
					"transaction_id": b.ContractID + 1,
					"longcode":       "Win payout if the market moves in the chosen direction.",
				},
			})
		}
	}
}

func (s *Server) pushTicks(ss *session, symbol string, reqID any) {
	for i, quote := range s.behavior.Ticks {
		if i > 0 {
			select {
			case <-ss.stop:
				return
			case <-time.After(s.behavior.TickInterval):
			}
		}
		ss.wmu.Lock()
		select {
		case <-ss.stop:
			ss.wmu.Unlock()
			return
		default:
		}
		_ = ss.conn.WriteJSON(map[string]any{
			"msg_type":     "tick",
			"req_id":       reqID,
			"tick":         map[string]any{"symbol": symbol, "quote": quote, "epoch": 1_700_000_100 + int64(i)},
			"subscription": map[string]any{"id": "sub-1"},
		})
		ss.wmu.Unlock()
	}
}

func errorFrame(msgType string, reqID any, code, message string) map[string]any {
	return map[string]any{
		"msg_type": msgType,
		"req_id":   reqID,
		"error":    map[string]any{"code": code, "message": message},
	}
}
