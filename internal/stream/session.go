package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"racebot/internal/domain"
)

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
)

// Session is one streaming connection attempt. Run blocks until the
// session fails or ctx is cancelled; the supervisor owns retries.
type Session interface {
	Run(ctx context.Context, marketIDs []string, consumer Consumer) error
}

// WSSession streams market changes over a websocket. One subscription
// per connection, covering the market ids passed to Run.
type WSSession struct {
	url     string
	appKey  string
	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewWSSession creates a session dialing the given stream endpoint.
func NewWSSession(url, appKey string) *WSSession {
	return &WSSession{url: url, appKey: appKey}
}

// subscription is the wire-level market subscription request.
type subscription struct {
	Op           string `json:"op"`
	ID           string `json:"id"`
	AppKey       string `json:"appKey,omitempty"`
	MarketFilter struct {
		MarketIDs []string `json:"marketIds"`
	} `json:"marketFilter"`
}

// marketChangeMessage is the wire envelope for market change messages.
type marketChangeMessage struct {
	Op          string `json:"op"`
	PublishTime int64  `json:"pt"`
	Changes     []struct {
		ID      string `json:"id"`
		Runners []struct {
			ID     int64        `json:"id"`
			ATB    [][2]float64 `json:"atb"`
			ATL    [][2]float64 `json:"atl"`
			Traded [][2]float64 `json:"trd"`
		} `json:"rc"`
	} `json:"mc"`
}

// Run dials, subscribes and consumes until error or cancellation.
func (s *WSSession) Run(ctx context.Context, marketIDs []string, consumer Consumer) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, http.Header{})
	if err != nil {
		return domain.NewNetworkError("dial", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer s.close()

	// Close the socket when ctx ends so the blocked read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.close()
		case <-done:
		}
	}()

	if err := s.subscribe(marketIDs); err != nil {
		return domain.NewNetworkError("subscribe", err)
	}
	slog.Info("stream session subscribed",
		slog.Int("markets", len(marketIDs)),
	)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return domain.NewNetworkError("read", err)
		}
		s.handleMessage(message, consumer)
	}
}

func (s *WSSession) subscribe(marketIDs []string) error {
	sub := subscription{Op: "marketSubscription", ID: uuid.NewString(), AppKey: s.appKey}
	sub.MarketFilter.MarketIDs = marketIDs
	payload, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("connection is nil")
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *WSSession) handleMessage(message []byte, consumer Consumer) {
	var msg marketChangeMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		slog.Debug("stream message parse error", slog.Any("error", err))
		return
	}
	if msg.Op != "mcm" {
		return
	}
	for _, change := range msg.Changes {
		mc := &MarketChange{MarketID: change.ID, PublishTime: msg.PublishTime}
		for _, rc := range change.Runners {
			mc.Runners = append(mc.Runners, RunnerChange{
				SelectionID: strconv.FormatInt(rc.ID, 10),
				Back:        toPoints(rc.ATB),
				Lay:         toPoints(rc.ATL),
				Traded:      toPoints(rc.Traded),
			})
		}
		consumer.ApplyMarketChange(mc)
	}
}

func (s *WSSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func toPoints(pairs [][2]float64) []PricePoint {
	if len(pairs) == 0 {
		return nil
	}
	out := make([]PricePoint, len(pairs))
	for i, p := range pairs {
		out[i] = PricePoint{Price: p[0], Volume: p[1]}
	}
	return out
}
