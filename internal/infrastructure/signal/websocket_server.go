package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Options carries transport tuning knobs from configuration.
type Options struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	OutboundQueueSize int

	MessagesPerSecond float64 // 0 disables per-connection rate limiting
	MessageBurst      int
	MaxMessageSize    int64 // 0 disables the read limit
}

// DefaultOptions returns transport defaults matching the config package.
func DefaultOptions() Options {
	return Options{
		PingInterval:      30 * time.Second,
		PongTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		OutboundQueueSize: 64,
	}
}

// WebSocketServer accepts signaling connections and feeds inbound frames to
// the router. Each connection gets a read loop (this handler's goroutine) and
// a write pump goroutine; the write pump is the only writer on the socket.
type WebSocketServer struct {
	registry  ports.ConnectionRegistry
	router    ports.MessageRouter
	lifecycle ports.LifecycleManager

	opts   Options
	logger *zap.SugaredLogger
}

func NewWebSocketServer(registry ports.ConnectionRegistry, router ports.MessageRouter, lifecycle ports.LifecycleManager, opts Options, logger *zap.SugaredLogger) *WebSocketServer {
	if opts.OutboundQueueSize <= 0 {
		opts.OutboundQueueSize = DefaultOptions().OutboundQueueSize
	}
	return &WebSocketServer{
		registry:  registry,
		router:    router,
		lifecycle: lifecycle,
		opts:      opts,
		logger:    logger,
	}
}

// wsSender is the ports.Sender for one websocket connection. The queue is
// bounded; when it fills, the oldest queued frame is evicted so the newest
// signaling state wins.
type wsSender struct {
	queue chan domain.SignalMessage
	done  chan struct{}
	once  sync.Once
}

func newWSSender(queueSize int) *wsSender {
	return &wsSender{
		queue: make(chan domain.SignalMessage, queueSize),
		done:  make(chan struct{}),
	}
}

func (s *wsSender) Enqueue(msg domain.SignalMessage) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.queue <- msg:
		return true
	default:
	}

	// Queue full: evict the oldest frame, then retry once.
	select {
	case <-s.queue:
	default:
	}
	select {
	case s.queue <- msg:
	default:
	}
	return false
}

func (s *wsSender) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	sender := newWSSender(s.opts.OutboundQueueSize)
	connID := s.registry.Register(sender, r.RemoteAddr)

	s.logger.Infow("connection opened",
		"connection_id", connID,
		"remote_addr", r.RemoteAddr,
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writePump(conn, connID, sender)
	}()

	s.readLoop(conn, connID, sender)

	// Read side is done: tear down the session, then stop the write pump.
	s.lifecycle.HandleDisconnect(context.Background(), connID)
	sender.Close()
	wg.Wait()
	conn.Close()

	s.logger.Infow("connection closed", "connection_id", connID)
}

func (s *WebSocketServer) readLoop(conn *websocket.Conn, connID domain.ConnectionID, sender *wsSender) {
	if s.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(s.opts.MaxMessageSize)
	}
	conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	var limiter *rate.Limiter
	if s.opts.MessagesPerSecond > 0 {
		burst := s.opts.MessageBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), burst)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("read failed", "connection_id", connID, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))

		if limiter != nil && !limiter.Allow() {
			s.logger.Warnw("inbound message rate exceeded, dropping frame",
				"connection_id", connID,
			)
			continue
		}

		var msg domain.SignalMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debugw("malformed frame",
				"connection_id", connID,
				"error", err,
			)
			sender.Enqueue(domain.NewErrorMessage(domain.ErrorReasonMalformed))
			continue
		}

		s.router.Route(context.Background(), connID, msg)
	}
}

// writePump drains the sender queue onto the socket and keeps the connection
// alive with pings. Exits when the sender is closed or a write fails.
func (s *WebSocketServer) writePump(conn *websocket.Conn, connID domain.ConnectionID, sender *wsSender) {
	pingTicker := time.NewTicker(s.opts.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case msg := <-sender.queue:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Infow("write failed", "connection_id", connID, "error", err)
				conn.Close()
				return
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Infow("ping failed", "connection_id", connID, "error", err)
				conn.Close()
				return
			}

		case <-sender.done:
			// Flush anything already queued before closing.
			for {
				select {
				case msg := <-sender.queue:
					conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
					if err := conn.WriteJSON(msg); err != nil {
						return
					}
				default:
					conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (s *WebSocketServer) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().Unix(),
		"connections": s.registry.Count(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
