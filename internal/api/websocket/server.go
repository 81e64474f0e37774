package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fortuna/athena/internal/logging"
	"github.com/fortuna/athena/internal/service"
)

// Efficiency runs efficiency queries, streaming seasons as they complete.
type Efficiency interface {
	Run(ctx context.Context, q service.Query, onSeason service.SeasonFunc) (*service.Result, error)
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// RefreshNotice is broadcast after the scheduler recomputes a season.
type RefreshNotice struct {
	Season     string    `json:"season"`
	SeasonType string    `json:"season_type"`
	Mode       string    `json:"mode"`
	Rows       int       `json:"rows"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Server represents the WebSocket server
type Server struct {
	port       string
	server     *http.Server
	hub        *Hub
	efficiency Efficiency
	logger     *slog.Logger
}

// NewServer creates a new WebSocket server
func NewServer(efficiency Efficiency, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "websocket")

	return &Server{
		hub:        NewHub(logger),
		efficiency: efficiency,
		logger:     logger,
	}
}

// Hub exposes the broadcast hub behind /ws/refresh.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the WebSocket routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/efficiency", s.handleEfficiency)
	mux.HandleFunc("/ws/refresh", s.hub.ServeWs)
	mux.HandleFunc("/ws/health", s.handleHealth)
	return mux
}

// Start runs the hub and serves until Shutdown.
func (s *Server) Start(port string) error {
	s.port = port

	go s.hub.Run()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("websocket server listening", "port", port)
	return s.server.ListenAndServe()
}

// handleEfficiency streams one season event per completed season, then a
// table event with the assembled result or a single error event.
func (s *Server) handleEfficiency(w http.ResponseWriter, r *http.Request) {
	q, err := service.ParseQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.FieldError, err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// a read error means the peer went away
	go func() {
		defer cancel()
		conn.SetReadLimit(maxMessageSize)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeMu sync.Mutex
	write := func(event Event) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return conn.WriteJSON(event)
	}

	result, err := s.efficiency.Run(ctx, q, func(season service.SeasonResult) {
		if err := write(Event{Type: EventSeason, Data: season}); err != nil {
			cancel()
		}
	})
	switch {
	case err == nil:
		err = write(Event{Type: EventTable, Data: result})
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return
	default:
		logging.Error(s.logger, "efficiency stream failed", err)
		err = write(Event{Type: EventError, Data: ErrorPayload{Message: err.Error()}})
	}
	if err != nil {
		return
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"), time.Now().Add(writeWait))
}

// handleHealth returns WebSocket server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "healthy",
		"clients": s.hub.ClientCount(),
	})
}

// BroadcastRefresh notifies /ws/refresh subscribers.
func (s *Server) BroadcastRefresh(notice RefreshNotice) bool {
	return s.hub.BroadcastEvent(Event{Type: EventRefresh, Data: notice})
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
