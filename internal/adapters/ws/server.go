package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/config"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/inbound"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// RouteRegistrar mounts additional HTTP routes next to the websocket endpoint
type RouteRegistrar interface {
	Register(r *mux.Router)
}

type Server struct {
	handler    *WsHandler
	httpServer *http.Server
	config     *config.Config
	logger     zerolog.Logger
}

type ServerParams struct {
	Config      *config.Config
	BidService  inbound.BidService
	Broadcaster outbound.Broadcaster
	Routes      []RouteRegistrar
	Logger      zerolog.Logger
}

func NewServer(params ServerParams) *Server {
	handler := NewHandler(WsHandlerParams{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  params.Config.WebSocket.ReadBufferSize,
			WriteBufferSize: params.Config.WebSocket.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		Config:      params.Config.WebSocket,
		BidService:  params.BidService,
		Broadcaster: params.Broadcaster,
		Logger:      params.Logger,
	})

	router := mux.NewRouter()
	router.HandleFunc("/ws", handler.HandleWebSocket)
	router.HandleFunc("/health", handler.handleHealth).Methods(http.MethodGet)
	for _, routes := range params.Routes {
		routes.Register(router)
	}

	httpServer := &http.Server{
		Addr:         params.Config.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Minute,
	}

	return &Server{
		handler:    handler,
		httpServer: httpServer,
		config:     params.Config,
		logger:     params.Logger.With().Str("component", "server").Logger(),
	}
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting bidding server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping bidding server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Bidding server stopped")
	return nil
}

func (handler *WsHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "bidding",
		"clients": handler.GetConnectedClients(),
	})
}
