package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 100
)

var errClientStopped = errors.New("client is stopped")

type WsClient struct {
	id           string
	userID       uuid.UUID
	conn         *websocket.Conn
	sendChan     chan *ServerMessage
	ctx          context.Context
	cancel       context.CancelFunc
	handler      *WsHandler
	workerPool   *pond.WorkerPool
	writeTimeout time.Duration
	stopped      bool
	mu           sync.Mutex
	logger       zerolog.Logger
}

type WsClientParams struct {
	UserID       uuid.UUID
	Conn         *websocket.Conn
	Handler      *WsHandler
	MaxWorkers   int
	MaxCapacity  int
	WriteTimeout time.Duration
	Logger       zerolog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(params WsClientParams) *WsClient {
	ctx, cancel := context.WithCancel(context.Background())

	pool := pond.New(
		params.MaxWorkers,
		params.MaxCapacity,
		pond.Context(ctx),
		pond.Strategy(pond.Balanced()),
	)
	id := uuid.New().String()
	return &WsClient{
		id:           id,
		userID:       params.UserID,
		conn:         params.Conn,
		sendChan:     make(chan *ServerMessage, sendBuffer),
		ctx:          ctx,
		cancel:       cancel,
		handler:      params.Handler,
		workerPool:   pool,
		writeTimeout: params.WriteTimeout,
		logger:       params.Logger.With().Str("client_id", id).Str("user_id", params.UserID.String()).Logger(),
	}
}

func (client *WsClient) Start() {
	go client.messageSender()
	go client.messageReceiver()
}

func (client *WsClient) Stop() {
	client.mu.Lock()
	defer client.mu.Unlock()

	if client.stopped {
		return
	}
	client.stopped = true

	client.cancel()
	client.conn.Close()
	close(client.sendChan)

	if client.workerPool != nil {
		client.workerPool.Stop()
	}
}

// Send queues a message for the client
func (client *WsClient) Send(msg *ServerMessage) error {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.stopped {
		return errClientStopped
	}

	select {
	case client.sendChan <- msg:
		return nil
	default:
	}

	select {
	case client.sendChan <- msg:
		return nil
	case <-time.After(100 * time.Millisecond):
		return fmt.Errorf("client send channel is full")
	}
}

func (client *WsClient) messageSender() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}
			if err := client.sendMessage(msg); err != nil {
				client.logger.Error().Err(err).Msg("Failed to send message to client")
				client.cancel()
				return
			}
		case <-ticker.C:
			client.setWriteDeadline()
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.logger.Debug().Err(err).Msg("Ping to client failed")
				client.cancel()
				return
			}
		case <-client.ctx.Done():
			return
		}
	}
}

func (client *WsClient) messageReceiver() {
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				client.logger.Error().Err(err).Msg("WebSocket read error for client")
			} else {
				client.logger.Info().Str("error", err.Error()).Msg("WebSocket connection closed for client")
			}
			// Cancel context to notify handler about disconnection
			client.cancel()
			return
		}
		client.logger.Debug().Int("size", len(message)).Msg("Message received from client")

		client.workerPool.Submit(func() {
			if err := client.handleMessage(message); err != nil {
				client.logger.Warn().Err(err).Msg("Failed to handle client message")
				if sendErr := client.Send(NewErrorMessage(err, nil)); sendErr != nil && !errors.Is(sendErr, errClientStopped) {
					client.logger.Error().Err(sendErr).Msg("Failed to report error to client")
				}
			}
		})
	}
}

func (client *WsClient) setWriteDeadline() {
	if client.writeTimeout > 0 {
		client.conn.SetWriteDeadline(time.Now().Add(client.writeTimeout))
	}
}

func (client *WsClient) sendMessage(msg *ServerMessage) error {
	client.setWriteDeadline()
	return client.conn.WriteJSON(msg)
}

func (client *WsClient) handleMessage(data []byte) error {
	msg, err := ParseClientMessage(data)
	if err != nil {
		return err
	}

	if err := msg.Validate(); err != nil {
		return err
	}

	if msg.Type == MessageTypePing {
		return client.Send(NewServerMessage(MessageTypePong))
	}

	if client.handler != nil {
		return client.handler.HandleClientMessage(client, msg)
	}
	return fmt.Errorf("handler not available")
}
