package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/feudal-economy/internal/config"
	"github.com/wfunc/feudal-economy/internal/logger"
	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心，按身份键投递消息
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 身份键到客户端的映射
	identityClients map[string][]*Client
	identityMu      sync.RWMutex

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	cfg    config.WebSocketConfig
	logger *zap.Logger
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`
	Identity  string          `json:"identity,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// 消息类型
const (
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
	MessageTypeNotice    = "notice"
)

// Notice 通知内容
type Notice struct {
	Text string `json:"text"`
}

// NewHub 创建Hub
func NewHub(cfg config.WebSocketConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:         make(map[string]*Client),
		identityClients: make(map[string][]*Client),
		broadcast:       make(chan *Message, 256),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		done:            make(chan struct{}),
		cfg:             cfg,
		logger:          logger,
	}
}

// Run 运行Hub直到ctx取消
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.identityMu.Lock()
	h.identityClients[client.Identity] = append(h.identityClients[client.Identity], client)
	h.identityMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("identity", client.Identity))

	h.SendToClient(client.ID, &Message{
		Type:      MessageTypeConnected,
		Identity:  client.Identity,
		Timestamp: time.Now().Unix(),
	})
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	h.identityMu.Lock()
	clients := h.identityClients[client.Identity]
	for i, c := range clients {
		if c.ID == client.ID {
			h.identityClients[client.Identity] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.identityClients[client.Identity]) == 0 {
		delete(h.identityClients, client.Identity)
	}
	h.identityMu.Unlock()

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("identity", client.Identity))
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	h.identityMu.Lock()
	h.identityClients = make(map[string][]*Client)
	h.identityMu.Unlock()
}

// broadcastMessage 广播消息
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return
	}

	h.clientsMu.RLock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID))
		}
	}
	h.clientsMu.RUnlock()
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	client, ok := h.clients[clientID]
	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendToIdentity 发送消息给某身份的全部连接
func (h *Hub) SendToIdentity(identity string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.identityMu.RLock()
	clients := append([]*Client(nil), h.identityClients[identity]...)
	h.identityMu.RUnlock()

	if len(clients) == 0 {
		return ErrIdentityNotConnected
	}
	logger.LogWebSocketMessage("send", identity, message.Type)

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for _, client := range clients {
		if _, ok := h.clients[client.ID]; !ok {
			continue
		}
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("身份客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("identity", identity))
		}
	}
	return nil
}

// Notify 实现host.Notifier，不在线时静默丢弃
func (h *Hub) Notify(identity, text string) {
	data, err := json.Marshal(Notice{Text: text})
	if err != nil {
		return
	}
	err = h.SendToIdentity(identity, &Message{
		Type:      MessageTypeNotice,
		Identity:  identity,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil && err != ErrIdentityNotConnected {
		h.logger.Debug("通知发送失败", zap.String("identity", identity), zap.Error(err))
	}
}

// OnlineIdentities 在线身份列表
func (h *Hub) OnlineIdentities() []string {
	h.identityMu.RLock()
	defer h.identityMu.RUnlock()

	out := make([]string, 0, len(h.identityClients))
	for id := range h.identityClients {
		out = append(out, id)
	}
	return out
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Broadcast 广播消息
func (h *Hub) Broadcast(message *Message) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// Register 注册客户端，Hub已停止时返回false
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
