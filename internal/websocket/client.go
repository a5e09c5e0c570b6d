package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/logger"
	"go.uber.org/zap"
)

// 错误定义
var (
	ErrClientNotFound       = errors.New("客户端未找到")
	ErrIdentityNotConnected = errors.New("身份未连接")
	ErrSendBufferFull       = errors.New("发送缓冲区已满")
)

// 默认连接参数
const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 64 * 1024
)

// Client WebSocket客户端
type Client struct {
	ID       string
	Identity string // 玩家UUID或npc:<id>
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
}

// NewClient 创建新客户端
func NewClient(hub *Hub, conn *websocket.Conn, identity string) *Client {
	return &Client{
		ID:       uuid.New().String(),
		Identity: identity,
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
	}
}

func (c *Client) writeWait() time.Duration {
	if c.Hub.cfg.WriteTimeout > 0 {
		return c.Hub.cfg.WriteTimeout
	}
	return defaultWriteWait
}

func (c *Client) pongWait() time.Duration {
	if c.Hub.cfg.PongTimeout > 0 {
		return c.Hub.cfg.PongTimeout
	}
	return defaultPongWait
}

// pingPeriod 必须小于pongWait
func (c *Client) pingPeriod() time.Duration {
	if p := c.Hub.cfg.PingInterval; p > 0 && p < c.pongWait() {
		return p
	}
	return c.pongWait() * 9 / 10
}

// ReadPump 读取消息
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	limit := c.Hub.cfg.MaxMessageSize
	if limit <= 0 {
		limit = defaultMaxMessageSize
	}
	c.Conn.SetReadLimit(limit)
	c.Conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.pongWait()))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			break
		}
		c.handleMessage(message)
	}
}

// WritePump 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod())
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait()))
			if !ok {
				// Hub关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait()))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 通知通道只接受ping
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Hub.logger.Debug("解析WebSocket消息失败",
			zap.String("client_id", c.ID),
			zap.Error(err))
		c.sendError(apperrors.Wrap(err, apperrors.ErrMessageFormat))
		return
	}

	logger.LogWebSocketMessage("receive", c.Identity, msg.Type)

	switch msg.Type {
	case MessageTypePing:
		c.Hub.SendToClient(c.ID, &Message{Type: MessageTypePong, Timestamp: time.Now().Unix()})
	case MessageTypePong:
	default:
		c.sendError(apperrors.New(apperrors.ErrMessageFormat, "不支持的消息类型: "+msg.Type))
	}
}

// ErrorNotice 错误消息内容
type ErrorNotice struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Details string              `json:"details,omitempty"`
}

// sendError 发送错误消息
func (c *Client) sendError(err *apperrors.AppError) {
	data, _ := json.Marshal(ErrorNotice{Code: err.Code, Message: err.Message, Details: err.Details})
	c.Hub.SendToClient(c.ID, &Message{
		Type:      MessageTypeError,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}
