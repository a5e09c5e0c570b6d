package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/feudal-economy/internal/config"
	ws "github.com/wfunc/feudal-economy/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler 通知通道处理器
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, cfg config.WebSocketConfig, logger *zap.Logger) *WebSocketHandler {
	read, write := cfg.ReadBufferSize, cfg.WriteBufferSize
	if read <= 0 {
		read = 1024
	}
	if write <= 0 {
		write = 1024
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    read,
			WriteBufferSize:   write,
			EnableCompression: cfg.EnableCompression,
			CheckOrigin:       func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Connect 已认证身份建立通知连接
func (h *WebSocketHandler) Connect(c *gin.Context) {
	sub := caller(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("identity", sub.Key()),
			zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, sub.Key())
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("WebSocket连接建立",
		zap.String("client_id", client.ID),
		zap.String("identity", sub.Key()))
}
