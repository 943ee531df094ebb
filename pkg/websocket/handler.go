package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"animeshelf/config"
	"animeshelf/internal/model"
	"animeshelf/internal/realtime"
	"animeshelf/internal/service"
	"animeshelf/pkg/jwt"
	"animeshelf/pkg/logger"
	redisPkg "animeshelf/pkg/redis"
	"animeshelf/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// Inbox 未读数与已读操作
type Inbox interface {
	UnreadCount(ctx context.Context, userID uint, senderID *uint) (int64, error)
	UnreadBySender(ctx context.Context, userID uint) (map[uint]int64, error)
	MarkConversationRead(ctx context.Context, readerID, otherID uint) (int64, error)
}

// Feed 动态流
type Feed interface {
	FeedFor(ctx context.Context, viewerID uint, scope service.FeedScope) ([]*model.Activity, error)
}

// Relations 好友关系
type Relations interface {
	StatusFor(ctx context.Context, viewerID, subjectID uint) (service.RelationStatus, error)
	Friends(ctx context.Context, viewerID uint) ([]*model.Profile, error)
}

// Presence 在线状态，*redis.Client 满足此接口
type Presence interface {
	SetOnline(ctx context.Context, userID uint) error
	RefreshPresence(ctx context.Context, userID uint) error
	SetOffline(ctx context.Context, userID uint) error
}

// Deps 会话依赖
type Deps struct {
	JWT       *jwt.JWTService
	Config    config.WebSocketConfig
	Manager   *Manager
	Broker    *realtime.Broker
	Inbox     Inbox
	Feed      Feed
	Relations Relations
	Presence  Presence
}

// Handler 实时会话：订阅消息、动态与好友关系变更，收到通知后从存储重新计算并推送
type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler {
	if deps.Manager == nil {
		deps.Manager = NewManager()
	}
	if deps.Broker == nil {
		deps.Broker = realtime.NewBroker()
	}
	if deps.Config.PingInterval <= 0 {
		deps.Config.PingInterval = 30 * time.Second
	}
	if deps.Config.ReadTimeout <= 0 {
		deps.Config.ReadTimeout = 90 * time.Second
	}
	// 未启用的 Redis 客户端等同于没有在线状态存储
	if rdb, ok := deps.Presence.(*redisPkg.Client); ok && rdb == nil {
		deps.Presence = nil
	}
	return &Handler{deps: deps}
}

// Event 推送给客户端的事件
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// 推送事件类型
const (
	EventUnread       = "unread"
	EventFeed         = "feed"
	EventRelationship = "relationship"
	EventMessage      = "message"
)

// UnreadInfo 未读消息汇总
type UnreadInfo struct {
	Total    int64          `json:"total"`
	BySender map[uint]int64 `json:"by_sender"`
}

// MessageNotice 消息表变更，客户端据此刷新会话
type MessageNotice struct {
	ID      uint        `json:"id"`
	Op      realtime.Op `json:"op"`
	UserIDs []uint      `json:"user_ids"`
}

// inbound 客户端发来的消息
// heartbeat: 续期在线状态
// mark_read: 将与 user_id 的会话标记为已读
type inbound struct {
	Type   string `json:"type"`
	UserID uint   `json:"user_id"`
}

// ServeWS Gin路由处理函数
func (h *Handler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Sec-WebSocket-Protocol"), "Bearer ")
	}
	if token == "" {
		response.Unauthorized(c, "缺少token")
		return
	}
	claims, err := h.deps.JWT.ValidateToken(token)
	if err != nil {
		response.Unauthorized(c, "token无效或已过期")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		response.Unauthorized(c, "token无效")
		return
	}

	// 回显子协议，避免客户端提示 "Server sent no subprotocol"
	respHeader := http.Header{}
	if protocol := c.GetHeader("Sec-WebSocket-Protocol"); protocol != "" {
		respHeader.Set("Sec-WebSocket-Protocol", protocol)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		logger.Warn("WebSocket升级失败", zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	h.serve(NewClient(userID, conn))
}

func (h *Handler) serve(client *Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	userID := client.UserID

	if h.deps.Manager.AddClient(client) {
		h.presence(ctx, presenceOnline, userID)
	}
	logger.Info("WebSocket连接建立", zap.Uint("user_id", userID), zap.Int("connections", h.deps.Manager.Count()))

	// 先订阅再推送初始数据，避免漏掉两者之间的变更
	sess := &session{
		deps:   h.deps,
		client: client,
		log:    logger.With(zap.Uint("user_id", userID)),
		msgs:   h.deps.Broker.Subscribe(realtime.TableMessage, realtime.Involving(userID)),
		acts:   h.deps.Broker.SubscribeToInserts(realtime.TableActivity, nil),
		edges:  h.deps.Broker.Subscribe(realtime.TableFriendEdge, realtime.Involving(userID)),
	}

	writerDone := make(chan struct{})
	go h.writePump(client, writerDone)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if sess.run(ctx) {
			// 通知流被关闭（服务关闭），断开连接以结束读循环
			_ = client.Conn.Close()
		}
	}()

	h.readPump(ctx, client)

	cancel()
	sess.close()
	wg.Wait()

	if h.deps.Manager.RemoveClient(client) {
		h.presence(context.Background(), presenceOffline, userID)
	}
	<-writerDone
	_ = client.Conn.Close()
	logger.Info("WebSocket连接关闭", zap.Uint("user_id", userID))
}

// writePump 写协程 + 定时发送ping心跳
func (h *Handler) writePump(client *Client, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(h.deps.Config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				_ = client.Conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = client.Conn.Close()
				drain(client.Send)
				return
			}
		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				_ = client.Conn.Close()
				drain(client.Send)
				return
			}
		}
	}
}

// drain 连接已断开，丢弃剩余消息直到通道关闭
func drain(ch <-chan []byte) {
	for range ch {
	}
}

// readPump 读循环（接收心跳/客户端消息）。若超时未收到任何读事件则断开
func (h *Handler) readPump(ctx context.Context, client *Client) {
	conn := client.Conn
	readTimeout := h.deps.Config.ReadTimeout
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("WebSocket读取结束", zap.Uint("user_id", client.UserID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg inbound
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "heartbeat":
			h.presence(ctx, presenceRefresh, client.UserID)
		case "mark_read":
			if msg.UserID == 0 {
				continue
			}
			// 已读后由消息表的变更通知触发未读数推送
			if _, err := h.deps.Inbox.MarkConversationRead(ctx, client.UserID, msg.UserID); err != nil {
				logger.Warn("标记已读失败", zap.Uint("user_id", client.UserID), zap.Uint("other_id", msg.UserID), zap.Error(err))
			}
		}
	}
}

const (
	presenceOnline  = "online"
	presenceRefresh = "refresh"
	presenceOffline = "offline"
)

func (h *Handler) presence(ctx context.Context, op string, userID uint) {
	p := h.deps.Presence
	if p == nil {
		return
	}
	var err error
	switch op {
	case presenceOnline:
		err = p.SetOnline(ctx, userID)
	case presenceRefresh:
		err = p.RefreshPresence(ctx, userID)
	case presenceOffline:
		err = p.SetOffline(ctx, userID)
	}
	if err != nil {
		logger.Debug("更新在线状态失败", zap.String("op", op), zap.Uint("user_id", userID), zap.Error(err))
	}
}
